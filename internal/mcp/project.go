package mcp

import (
	"path/filepath"
	"strings"
)

// FolderSummary describes the document mix of a registered folder, used
// by the folder_status and index_status tools so a client can tell what
// kind of folder it is talking to before it starts searching.
type FolderSummary struct {
	RootPath       string
	DocumentCount  int
	FormatCounts   map[string]int
	DominantFormat string
}

// SummarizeFolder classifies relativePaths by their chunker-relevant
// extension and reports the most common one. Detection order on ties
// favors the format listed first in formatOrder, keeping the result
// stable across runs over the same document set.
func SummarizeFolder(rootPath string, relativePaths []string) *FolderSummary {
	summary := &FolderSummary{
		RootPath:      rootPath,
		DocumentCount: len(relativePaths),
		FormatCounts:  make(map[string]int),
	}

	for _, p := range relativePaths {
		summary.FormatCounts[formatForPath(p)]++
	}

	best, bestCount := "unknown", 0
	for _, f := range formatOrder {
		if c := summary.FormatCounts[f]; c > bestCount {
			best, bestCount = f, c
		}
	}
	summary.DominantFormat = best

	return summary
}

// formatOrder fixes the tie-break order SummarizeFolder scans in.
var formatOrder = []string{"pdf", "docx", "xlsx", "pptx", "markdown", "text"}

// formatForPath classifies a relative path by extension into the same
// format identifiers internal/chunk.Format uses.
func formatForPath(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".pdf":
		return "pdf"
	case ".docx":
		return "docx"
	case ".xlsx":
		return "xlsx"
	case ".pptx":
		return "pptx"
	case ".md", ".mdx":
		return "markdown"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}
