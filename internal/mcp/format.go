package mcp

import (
	"fmt"
	"strings"

	"github.com/foldermcp/folderd/internal/store"
)

// FormatSearchResults formats vector similarity search results as markdown.
func FormatSearchResults(query string, results []store.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

// formatResult formats a single search result.
func formatResult(sb *strings.Builder, num int, r store.SearchResult) {
	fmt.Fprintf(sb, "### %d. %s (chunk %d, score: %.2f)\n\n", num, r.RelativePath, r.Ordinal, r.Score)
	fmt.Fprintf(sb, "```\n%s\n```\n\n", r.Text)
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// toSearchResultOutput converts a store.SearchResult to the MCP output format.
func toSearchResultOutput(r store.SearchResult) SearchResultOutput {
	return SearchResultOutput{
		DocumentPath: r.RelativePath,
		ChunkID:      r.ChunkID,
		Ordinal:      r.Ordinal,
		Score:        float64(r.Score),
		Text:         r.Text,
	}
}

// previewText truncates text to a single-line preview: the first line,
// trimmed, cut to maxChars bytes with "..." appended when it is longer.
// It is used by get_document_outline so a client can
// decide which chunk to fetch in full before asking for it.
func previewText(text string, maxChars int) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > maxChars {
		return text[:maxChars] + "..."
	}
	return text
}
