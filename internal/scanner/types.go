// Package scanner discovers indexable office documents in a registered
// folder and computes the (path, size, mtime, content hash) fingerprint
// each document is diffed against on every scan cycle.
package scanner

import (
	"sort"
	"strings"
	"time"
)

// DocumentFormat identifies which chunker a discovered file should be
// routed to.
type DocumentFormat string

const (
	FormatText     DocumentFormat = "text"
	FormatMarkdown DocumentFormat = "markdown"
	FormatPDF      DocumentFormat = "pdf"
	FormatDOCX     DocumentFormat = "docx"
	FormatXLSX     DocumentFormat = "xlsx"
	FormatPPTX     DocumentFormat = "pptx"
	FormatUnknown  DocumentFormat = ""
)

// formatByExtension maps a lowercased file extension to the document
// format that chunks it. Extensions absent from this table are not
// indexable and are skipped by the scanner.
var formatByExtension = map[string]DocumentFormat{
	".txt":      FormatText,
	".md":       FormatMarkdown,
	".mdx":      FormatMarkdown,
	".markdown": FormatMarkdown,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".xlsx":     FormatXLSX,
	".pptx":     FormatPPTX,
}

// DetectFormat returns the document format for path, or FormatUnknown if
// the extension is not one this daemon indexes.
func DetectFormat(path string) DocumentFormat {
	ext := extension(path)
	if f, ok := formatByExtension[strings.ToLower(ext)]; ok {
		return f
	}
	return FormatUnknown
}

// SupportedExtensions lists every extension the scanner treats as
// indexable, sorted for deterministic output (e.g. in CLI help text).
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formatByExtension))
	for ext := range formatByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// extension returns the file extension from a path (including the dot).
func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}

// Fingerprint identifies a document's on-disk state at scan time. Two
// fingerprints for the same path are equal (for diffing purposes) when
// Size and ContentHash match; ModTime is not compared, because some
// filesystems and sync tools round or skip mtime updates.
type Fingerprint struct {
	Path        string // relative to the folder root, slash-separated
	AbsPath     string
	Size        int64
	ModTime     time.Time
	ContentHash string // hex-encoded SHA-256 of the file contents
	Format      DocumentFormat
}

// Unchanged reports whether two fingerprints for the same path describe
// the same document state.
func (f Fingerprint) Unchanged(other Fingerprint) bool {
	return f.Size == other.Size && f.ContentHash == other.ContentHash
}

// ScanOptions configures a folder scan.
type ScanOptions struct {
	// RootDir is the folder root to scan.
	RootDir string

	// Previous is the fingerprint map persisted from the prior scan
	// cycle, keyed by relative path. When a file's size and mtime both
	// match its previous fingerprint, the scanner reuses the stored
	// content hash instead of re-reading the file.
	Previous map[string]Fingerprint

	// ExcludePatterns are gitignore-syntax patterns (folder config's
	// Folders.Exclude) applied in addition to the scanner's built-in
	// defaults.
	ExcludePatterns []string

	// Workers sizes the scan's result buffer (Workers*4; 0 = NumCPU).
	// Content hashes are computed on the single walking goroutine.
	Workers int

	// MaxFileSize is the largest file the scanner will fingerprint, in
	// bytes (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links. A visited-inode
	// set guards against symlink cycles regardless of this setting.
	FollowSymlinks bool

	// ProgressFunc is called periodically during scanning with the
	// number of files fingerprinted so far.
	ProgressFunc func(scanned int)
}

// ScanResult is streamed from Scan's result channel.
type ScanResult struct {
	File  *Fingerprint
	Error error
}

// DefaultMaxFileSize is the default maximum document size (100MB),
// matching FoldersConfig.MaxFileSizeBytes' default.
const DefaultMaxFileSize = 100 * 1024 * 1024

// ChangeKind classifies a path in a Diff result.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeModified  ChangeKind = "modified"
	ChangeRemoved   ChangeKind = "removed"
	ChangeUnchanged ChangeKind = "unchanged"
)

// Change pairs a path with its classification against the previous
// fingerprint map.
type Change struct {
	Path string
	Kind ChangeKind
	// Fingerprint is the current fingerprint for added/modified/unchanged
	// paths, and the zero value for removed paths.
	Fingerprint Fingerprint
}

// Diff classifies every path in current against previous, the stored
// fingerprint map from the prior scan cycle. Results are returned sorted
// lexicographically by path so lifecycle task enqueuing is deterministic.
func Diff(previous, current map[string]Fingerprint) []Change {
	changes := make([]Change, 0, len(current)+len(previous))

	for path, fp := range current {
		prev, existed := previous[path]
		switch {
		case !existed:
			changes = append(changes, Change{Path: path, Kind: ChangeAdded, Fingerprint: fp})
		case !prev.Unchanged(fp):
			changes = append(changes, Change{Path: path, Kind: ChangeModified, Fingerprint: fp})
		default:
			changes = append(changes, Change{Path: path, Kind: ChangeUnchanged, Fingerprint: fp})
		}
	}

	for path := range previous {
		if _, stillPresent := current[path]; !stillPresent {
			changes = append(changes, Change{Path: path, Kind: ChangeRemoved})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}
