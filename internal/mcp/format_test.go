package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foldermcp/folderd/internal/store"
)

func TestFormatSearchResults_Basic(t *testing.T) {
	results := []store.SearchResult{
		{RelativePath: "reports/q1.pdf", ChunkID: "c1", Ordinal: 3, Text: "Revenue grew 12% year over year.", Score: 0.95},
	}

	markdown := FormatSearchResults("revenue", results)

	assert.Contains(t, markdown, "## Search Results")
	assert.Contains(t, markdown, `"revenue"`)
	assert.Contains(t, markdown, "Found 1 result")
	assert.Contains(t, markdown, "reports/q1.pdf")
	assert.Contains(t, markdown, "chunk 3")
	assert.Contains(t, markdown, "score: 0.95")
	assert.Contains(t, markdown, "Revenue grew 12%")
}

func TestFormatSearchResults_MultipleResults(t *testing.T) {
	results := []store.SearchResult{
		{RelativePath: "a.pdf", Ordinal: 0, Text: "first", Score: 0.9},
		{RelativePath: "b.docx", Ordinal: 1, Text: "second", Score: 0.8},
	}

	markdown := FormatSearchResults("test", results)

	assert.Contains(t, markdown, "Found 2 results")
	assert.Contains(t, markdown, "a.pdf")
	assert.Contains(t, markdown, "b.docx")
	assert.Contains(t, markdown, "### 1.")
	assert.Contains(t, markdown, "### 2.")
}

func TestFormatSearchResults_EmptyResults(t *testing.T) {
	markdown := FormatSearchResults("xyznonexistent", nil)

	assert.Contains(t, markdown, "No results found")
	assert.Contains(t, markdown, "xyznonexistent")
	assert.NotContains(t, markdown, "###")
}

func TestFormatSearchResults_LargeResults(t *testing.T) {
	results := make([]store.SearchResult, 50)
	for i := 0; i < 50; i++ {
		results[i] = store.SearchResult{RelativePath: "file.pdf", Ordinal: i, Text: "chunk text", Score: float64(50-i) / 50.0}
	}

	markdown := FormatSearchResults("test", results)

	assert.Contains(t, markdown, "Found 50 results")
	assert.Equal(t, 50, strings.Count(markdown, "### "))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		defaultVal int
		min        int
		max        int
		want       int
	}{
		{"zero uses default", 0, 10, 1, 50, 10},
		{"negative uses default", -5, 10, 1, 50, 10},
		{"above max clamps to max", 100, 10, 1, 50, 50},
		{"valid value unchanged", 25, 10, 1, 50, 25},
		{"at min boundary", 1, 10, 1, 50, 1},
		{"at max boundary", 50, 10, 1, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampLimit(tt.limit, tt.defaultVal, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSearchResultOutput(t *testing.T) {
	r := store.SearchResult{RelativePath: "notes/meeting.docx", ChunkID: "c42", Ordinal: 2, Text: "action items", Score: 0.77}

	output := toSearchResultOutput(r)

	assert.Equal(t, "notes/meeting.docx", output.DocumentPath)
	assert.Equal(t, "c42", output.ChunkID)
	assert.Equal(t, 2, output.Ordinal)
	assert.InDelta(t, 0.77, output.Score, 0.001)
	assert.Equal(t, "action items", output.Text)
}

func TestPreviewText_TruncatesLongLine(t *testing.T) {
	text := strings.Repeat("a", 100)
	preview := previewText(text, 20)

	assert.Len(t, preview, 23) // 20 chars + "..."
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestPreviewText_StopsAtFirstNewline(t *testing.T) {
	preview := previewText("first line\nsecond line", 100)

	assert.Equal(t, "first line", preview)
}

func TestPreviewText_ShortTextUnchanged(t *testing.T) {
	preview := previewText("short", 100)

	assert.Equal(t, "short", preview)
}
