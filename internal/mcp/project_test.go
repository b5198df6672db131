package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeFolder_DominantFormat(t *testing.T) {
	summary := SummarizeFolder("/docs", []string{
		"reports/q1.pdf",
		"reports/q2.pdf",
		"reports/q3.pdf",
		"notes/meeting.docx",
	})

	assert.Equal(t, "/docs", summary.RootPath)
	assert.Equal(t, 4, summary.DocumentCount)
	assert.Equal(t, 3, summary.FormatCounts["pdf"])
	assert.Equal(t, 1, summary.FormatCounts["docx"])
	assert.Equal(t, "pdf", summary.DominantFormat)
}

func TestSummarizeFolder_TieBreaksByFormatOrder(t *testing.T) {
	summary := SummarizeFolder("/docs", []string{"a.xlsx", "b.pdf"})

	// pdf precedes xlsx in formatOrder, so a 1-1 tie favors pdf.
	assert.Equal(t, "pdf", summary.DominantFormat)
}

func TestSummarizeFolder_Empty(t *testing.T) {
	summary := SummarizeFolder("/docs", nil)

	assert.Equal(t, 0, summary.DocumentCount)
	assert.Equal(t, "unknown", summary.DominantFormat)
}

func TestSummarizeFolder_UnknownExtensionsIgnoredForDominance(t *testing.T) {
	summary := SummarizeFolder("/docs", []string{"notes.bak", "deck.pptx"})

	assert.Equal(t, 1, summary.FormatCounts["unknown"])
	assert.Equal(t, "pptx", summary.DominantFormat)
}
