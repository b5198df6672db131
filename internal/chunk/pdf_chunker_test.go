package chunk

import (
	"context"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() pdf.Rows {
	return pdf.Rows{
		{Position: 700, Content: []pdf.Text{{S: "Title", X: 50, W: 40}}},
		{Position: 680, Content: []pdf.Text{{S: "First", X: 50, W: 30}, {S: "line", X: 85, W: 25}}},
		{Position: 660, Content: []pdf.Text{{S: "Second", X: 50, W: 35}, {S: "line", X: 90, W: 25}}},
	}
}

func TestRowsTextJoinsWordsAndLines(t *testing.T) {
	text := rowsText(sampleRows())
	assert.Equal(t, "Title\nFirst line\nSecond line", text)
}

func TestRowsBoundingBoxEnclosesEveryWord(t *testing.T) {
	minX, minY, maxX, maxY := rowsBoundingBox(sampleRows())
	assert.Equal(t, 50.0, minX)
	assert.Equal(t, 660.0, minY)
	assert.Equal(t, 700.0, maxY)
	assert.Equal(t, 115.0, maxX) // last row's "line" word: X=90, W=25
}

// C1: re-extracting via the box built from a row range must reproduce
// exactly that row range's text.
func TestExtractRowsInBoxReproducesSourceRows(t *testing.T) {
	rows := sampleRows()
	group := rows[1:3] // "First line" / "Second line"

	minX, minY, maxX, maxY := rowsBoundingBox(group)
	got := extractRowsInBox(rows, minX, minY, maxX-minX, maxY-minY)

	assert.Equal(t, rowsText(group), got)
}

func TestExtractRowsInBoxExcludesWordsOutsideBox(t *testing.T) {
	rows := sampleRows()
	// Box covering only the title row.
	got := extractRowsInBox(rows, 0, 695, 200, 10)
	assert.Equal(t, "Title", got)
}

func TestPDFChunker_ChunkRequiresAbsPath(t *testing.T) {
	chunker := NewPDFChunker()
	_, _, err := chunker.Chunk(context.Background(), &FileInput{Path: "doc.pdf"})
	require.Error(t, err)
}

func TestPDFChunker_ChunkPageGroupsRowsByTokenBudget(t *testing.T) {
	chunker := NewPDFChunkerWithOptions(PDFChunkerOptions{MaxChunkTokens: 2})
	rows := sampleRows()

	chunks := chunker.chunkPage(&FileInput{Path: "doc.pdf"}, 1, rows, time.Now())
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, FormatPDF, c.Format)
		assert.Equal(t, 1, c.ExtractionCoords.Page)
	}
}

func TestPDFChunker_SupportedExtensions(t *testing.T) {
	chunker := NewPDFChunker()
	assert.Equal(t, []string{".pdf"}, chunker.SupportedExtensions())
}
