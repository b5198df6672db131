package chunk

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:sp><p:txBody>
<a:p><a:r><a:t>Title Slide</a:t></a:r></a:p>
<a:p><a:r><a:t>Subheading</a:t></a:r><a:r><a:t xml:space="preserve"> continues</a:t></a:r></a:p>
</p:txBody></p:sp>
</p:spTree></p:cSld>
</p:sld>`

func TestExtractSlideTextJoinsParagraphRuns(t *testing.T) {
	text, err := extractSlideText(strings.NewReader(sampleSlideXML))
	require.NoError(t, err)
	assert.Equal(t, "Title Slide\nSubheading continues", text)
}

func TestExtractSlideTextEmptySlideYieldsEmptyString(t *testing.T) {
	xmlBody := `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree></p:spTree></p:cSld></p:sld>`
	text, err := extractSlideText(strings.NewReader(xmlBody))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestPPTXChunker_ChunkRequiresAbsPath(t *testing.T) {
	chunker := NewPPTXChunker()
	_, _, err := chunker.Chunk(context.Background(), &FileInput{Path: "deck.pptx"})
	require.Error(t, err)
}

func TestPPTXChunker_SupportedExtensions(t *testing.T) {
	chunker := NewPPTXChunker()
	assert.Equal(t, []string{".pptx"}, chunker.SupportedExtensions())
}

func TestPPTXChunker_ChunkSlidesGroupsContiguousSlidesByBudget(t *testing.T) {
	chunker := NewPPTXChunkerWithOptions(PPTXChunkerOptions{MaxChunkTokens: 2})
	file := &FileInput{Path: "deck.pptx"}

	numbers := []int{1, 2, 3}
	texts := []string{"one two three four", "five six seven eight", "nine ten"}

	chunks := chunker.chunkSlides(file, numbers, texts, time.Now())
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, FormatPPTX, c.Format)
		assert.LessOrEqual(t, c.ExtractionCoords.StartSlide, c.ExtractionCoords.EndSlide)
	}
	// every slide number must be covered by exactly one chunk, in order
	covered := 0
	for _, c := range chunks {
		covered += c.ExtractionCoords.EndSlide - c.ExtractionCoords.StartSlide + 1
	}
	assert.Equal(t, len(numbers), covered)
}
