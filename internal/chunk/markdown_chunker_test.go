package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_HeaderBasedSplitting(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Title

Welcome to the project.

## Section 1

Content for section 1.

## Section 2

Content for section 2.
`

	file := &FileInput{Path: "README.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Contains(t, chunks[0].Content, "# Title")
	assert.Contains(t, chunks[0].Content, "Welcome to the project")
	assert.Contains(t, chunks[1].Content, "## Section 1")
	assert.Contains(t, chunks[2].Content, "## Section 2")

	for _, c := range chunks {
		assert.Equal(t, FormatMarkdown, c.Format)
		assert.Equal(t, "README.md", c.FilePath)
		assert.Equal(t, CoordsVersion, c.ExtractionCoords.Version)
	}
}

func TestMarkdownChunker_PreservesFencedCodeBlocks(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := "# Installation\n\nInstall using:\n\n```bash\nbrew install myapp\napt-get install myapp\nyum install myapp\n```\n\nThen run:\n\n```bash\nmyapp --version\n```\n"

	file := &FileInput{Path: "INSTALL.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, "brew install") &&
			strings.Contains(c.Content, "apt-get install") &&
			strings.Contains(c.Content, "yum install") {
			found = true
		}
	}
	assert.True(t, found, "fenced code block must stay intact in one chunk")
}

func TestMarkdownChunker_HeaderPathTracking(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Top

Intro.

## Middle

Middle content.

### Deep

Deep content.
`

	file := &FileInput{Path: "docs.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Top", chunks[0].Metadata["header_path"])
	assert.Equal(t, "Top > Middle", chunks[1].Metadata["header_path"])
	assert.Equal(t, "Top > Middle > Deep", chunks[2].Metadata["header_path"])

	assert.Equal(t, "1", chunks[0].Metadata["header_level"])
	assert.Equal(t, "2", chunks[1].Metadata["header_level"])
	assert.Equal(t, "3", chunks[2].Metadata["header_level"])
}

func TestMarkdownChunker_NestedHeaderResetsOnSibling(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Top Level

## Subsection A

### Deep in A

## Subsection B

This belongs under Top Level > Subsection B, not under Subsection A.
`

	file := &FileInput{Path: "nested.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)

	var subsectionB *Chunk
	for _, c := range chunks {
		if strings.Contains(c.Content, "Subsection B") && !strings.Contains(c.Content, "Deep in A") {
			subsectionB = c
		}
	}
	require.NotNil(t, subsectionB)
	assert.Equal(t, "Top Level > Subsection B", subsectionB.Metadata["header_path"])
}

func TestMarkdownChunker_FrontmatterExtraction(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `---
title: My Document
author: John Doe
---

# Introduction

Welcome to the document.
`

	file := &FileInput{Path: "doc.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Contains(t, chunks[0].Content, "title: My Document")
	assert.Equal(t, "frontmatter", chunks[0].Metadata["section_title"])
	assert.Contains(t, chunks[1].Content, "# Introduction")
}

func TestMarkdownChunker_LargeSectionSplitsOnParagraphBoundaries(t *testing.T) {
	chunker := NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{MaxChunkTokens: 100})

	var sb strings.Builder
	sb.WriteString("# Large Section\n\n")
	for i := 0; i < 50; i++ {
		sb.WriteString("This is paragraph number ")
		sb.WriteString(strings.Repeat("word ", 20))
		sb.WriteString(".\n\n")
	}

	file := &FileInput{Path: "large.md", Content: []byte(sb.String())}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.Contains(t, c.Metadata["header_path"], "Large Section")
	}
}

func TestMarkdownChunker_EmptySectionKeepsNeighbours(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Header 1

Some intro content.

## Empty Section

## Section With Content

Some content here.
`

	file := &FileInput{Path: "empty.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var sawContent, sawIntro bool
	for _, c := range chunks {
		if strings.Contains(c.Content, "Some content here") {
			sawContent = true
		}
		if strings.Contains(c.Content, "Some intro content") {
			sawIntro = true
		}
	}
	assert.True(t, sawContent)
	assert.True(t, sawIntro)
}

func TestMarkdownChunker_NoHeadersFallsBackToParagraphs(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `First paragraph with some content.

Second paragraph with more content.
`

	file := &FileInput{Path: "plain.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 1)
	assert.Contains(t, chunks[0].Content, "First paragraph")
}

func TestMarkdownChunker_PreservesTables(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Data

| Column A | Column B |
|----------|----------|
| Value 1  | Value 2  |
| Value 3  | Value 4  |

After the table.
`

	file := &FileInput{Path: "table.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, "Column A") && strings.Contains(c.Content, "Value 4") {
			found = true
		}
	}
	assert.True(t, found, "table must stay intact in one chunk")
}

func TestMarkdownChunker_EmptyFileYieldsNoChunks(t *testing.T) {
	chunker := NewMarkdownChunker()
	file := &FileInput{Path: "empty.md", Content: []byte("")}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMarkdownChunker_WhitespaceOnlyFileYieldsNoChunks(t *testing.T) {
	chunker := NewMarkdownChunker()
	file := &FileInput{Path: "whitespace.md", Content: []byte("   \n\n\t\t\n   ")}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMarkdownChunker_SupportedExtensions(t *testing.T) {
	chunker := NewMarkdownChunker()
	exts := chunker.SupportedExtensions()

	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".markdown")
	assert.Contains(t, exts, ".mdx")
}

func TestMarkdownChunker_ChunkIDsAreUnique(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Section 1

Content 1.

# Section 2

Content 2.
`

	file := &FileInput{Path: "unique.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.False(t, ids[c.ID], "duplicate chunk ID: %s", c.ID)
		ids[c.ID] = true
	}
}

// C1: re-extracting a chunk's bytes from the original file using only
// its extraction coordinates must reproduce the chunker's own output.
func TestMarkdownChunker_ExtractionCoordsReproduceContent(t *testing.T) {
	chunker := NewMarkdownChunker()

	content := `# Top

Intro paragraph.

## Section

Body paragraph with some words.
`

	file := &FileInput{Path: "reextract.md", Content: []byte(content)}

	_, chunks, err := chunker.Chunk(context.Background(), file)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		coords := c.ExtractionCoords
		require.Equal(t, CoordsVersion, coords.Version)
		reextracted := content[coords.StartOffset:coords.EndOffset]
		assert.Equal(t, c.Content, reextracted)
	}
}

func BenchmarkMarkdownChunker_Chunk_10Sections(b *testing.B) {
	chunker := NewMarkdownChunker()

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("# Section ")
		sb.WriteString(string(rune('A' + i)))
		sb.WriteString("\n\n")
		sb.WriteString(strings.Repeat("Content paragraph with some text. ", 10))
		sb.WriteString("\n\n")
	}

	file := &FileInput{Path: "bench.md", Content: []byte(sb.String())}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = chunker.Chunk(context.Background(), file)
	}
}

func BenchmarkMarkdownChunker_Chunk_100Sections(b *testing.B) {
	chunker := NewMarkdownChunker()

	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("# Section XXX\n\n")
		sb.WriteString(strings.Repeat("Content paragraph with some text. ", 5))
		sb.WriteString("\n\n")
	}

	file := &FileInput{Path: "bench_large.md", Content: []byte(sb.String())}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = chunker.Chunk(context.Background(), file)
	}
}
