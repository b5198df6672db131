package chunk

import (
	"context"
	"strings"
	"time"
)

// TextChunkerOptions configures the plain-text chunker.
type TextChunkerOptions struct {
	MaxChunkTokens int // default: DefaultMaxChunkTokens
}

// TextChunker splits plain text on paragraph boundaries (blank lines).
// Plain text carries no block structure worth a parser dependency, so
// this chunker stays on the standard library.
type TextChunker struct {
	options TextChunkerOptions
}

// NewTextChunker creates a text chunker with default options.
func NewTextChunker() *TextChunker {
	return NewTextChunkerWithOptions(TextChunkerOptions{})
}

// NewTextChunkerWithOptions creates a text chunker with custom options.
func NewTextChunkerWithOptions(opts TextChunkerOptions) *TextChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	return &TextChunker{options: opts}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *TextChunker) SupportedExtensions() []string {
	return []string{".txt"}
}

// Chunk splits a plain-text file into paragraph-bounded chunks, merging
// consecutive paragraphs until the token budget is reached so a split
// never lands mid-sentence.
func (c *TextChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	meta := &DocumentMeta{Path: file.Path, Format: FormatText, SizeBytes: int64(len(file.Content))}
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return meta, nil, nil
	}

	bounds := paragraphBounds(content)
	if len(bounds) == 0 {
		return meta, nil, nil
	}

	now := time.Now()
	var chunks []*Chunk
	chunkStart := bounds[0][0]
	segEnd := bounds[0][1]

	flush := func(end int) {
		trimmed := strings.TrimRight(content[chunkStart:end], " \t\n")
		if trimmed == "" {
			return
		}
		chunks = append(chunks, c.chunkFromRange(file, content, chunkStart, chunkStart+len(trimmed), now))
	}

	for i := 1; i < len(bounds); i++ {
		candidateEnd := bounds[i][1]
		if estimateTokens(content[chunkStart:candidateEnd]) > c.options.MaxChunkTokens {
			flush(segEnd)
			chunkStart = bounds[i][0]
		}
		segEnd = candidateEnd
	}
	flush(segEnd)

	return meta, c.mergeUndersizedTrailingChunk(file, content, chunks, now), nil
}

// mergeUndersizedTrailingChunk folds a final chunk shorter than
// MinViableChunkChars into its predecessor instead of leaving a sliver
// too small to carry useful semantic content on its own. The threshold
// is the same absolute character count used everywhere else a chunk's
// viability is judged (C2). The merged chunk is rebuilt from the
// original content and its extraction coordinates, so C1 still holds.
func (c *TextChunker) mergeUndersizedTrailingChunk(file *FileInput, content string, chunks []*Chunk, now time.Time) []*Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	last := chunks[len(chunks)-1]
	if len(last.Content) >= MinViableChunkChars {
		return chunks
	}
	prev := chunks[len(chunks)-2]
	merged := c.chunkFromRange(file, content, prev.ExtractionCoords.StartOffset, last.ExtractionCoords.EndOffset, now)
	chunks[len(chunks)-2] = merged
	return chunks[:len(chunks)-1]
}

func (c *TextChunker) chunkFromRange(file *FileInput, content string, start, end int, now time.Time) *Chunk {
	coords := ExtractionCoords{Version: CoordsVersion, Format: FormatText, StartOffset: start, EndOffset: end}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          content[start:end],
		Format:           FormatText,
		ExtractionCoords: coords,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// paragraphBounds returns the [start, end) byte ranges of each
// non-blank paragraph in content, split on runs of blank lines.
func paragraphBounds(content string) [][2]int {
	var bounds [][2]int
	n := len(content)
	i := 0
	for i < n {
		for i < n && isBlankLineByte(content, i) {
			i = nextLine(content, i)
		}
		if i >= n {
			break
		}
		start := i
		for i < n && !isBlankLineRun(content, i) {
			i = nextLine(content, i)
		}
		bounds = append(bounds, [2]int{start, i})
	}
	return bounds
}

func nextLine(content string, i int) int {
	idx := strings.IndexByte(content[i:], '\n')
	if idx == -1 {
		return len(content)
	}
	return i + idx + 1
}

func isBlankLineByte(content string, i int) bool {
	end := nextLine(content, i)
	return strings.TrimSpace(content[i:end]) == ""
}

func isBlankLineRun(content string, i int) bool {
	return isBlankLineByte(content, i)
}
