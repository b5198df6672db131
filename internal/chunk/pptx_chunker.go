package chunk

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// slideFilePattern matches OOXML presentation slide parts. PPTX has no
// third-party reader in the pack worth wiring: every candidate either
// targets DOCX/XLSX specifically or pulls in a much larger OOXML suite
// than a page-of-text extractor needs, so this one stays on
// archive/zip + encoding/xml.
var slideFilePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXChunkerOptions configures the PPTX chunker.
type PPTXChunkerOptions struct {
	MaxChunkTokens int
}

// PPTXChunker emits one chunk per slide, or a small contiguous slide
// range when slides are short enough to share a chunk.
type PPTXChunker struct {
	options PPTXChunkerOptions
}

// NewPPTXChunker creates a PPTX chunker with default options.
func NewPPTXChunker() *PPTXChunker {
	return NewPPTXChunkerWithOptions(PPTXChunkerOptions{})
}

// NewPPTXChunkerWithOptions creates a PPTX chunker with custom options.
func NewPPTXChunkerWithOptions(opts PPTXChunkerOptions) *PPTXChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	return &PPTXChunker{options: opts}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *PPTXChunker) SupportedExtensions() []string {
	return []string{".pptx"}
}

// Chunk reads each ppt/slides/slideN.xml part in slide order and groups
// contiguous slides into chunks bounded by the token budget.
func (c *PPTXChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	if file.AbsPath == "" {
		return nil, nil, folderrerrors.IOErr("pptx chunker requires an on-disk path", nil)
	}

	zr, err := zip.OpenReader(file.AbsPath)
	if err != nil {
		return nil, nil, folderrerrors.ParseError(fmt.Sprintf("open pptx: %s", file.Path), err)
	}
	defer zr.Close()

	numbered := map[int]*zip.File{}
	for _, f := range zr.File {
		m := slideFilePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		numbered[n] = f
	}

	numbers := make([]int, 0, len(numbered))
	for n := range numbered {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	meta := &DocumentMeta{Path: file.Path, Format: FormatPPTX, SizeBytes: int64(len(file.Content)), PageCount: len(numbers)}

	slideTexts := make([]string, len(numbers))
	for i, n := range numbers {
		select {
		case <-ctx.Done():
			return meta, nil, ctx.Err()
		default:
		}
		rc, err := numbered[n].Open()
		if err != nil {
			return meta, nil, folderrerrors.ParseError(fmt.Sprintf("read slide %d of %s", n, file.Path), err)
		}
		text, err := extractSlideText(rc)
		rc.Close()
		if err != nil {
			return meta, nil, folderrerrors.ParseError(fmt.Sprintf("parse slide %d of %s", n, file.Path), err)
		}
		slideTexts[i] = text
	}

	chunks := c.chunkSlides(file, numbers, slideTexts, time.Now())
	return meta, chunks, nil
}

func (c *PPTXChunker) chunkSlides(file *FileInput, numbers []int, texts []string, now time.Time) []*Chunk {
	var chunks []*Chunk
	start := 0
	for start < len(numbers) {
		end := start + 1
		for end < len(numbers) {
			if estimateTokens(strings.Join(texts[start:end+1], "\n\n")) > c.options.MaxChunkTokens {
				break
			}
			end++
		}
		content := strings.TrimSpace(strings.Join(texts[start:end], "\n\n"))
		if content != "" {
			chunks = append(chunks, c.chunkFromRange(file, numbers[start], numbers[end-1], content, now))
		}
		start = end
	}
	return chunks
}

func (c *PPTXChunker) chunkFromRange(file *FileInput, startSlide, endSlide int, content string, now time.Time) *Chunk {
	coords := ExtractionCoords{Version: CoordsVersion, Format: FormatPPTX, StartSlide: startSlide, EndSlide: endSlide}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          content,
		Format:           FormatPPTX,
		ExtractionCoords: coords,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// extractSlideText walks a slideN.xml part and joins the text of each
// paragraph's <a:t> runs, separating paragraphs with newlines.
func extractSlideText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inText := false
	sawParagraph := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if sawParagraph {
					paragraphs = append(paragraphs, current.String())
					current.Reset()
				}
				sawParagraph = true
			case "t":
				inText = true
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		}
	}
	if sawParagraph {
		paragraphs = append(paragraphs, current.String())
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
