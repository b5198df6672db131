package chunk

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nguyenthenguyen/docx"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// DOCXChunkerOptions configures the DOCX chunker.
type DOCXChunkerOptions struct {
	MaxChunkTokens int
}

// DOCXChunker parses a DOCX file's paragraph stream and chunks by
// contiguous paragraph ranges.
type DOCXChunker struct {
	options DOCXChunkerOptions
}

// NewDOCXChunker creates a DOCX chunker with default options.
func NewDOCXChunker() *DOCXChunker {
	return NewDOCXChunkerWithOptions(DOCXChunkerOptions{})
}

// NewDOCXChunkerWithOptions creates a DOCX chunker with custom options.
func NewDOCXChunkerWithOptions(opts DOCXChunkerOptions) *DOCXChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	return &DOCXChunker{options: opts}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *DOCXChunker) SupportedExtensions() []string {
	return []string{".docx"}
}

// Chunk parses file into its paragraph stream and groups contiguous
// paragraphs into chunks bounded by the token budget.
func (c *DOCXChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	if file.AbsPath == "" {
		return nil, nil, folderrerrors.IOErr("docx chunker requires an on-disk path", nil)
	}

	paragraphs, err := c.paragraphStream(file.AbsPath)
	if err != nil {
		return nil, nil, err
	}

	meta := &DocumentMeta{Path: file.Path, Format: FormatDOCX, SizeBytes: int64(len(file.Content))}

	var chunks []*Chunk
	now := time.Now()
	start := 0

	for start < len(paragraphs) {
		if strings.TrimSpace(paragraphs[start]) == "" {
			start++
			continue
		}
		end := start + 1
		for end < len(paragraphs) {
			if estimateTokens(joinParagraphs(paragraphs[start:end+1])) > c.options.MaxChunkTokens {
				break
			}
			end++
		}
		if text := strings.TrimSpace(joinParagraphs(paragraphs[start:end])); text != "" {
			chunks = append(chunks, c.chunkFromRange(file, paragraphs, start, end, now))
		}
		start = end
	}

	return meta, chunks, nil
}

// paragraphStream opens the docx file and extracts its ordered
// paragraph text stream.
func (c *DOCXChunker) paragraphStream(path string) ([]string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, folderrerrors.ParseError(fmt.Sprintf("open docx: %s", path), err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	paragraphs, err := extractParagraphs(content)
	if err != nil {
		return nil, folderrerrors.ParseError(fmt.Sprintf("parse docx body: %s", path), err)
	}
	return paragraphs, nil
}

func (c *DOCXChunker) chunkFromRange(file *FileInput, paragraphs []string, start, end int, now time.Time) *Chunk {
	coords := ExtractionCoords{Version: CoordsVersion, Format: FormatDOCX, StartParagraph: start, EndParagraph: end}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          joinParagraphs(paragraphs[start:end]),
		Format:           FormatDOCX,
		ExtractionCoords: coords,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}

// extractParagraphs walks a document.xml body and returns the ordered
// text of each <w:p> paragraph, concatenating only the character data
// of <w:t> runs (run properties and other sibling markup carry no text
// of their own) plus tab/line-break markers.
func extractParagraphs(xmlContent string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlContent))

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				if inParagraph {
					current.WriteString("\t")
				}
			case "br", "cr":
				if inParagraph {
					current.WriteString("\n")
				}
			}
		case xml.CharData:
			if inParagraph && inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				inParagraph = false
			}
		}
	}

	return paragraphs, nil
}
