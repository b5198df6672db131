package chunk

import (
	"context"
	"time"
)

// Chunk size defaults (based on 2025 RAG research)
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	MinChunkTokens        = 100 // Minimum viable chunk
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// MinViableChunkChars is the minimum width of a chunk, in absolute
// character counts. Viability decisions and the extraction that produces
// a chunk must use this same constant; a percentage of "page width" or
// "paragraph length" is never an acceptable substitute, since percentages
// silently change meaning as documents vary in size.
const MinViableChunkChars = 40

// Format identifies the document format a chunker handles.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatPPTX     Format = "pptx"
)

// CoordsVersion is the current extraction-coordinates schema version.
// A chunk whose persisted coords carry a different version cannot be
// safely re-extracted and must be treated as a schema-version error
// rather than silently reinterpreted.
const CoordsVersion = 1

// ExtractionCoords locates the exact bytes a chunk was extracted from,
// so that re-extracting a chunk from the original file using only these
// coordinates yields text identical to what the chunker produced.
//
// Only the fields relevant to Format are populated; the rest stay zero.
type ExtractionCoords struct {
	Version int    `json:"version"`
	Format  Format `json:"format"`

	// Text / Markdown
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`

	// PDF: a page-bounded box, inclusive on all four sides.
	Page   int     `json:"page,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	// DOCX: a range over the paragraph stream, not a byte range over
	// raw text (duplicate paragraphs would otherwise alias).
	StartParagraph int `json:"startParagraph,omitempty"`
	EndParagraph   int `json:"endParagraph,omitempty"`

	// XLSX
	Sheet     string `json:"sheet,omitempty"`
	HeaderRow int    `json:"headerRow,omitempty"`
	StartRow  int    `json:"startRow,omitempty"`
	EndRow    int    `json:"endRow,omitempty"`

	// PPTX
	StartSlide int `json:"startSlide,omitempty"`
	EndSlide   int `json:"endSlide,omitempty"`
}

// Chunk is a retrievable unit of content extracted from a document.
type Chunk struct {
	ID               string // positional: sha256(path + coords)[:16]
	FilePath         string // relative to the folder root
	Content          string
	Format           Format
	ExtractionCoords ExtractionCoords
	Metadata         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DocumentMeta describes the document a set of chunks was extracted
// from, independent of any individual chunk.
type DocumentMeta struct {
	Path       string
	Format     Format
	SizeBytes  int64
	PageCount  int      // PDF, PPTX (page/slide count)
	SheetNames []string // XLSX
}

// FileInput is input to a Chunker.
type FileInput struct {
	Path    string // relative path, used to populate Chunk.FilePath
	AbsPath string // absolute on-disk path; required by chunkers that need random access (PDF, DOCX, XLSX, PPTX)
	Content []byte // full file content; sufficient for text-based formats
}

// Chunker splits a single file into semantic chunks.
type Chunker interface {
	// Chunk parses file and splits it into chunks. Per-file parse
	// failures are returned as an error classified via the errors
	// package (parse, io, or unsupported); callers let the folder's
	// other files continue on a single file's failure.
	Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error)

	// SupportedExtensions returns the file extensions this chunker
	// handles, lowercase and including the leading dot.
	SupportedExtensions() []string
}
