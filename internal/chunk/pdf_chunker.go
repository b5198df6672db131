package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// pdfBoxEpsilon absorbs floating point jitter when comparing a word's
// position against a chunk's bounding box at re-extraction time. The box
// itself is built tight (rowsBoundingBox adds no tolerance);
// extractRowsInBox widens it by this amount on every side.
const pdfBoxEpsilon = 0.5

// PDFChunkerOptions configures the PDF chunker.
type PDFChunkerOptions struct {
	MaxChunkTokens int
}

// PDFChunker parses a PDF page by page and groups text rows into
// chunks bounded by a page-relative box.
type PDFChunker struct {
	options PDFChunkerOptions
}

// NewPDFChunker creates a PDF chunker with default options.
func NewPDFChunker() *PDFChunker {
	return NewPDFChunkerWithOptions(PDFChunkerOptions{})
}

// NewPDFChunkerWithOptions creates a PDF chunker with custom options.
func NewPDFChunkerWithOptions(opts PDFChunkerOptions) *PDFChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	return &PDFChunker{options: opts}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *PDFChunker) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Chunk parses file page by page and groups contiguous text rows into
// chunks, each bounded by a page-relative box recorded in its
// extraction coordinates.
func (c *PDFChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	if file.AbsPath == "" {
		return nil, nil, folderrerrors.IOErr("pdf chunker requires an on-disk path", nil)
	}

	f, r, err := pdf.Open(file.AbsPath)
	if err != nil {
		return nil, nil, folderrerrors.ParseError(fmt.Sprintf("open pdf: %s", file.Path), err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	meta := &DocumentMeta{Path: file.Path, Format: FormatPDF, SizeBytes: int64(len(file.Content)), PageCount: totalPages}

	var chunks []*Chunk
	now := time.Now()

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		select {
		case <-ctx.Done():
			return meta, chunks, ctx.Err()
		default:
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return meta, chunks, folderrerrors.ParseError(fmt.Sprintf("read page %d of %s", pageIndex, file.Path), err)
		}
		pageChunks := c.chunkPage(file, pageIndex, rows, now)
		chunks = append(chunks, pageChunks...)
	}

	return meta, chunks, nil
}

// chunkPage groups a page's rows into one or more chunks bounded by
// the page token budget.
func (c *PDFChunker) chunkPage(file *FileInput, pageIndex int, rows pdf.Rows, now time.Time) []*Chunk {
	var chunks []*Chunk
	start := 0

	for start < len(rows) {
		end := start + 1
		for end < len(rows) {
			if estimateTokens(rowsText(rows[start:end+1])) > c.options.MaxChunkTokens {
				break
			}
			end++
		}
		group := rows[start:end]
		if text := strings.TrimSpace(rowsText(group)); text != "" {
			chunks = append(chunks, c.chunkFromRows(file, pageIndex, group, now))
		}
		start = end
	}

	return chunks
}

// chunkFromRows builds a chunk from a contiguous run of rows, deriving
// its bounding box as the tight enclosure of every word in the run.
// extractRowsInBox, used for re-extraction, is the exact inverse of
// this construction (C1).
func (c *PDFChunker) chunkFromRows(file *FileInput, pageIndex int, rows []pdf.Row, now time.Time) *Chunk {
	minX, minY, maxX, maxY := rowsBoundingBox(rows)
	coords := ExtractionCoords{
		Version: CoordsVersion, Format: FormatPDF,
		Page: pageIndex, X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY,
	}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          rowsText(rows),
		Format:           FormatPDF,
		ExtractionCoords: coords,
		Metadata:         map[string]string{"page": fmt.Sprintf("%d", pageIndex)},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// rowsText renders rows as the chunker's canonical plain text: words
// within a row joined by a space, rows joined by a newline.
func rowsText(rows []pdf.Row) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			words = append(words, word.S)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	return strings.Join(lines, "\n")
}

// rowsBoundingBox returns the tight box enclosing every word in rows.
func rowsBoundingBox(rows []pdf.Row) (minX, minY, maxX, maxY float64) {
	first := true
	for _, row := range rows {
		for _, word := range row.Content {
			x0, y0 := word.X, row.Position
			x1, y1 := word.X+word.W, row.Position
			if first {
				minX, maxX = x0, x1
				minY, maxY = y0, y1
				first = false
				continue
			}
			if x0 < minX {
				minX = x0
			}
			if x1 > maxX {
				maxX = x1
			}
			if y0 < minY {
				minY = y0
			}
			if y1 > maxY {
				maxY = y1
			}
		}
	}
	return minX, minY, maxX, maxY
}

// extractRowsInBox re-extracts text from rows using only a page-relative
// box, widened by pdfBoxEpsilon with inclusive bounds on every side;
// rowsBoundingBox builds that box without the tolerance.
func extractRowsInBox(rows pdf.Rows, x, y, width, height float64) string {
	x0, y0 := x-pdfBoxEpsilon, y-pdfBoxEpsilon
	x1, y1 := x+width+pdfBoxEpsilon, y+height+pdfBoxEpsilon

	var matched []pdf.Row
	for _, row := range rows {
		if row.Position < y0 || row.Position > y1 {
			continue
		}
		var words []pdf.Text
		for _, word := range row.Content {
			if word.X < x0 || word.X+word.W > x1 {
				continue
			}
			words = append(words, word)
		}
		if len(words) > 0 {
			matched = append(matched, pdf.Row{Position: row.Position, Content: words})
		}
	}
	return rowsText(matched)
}
