package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// XLSXChunkerOptions configures the XLSX chunker.
type XLSXChunkerOptions struct {
	MaxRowsPerChunk int // default: 50
}

// XLSXChunker requires the first row of each sheet as a header row and
// chunks the remainder by contiguous row ranges.
type XLSXChunker struct {
	options XLSXChunkerOptions
}

// NewXLSXChunker creates an XLSX chunker with default options.
func NewXLSXChunker() *XLSXChunker {
	return NewXLSXChunkerWithOptions(XLSXChunkerOptions{})
}

// NewXLSXChunkerWithOptions creates an XLSX chunker with custom options.
func NewXLSXChunkerWithOptions(opts XLSXChunkerOptions) *XLSXChunker {
	if opts.MaxRowsPerChunk == 0 {
		opts.MaxRowsPerChunk = 50
	}
	return &XLSXChunker{options: opts}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *XLSXChunker) SupportedExtensions() []string {
	return []string{".xlsx"}
}

// Chunk requires the first data row of every sheet as a header and
// chunks the remainder into contiguous row ranges, each chunk carrying
// the header row as context.
func (c *XLSXChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	if file.AbsPath == "" {
		return nil, nil, folderrerrors.IOErr("xlsx chunker requires an on-disk path", nil)
	}

	f, err := excelize.OpenFile(file.AbsPath)
	if err != nil {
		return nil, nil, folderrerrors.ParseError(fmt.Sprintf("open xlsx: %s", file.Path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	meta := &DocumentMeta{Path: file.Path, Format: FormatXLSX, SizeBytes: int64(len(file.Content)), SheetNames: sheets}

	var chunks []*Chunk
	now := time.Now()

	for _, sheet := range sheets {
		select {
		case <-ctx.Done():
			return meta, chunks, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return meta, chunks, folderrerrors.ParseError(fmt.Sprintf("read sheet %s of %s", sheet, file.Path), err)
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		if len(strings.TrimSpace(strings.Join(header, ""))) == 0 {
			return meta, chunks, folderrerrors.ParseError(fmt.Sprintf("sheet %s of %s has no header row", sheet, file.Path), nil)
		}

		sheetChunks := c.chunkSheet(file, sheet, header, rows[1:], now)
		chunks = append(chunks, sheetChunks...)
	}

	return meta, chunks, nil
}

func (c *XLSXChunker) chunkSheet(file *FileInput, sheet string, header, dataRows [][]string, now time.Time) []*Chunk {
	var chunks []*Chunk
	for start := 0; start < len(dataRows); start += c.options.MaxRowsPerChunk {
		end := start + c.options.MaxRowsPerChunk
		if end > len(dataRows) {
			end = len(dataRows)
		}
		// headerRow/startRow/endRow are 1-indexed spreadsheet rows,
		// header always row 1, data starting row 2.
		headerRow := 1
		startRow := start + 2
		endRow := end + 1
		content := renderRowRange(header, dataRows[start:end])
		chunks = append(chunks, c.chunkFromRange(file, sheet, headerRow, startRow, endRow, content, now))
	}
	return chunks
}

func (c *XLSXChunker) chunkFromRange(file *FileInput, sheet string, headerRow, startRow, endRow int, content string, now time.Time) *Chunk {
	coords := ExtractionCoords{
		Version: CoordsVersion, Format: FormatXLSX,
		Sheet: sheet, HeaderRow: headerRow, StartRow: startRow, EndRow: endRow,
	}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          content,
		Format:           FormatXLSX,
		ExtractionCoords: coords,
		Metadata:         map[string]string{"sheet": sheet},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// renderRowRange renders a header row and a contiguous range of data
// rows as tab-separated lines, the header first. Both chunk construction
// and row-range re-extraction call this same function (C2).
func renderRowRange(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}
