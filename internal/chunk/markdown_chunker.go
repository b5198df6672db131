package chunk

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownChunkerOptions configures the markdown chunker behavior.
type MarkdownChunkerOptions struct {
	MaxChunkTokens int // default: DefaultMaxChunkTokens
	OverlapTokens  int // default: DefaultOverlapTokens
}

// MarkdownChunker splits Markdown documents along block boundaries
// (headings, paragraphs, fenced code, tables, lists) using goldmark's
// parser, so that splits never land mid-sentence or inside a fenced
// code block.
type MarkdownChunker struct {
	options MarkdownChunkerOptions
	md      goldmark.Markdown
}

// frontmatterPattern matches a leading YAML frontmatter block. goldmark
// itself has no frontmatter extension in this build, so it is stripped
// before the body is handed to the block parser.
var frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)

// NewMarkdownChunker creates a markdown chunker with default options.
func NewMarkdownChunker() *MarkdownChunker {
	return NewMarkdownChunkerWithOptions(MarkdownChunkerOptions{})
}

// NewMarkdownChunkerWithOptions creates a markdown chunker with custom options.
func NewMarkdownChunkerWithOptions(opts MarkdownChunkerOptions) *MarkdownChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	return &MarkdownChunker{options: opts, md: goldmark.New()}
}

// SupportedExtensions returns the file extensions this chunker handles.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// Chunk splits a markdown file into semantic chunks.
func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	meta := &DocumentMeta{Path: file.Path, Format: FormatMarkdown, SizeBytes: int64(len(file.Content))}

	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return meta, nil, nil
	}

	frontmatterLen := 0
	var chunks []*Chunk
	now := time.Now()

	if fm := frontmatterPattern.FindString(content); fm != "" {
		frontmatterLen = len(fm)
		chunks = append(chunks, c.chunkFromRange(file, content, 0, frontmatterLen, "", 0, "frontmatter", now))
	}

	body := content[frontmatterLen:]
	sections := c.parseSections([]byte(body))

	if len(sections) == 0 {
		return meta, chunks, nil
	}

	for _, sec := range sections {
		absStart := frontmatterLen + sec.startOffset
		absEnd := frontmatterLen + sec.endOffset
		chunks = append(chunks, c.splitSection(file, content, absStart, absEnd, sec, now)...)
	}

	return meta, chunks, nil
}

// section is a top-level markdown block run, attributed to the nearest
// preceding heading.
type section struct {
	headerLevel int
	headerTitle string
	headerPath  string
	startOffset int // byte offset into body
	endOffset   int // exclusive
}

// parseSections walks goldmark's block tree and groups consecutive
// top-level blocks under the heading that precedes them.
func (c *MarkdownChunker) parseSections(body []byte) []*section {
	reader := text.NewReader(body)
	doc := c.md.Parser().Parse(reader)

	var sections []*section
	headerStack := make([]string, 7) // index by level 1-6
	var current *section

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		start, end, ok := blockRange(n, body)
		if !ok {
			continue
		}

		if h, isHeading := n.(*gast.Heading); isHeading {
			if current != nil {
				sections = append(sections, current)
			}
			level := h.Level
			title := strings.TrimSpace(strings.TrimLeft(string(body[start:end]), "# \t"))
			headerStack[level] = title
			for i := level + 1; i < len(headerStack); i++ {
				headerStack[i] = ""
			}
			var parts []string
			for i := 1; i <= level; i++ {
				if headerStack[i] != "" {
					parts = append(parts, headerStack[i])
				}
			}
			current = &section{
				headerLevel: level,
				headerTitle: title,
				headerPath:  strings.Join(parts, " > "),
				startOffset: start,
				endOffset:   end,
			}
			continue
		}

		if current == nil {
			current = &section{startOffset: start, endOffset: end}
		}
		current.endOffset = end
	}

	if current != nil {
		sections = append(sections, current)
	}

	return sections
}

// linedBlock is satisfied by every block node built on ast.BaseBlock
// (paragraphs, headings, fenced code, HTML blocks, ...).
type linedBlock interface {
	Lines() *text.Segments
}

// blockRange returns the byte range, within body, spanned by a
// top-level block node's source lines.
func blockRange(n gast.Node, body []byte) (start, end int, ok bool) {
	lb, isLined := n.(linedBlock)
	if !isLined || lb.Lines().Len() == 0 {
		// Container blocks (lists, blockquotes) carry no lines of
		// their own; derive the range from their descendants.
		return containerRange(n, body)
	}
	lines := lb.Lines()
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return first.Start, last.Stop, true
}

func containerRange(n gast.Node, body []byte) (start, end int, ok bool) {
	start, end = -1, -1
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		s, e, childOK := blockRange(c, body)
		if !childOK {
			continue
		}
		if start == -1 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}
	if start == -1 {
		return 0, 0, false
	}
	return start, end, true
}

// splitSection emits one chunk per section, or splits it on paragraph
// boundaries (blank lines) when it exceeds the token budget. Every
// chunk's content is a direct byte slice of the original file, so
// re-extracting via its offsets yields identical text (C1).
func (c *MarkdownChunker) splitSection(file *FileInput, content string, start, end int, sec *section, now time.Time) []*Chunk {
	raw := content[start:end]
	trimmedLeading := len(raw) - len(strings.TrimLeft(raw, "\n"))
	trimmedTrailing := len(raw) - len(strings.TrimRight(raw, "\n \t"))
	trimStart := start + trimmedLeading
	trimEnd := end - trimmedTrailing
	if trimStart >= trimEnd {
		return nil
	}

	if estimateTokens(content[trimStart:trimEnd]) <= c.options.MaxChunkTokens {
		return []*Chunk{c.chunkFromRange(file, content, trimStart, trimEnd, sec.headerPath, sec.headerLevel, sec.headerTitle, now)}
	}

	// Split on blank-line paragraph boundaries within the section,
	// never mid-sentence and never inside a fenced code block (fences
	// are themselves single top-level blocks, so they never straddle
	// a paragraph boundary here).
	paraBreak := regexp.MustCompile(`\n[ \t]*\n`)
	var chunks []*Chunk
	segStart := trimStart
	chunkStart := trimStart

	flush := func(upTo int) {
		if upTo <= chunkStart {
			return
		}
		chunks = append(chunks, c.chunkFromRange(file, content, chunkStart, upTo, sec.headerPath, sec.headerLevel, sec.headerTitle, now))
	}

	for _, loc := range paraBreak.FindAllStringIndex(content[trimStart:trimEnd], -1) {
		boundary := trimStart + loc[0]
		if estimateTokens(content[chunkStart:boundary]) > c.options.MaxChunkTokens {
			flush(segStart)
			chunkStart = segStart
		}
		segStart = trimStart + loc[1]
	}
	flush(trimEnd)

	if len(chunks) == 0 {
		chunks = append(chunks, c.chunkFromRange(file, content, trimStart, trimEnd, sec.headerPath, sec.headerLevel, sec.headerTitle, now))
	}
	return chunks
}

func (c *MarkdownChunker) chunkFromRange(file *FileInput, content string, start, end int, headerPath string, headerLevel int, sectionTitle string, now time.Time) *Chunk {
	coords := ExtractionCoords{Version: CoordsVersion, Format: FormatMarkdown, StartOffset: start, EndOffset: end}
	return &Chunk{
		ID:               generateChunkID(file.Path, coordsKey(coords)),
		FilePath:         file.Path,
		Content:          content[start:end],
		Format:           FormatMarkdown,
		ExtractionCoords: coords,
		Metadata: map[string]string{
			"header_path":   headerPath,
			"header_level":  strconv.Itoa(headerLevel),
			"section_title": sectionTitle,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
