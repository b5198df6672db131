package chunk

import (
	"context"
	"path/filepath"
	"strings"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// Registry dispatches a file to the Chunker registered for its
// extension.
type Registry struct {
	byExt map[string]Chunker
}

// NewRegistry builds a registry covering every format this daemon
// understands.
func NewRegistry() *Registry {
	chunkers := []Chunker{
		NewTextChunker(),
		NewMarkdownChunker(),
		NewPDFChunker(),
		NewDOCXChunker(),
		NewXLSXChunker(),
		NewPPTXChunker(),
	}

	r := &Registry{byExt: make(map[string]Chunker)}
	for _, c := range chunkers {
		for _, ext := range c.SupportedExtensions() {
			r.byExt[ext] = c
		}
	}
	return r
}

// SupportedExtensions returns every extension the registry can chunk.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// ForPath returns the chunker registered for path's extension, or
// false if the format is unsupported.
func (r *Registry) ForPath(path string) (Chunker, bool) {
	c, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return c, ok
}

// Chunk dispatches file to the chunker registered for its extension.
// An unrecognized extension is an `unsupported` classification, not a
// silent skip, so the caller can surface it as a per-file task failure
// while the folder's other files continue.
func (r *Registry) Chunk(ctx context.Context, file *FileInput) (*DocumentMeta, []*Chunk, error) {
	c, ok := r.ForPath(file.Path)
	if !ok {
		return nil, nil, folderrerrors.New(folderrerrors.ErrCodeUnsupportedExt,
			"unsupported file extension: "+filepath.Ext(file.Path), nil)
	}
	return c.Chunk(ctx, file)
}
