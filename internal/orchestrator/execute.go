package orchestrator

import (
	"context"
	"encoding/json"
	"os"

	"github.com/foldermcp/folderd/internal/chunk"
	"github.com/foldermcp/folderd/internal/embed"
	folderrerrors "github.com/foldermcp/folderd/internal/errors"
	"github.com/foldermcp/folderd/internal/lifecycle"
	"github.com/foldermcp/folderd/internal/store"
)

// maxDocumentKeyPhrases bounds how many deduplicated key phrases are
// rolled up from a document's chunks into its document-level summary.
const maxDocumentKeyPhrases = 10

// Execute implements lifecycle.Executor. It applies one task's
// embedding create/update/remove operation against the folder's
// store, running chunking, embedding, and semantic enrichment inline
// for create/update (spec.md §4.7, invariant I3: all of a document's
// rows land in one transaction).
func (m *Manager) Execute(ctx context.Context, task lifecycle.Task) error {
	f, err := m.folder(task.FolderID)
	if err != nil {
		return err
	}

	if task.Operation == lifecycle.OpRemoveEmbeddings {
		return f.store.RemoveDocument(ctx, task.Path)
	}

	return m.indexDocument(ctx, f, task.Path)
}

// indexDocument chunks, embeds, and enriches one file, then persists
// the whole result in a single store write. Re-running it for a path
// already indexed (the update-embeddings case) replaces that
// document's prior row-set atomically.
func (m *Manager) indexDocument(ctx context.Context, f *Folder, relPath string) error {
	abs := absPath(f, relPath)

	content, err := os.ReadFile(abs)
	if err != nil {
		return folderrerrors.IOErr("read document for indexing", err)
	}

	fp, err := fingerprintFile(abs)
	if err != nil {
		return err
	}

	_, chunks, err := m.chunks.Chunk(ctx, &chunk.FileInput{
		Path:    relPath,
		AbsPath: abs,
		Content: content,
	})
	if err != nil {
		return err
	}

	writes := make([]store.ChunkWrite, len(chunks))
	vectors := make([][]float32, len(chunks))

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}

		vectors, err = m.embedder.Embed(ctx, f.cfg.ModelID, texts, embed.ClassIndexing)
		if err != nil {
			return err
		}
		if len(vectors) != len(chunks) {
			return folderrerrors.New(folderrerrors.ErrCodeDimensionMismatch,
				"embedding worker returned a different vector count than chunks submitted", nil)
		}

		for i, c := range chunks {
			coords, err := json.Marshal(c.ExtractionCoords)
			if err != nil {
				return folderrerrors.InternalError("encode extraction coordinates", err)
			}

			enriched, err := f.enricher.Enrich(ctx, f.cfg.ModelID, c.Content, vectors[i])
			if err != nil {
				return err
			}

			writes[i] = store.ChunkWrite{
				ID:               c.ID,
				Ordinal:          i,
				Text:             c.Content,
				TokenCount:       len(c.Content) / chunk.TokensPerChar,
				ExtractionCoords: coords,
				Vector:           vectors[i],
				KeyPhrases:       enriched.KeyPhrases,
				Topics:           enriched.Topics,
				Readability:      enriched.Readability,
			}
		}
	}

	return f.store.WriteDocument(ctx, f.cfg.FolderID, store.DocumentWrite{
		RelativePath: relPath,
		Fingerprint:  fp,
		ModelID:      f.cfg.ModelID,
		Chunks:       writes,
		DocumentEmbedding:  meanVector(vectors),
		DocumentKeyPhrases: rollUpKeyPhrases(writes),
	})
}

// rollUpKeyPhrases deduplicates key phrases across a document's chunks
// in first-seen order, capped at maxDocumentKeyPhrases.
func rollUpKeyPhrases(writes []store.ChunkWrite) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxDocumentKeyPhrases)
	for _, w := range writes {
		for _, p := range w.KeyPhrases {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
			if len(out) >= maxDocumentKeyPhrases {
				return out
			}
		}
	}
	return out
}
