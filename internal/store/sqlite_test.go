package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dims int) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "folder.db"), DefaultVectorStoreConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleWrite(path string, vec []float32) DocumentWrite {
	coords, _ := json.Marshal(map[string]any{"version": 1, "startOffset": 0, "endOffset": 10})
	return DocumentWrite{
		RelativePath: path,
		Fingerprint:  Fingerprint{Size: 10, ModTime: time.Unix(1000, 0).UTC(), ContentHash: "abc123"},
		ModelID:      "model-a",
		Chunks: []ChunkWrite{
			{
				ID:               "chunk-" + path + "-0",
				Ordinal:          0,
				Text:             "hello world",
				TokenCount:       2,
				ExtractionCoords: coords,
				Vector:           vec,
				KeyPhrases:       []string{"hello world"},
				Topics:           []string{"greeting"},
				Readability:      55,
			},
		},
		DocumentEmbedding:  vec,
		DocumentKeyPhrases: []string{"hello world"},
	}
}

func TestWriteDocumentThenGetDocumentRoundTrips(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	err := s.WriteDocument(ctx, "folder-1", sampleWrite("a.txt", []float32{1, 0, 0}))
	require.NoError(t, err)

	doc, err := s.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", doc.FolderID)
	assert.Equal(t, "a.txt", doc.RelativePath)
	assert.Equal(t, 1, doc.ChunkCount)
	assert.Equal(t, "abc123", doc.Fingerprint.ContentHash)
	assert.Equal(t, []string{"hello world"}, doc.DocumentKeyPhrases)
	require.Len(t, doc.DocumentEmbedding, 3)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, []string{"greeting"}, chunks[0].Topics)
	assert.InDelta(t, 55, chunks[0].Readability, 0.001)

	var coords map[string]any
	require.NoError(t, json.Unmarshal(chunks[0].ExtractionCoords, &coords))
	assert.Equal(t, float64(1), coords["version"])
}

func TestWriteDocumentIsAtomicNoPartialDocumentOnReplace(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("a.txt", []float32{1, 0, 0})))

	// Re-index with two chunks: old single-chunk row-set must be
	// entirely replaced, never merged.
	w := sampleWrite("a.txt", []float32{0, 1, 0})
	w.Chunks = append(w.Chunks, ChunkWrite{
		ID: "chunk-a.txt-1", Ordinal: 1, Text: "second chunk", TokenCount: 2,
		ExtractionCoords: json.RawMessage(`{"version":1}`),
		Vector:           []float32{0, 0, 1},
	})
	require.NoError(t, s.WriteDocument(ctx, "f1", w))

	doc, err := s.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ChunkCount)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestRemoveDocumentCascadesChunksAndVectors(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("a.txt", []float32{1, 0, 0})))
	doc, err := s.GetDocument(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, s.RemoveDocument(ctx, "a.txt"))

	_, err = s.GetDocument(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	results, err := s.SearchSimilar(ctx, "model-a", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetDocumentFingerprintsReflectsLastCommittedState(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("a.txt", []float32{1, 0, 0})))
	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("b.txt", []float32{0, 1, 0})))

	fps, err := s.GetDocumentFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 2)
	assert.Equal(t, "abc123", fps["a.txt"].ContentHash)

	require.NoError(t, s.RemoveDocument(ctx, "a.txt"))
	fps, err = s.GetDocumentFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 1)
	_, ok := fps["a.txt"]
	assert.False(t, ok)
}

func TestSearchSimilarRanksNearestFirst(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("near.txt", []float32{1, 0, 0})))
	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("far.txt", []float32{0, 0, 1})))

	results, err := s.SearchSimilar(ctx, "model-a", []float32{0.9, 0.1, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "near.txt", results[0].RelativePath)
}

func TestListDocumentsOrderedByPath(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("b.txt", []float32{0, 1, 0})))
	require.NoError(t, s.WriteDocument(ctx, "f1", sampleWrite("a.txt", []float32{1, 0, 0})))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].RelativePath)
	assert.Equal(t, "b.txt", docs[1].RelativePath)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := openTestStore(t, 3)
	_, err := s.GetDocument(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyDocumentZeroChunksNoVectors(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	w := DocumentWrite{
		RelativePath: "empty.txt",
		Fingerprint:  Fingerprint{Size: 0, ContentHash: "e3b0c4"},
		ModelID:      "model-a",
	}
	require.NoError(t, s.WriteDocument(ctx, "f1", w))

	doc, err := s.GetDocument(ctx, "empty.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.ChunkCount)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
