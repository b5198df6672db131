// Package store provides the per-folder persistence adapter: one
// SQLite database file under "<folder>/.folderd/" holding documents,
// chunks, vectors, and derived semantic metadata, plus an in-memory
// HNSW index over the vector rows rehydrated at open time.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the current database schema version. A
// store opened against an older on-disk schema runs the migrations
// between the persisted version and this one; a store opened against
// a newer schema refuses with ErrSchemaVersion rather than guessing at
// forward compatibility.
const CurrentSchemaVersion = 1

// Fingerprint is a document's on-disk identity for change detection:
// (size, mtime, contentHash). It is persisted only in the documents
// table and in the scanner's transient scan results (spec.md §3).
type Fingerprint struct {
	Size        int64
	ModTime     time.Time
	ContentHash string
}

// Document is one indexed file: its identity, its persisted
// fingerprint, and the document-level semantics produced after all of
// its chunks have been embedded.
type Document struct {
	ID                 string
	FolderID           string
	RelativePath       string
	Fingerprint        Fingerprint
	ChunkCount         int
	DocumentEmbedding  []float32
	DocumentKeyPhrases []string
	IndexedAt          time.Time
}

// ChunkRecord is one persisted chunk: its text, its re-extraction
// coordinates (opaque, format-specific JSON carrying a `version`
// field readers must validate), and the semantic metadata attached by
// the enrichment stage.
type ChunkRecord struct {
	ID               string
	DocumentID       string
	Ordinal          int
	Text             string
	TokenCount       int
	ExtractionCoords json.RawMessage
	KeyPhrases       []string
	Topics           []string
	Readability      float64
}

// ChunkWrite is one chunk as submitted to WriteDocument, bundling the
// chunk body, its embedding vector, and its semantic metadata so all
// three land in the same row-set within the single write transaction.
type ChunkWrite struct {
	// ID is the chunk's content-addressable identity, as produced by
	// the chunker (sha256(path + coords)[:16]); the store persists it
	// verbatim rather than minting its own.
	ID               string
	Ordinal          int
	Text             string
	TokenCount       int
	ExtractionCoords json.RawMessage
	Vector           []float32
	KeyPhrases       []string
	Topics           []string
	Readability      float64
}

// DocumentWrite is the atomic unit persisted by WriteDocument: a
// document row, its chunk rows, their vector rows, and the
// document-level semantics, all inside one transaction (spec.md §4.7,
// invariant I3).
type DocumentWrite struct {
	RelativePath       string
	Fingerprint        Fingerprint
	ModelID            string
	Chunks             []ChunkWrite
	DocumentEmbedding  []float32
	DocumentKeyPhrases []string
}

// SearchResult is one hit from SearchSimilar, joining the nearest
// vector back to its owning chunk and document.
type SearchResult struct {
	ChunkID          string
	DocumentID       string
	RelativePath     string
	Ordinal          int
	Text             string
	Score            float32
	ExtractionCoords json.RawMessage
}

// Store is the write-path (and point-lookup) persistence adapter for
// one folder. A single connection is held open for the lifetime of
// the Store; every multi-row write for a document happens inside one
// transaction (spec.md §4.7).
type Store interface {
	// GetDocumentFingerprints returns the last-committed
	// path->fingerprint map, driving the scanner's diff (spec.md §4.2).
	GetDocumentFingerprints(ctx context.Context) (map[string]Fingerprint, error)

	// WriteDocument persists (or re-persists) one document and its
	// chunks/vectors/semantics atomically. Any existing row-set for
	// the same relative path is replaced, so this serves both
	// CreateEmbeddings and UpdateEmbeddings.
	WriteDocument(ctx context.Context, folderID string, in DocumentWrite) error

	// RemoveDocument deletes a document and everything that cascades
	// from it (chunks, vectors, semantics) in one transaction.
	RemoveDocument(ctx context.Context, relativePath string) error

	// GetDocument returns the persisted document row for
	// relativePath, or ErrNotFound if it was never indexed.
	GetDocument(ctx context.Context, relativePath string) (*Document, error)

	// ListDocuments returns every persisted document, ordered by
	// relative path.
	ListDocuments(ctx context.Context) ([]*Document, error)

	// GetChunks returns every chunk of documentID, ordered by ordinal.
	GetChunks(ctx context.Context, documentID string) ([]*ChunkRecord, error)

	// SearchSimilar returns the k nearest chunks to query under
	// modelID, ranked by similarity score (higher is closer).
	SearchSimilar(ctx context.Context, modelID string, query []float32, k int) ([]SearchResult, error)

	// Close releases the connection and the in-memory vector index.
	Close() error
}

// ErrNotFound is returned by point lookups (GetDocument) for a path
// that has never been indexed.
var ErrNotFound = fmt.Errorf("store: not found")

// ErrDimensionMismatch indicates a vector's dimension doesn't match
// the vector index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// VectorStoreConfig configures the in-memory HNSW index a Store
// rehydrates its vectors into at open time.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" (default) or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible HNSW defaults for the
// given embedding dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorResult is a single nearest-neighbor hit from the in-memory
// vector index, keyed by chunk ID.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorIndex is the in-memory ANN structure a Store keeps atop its
// durable vector rows. HNSWStore is the only production
// implementation.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	Count() int
	Close() error
}
