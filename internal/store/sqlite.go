package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// schema is the full set of tables a fresh database is migrated to.
// Schema changes require a bumped CurrentSchemaVersion and, if they
// affect persisted extraction coordinates, a bumped coords version in
// internal/chunk as well (spec.md §6).
const schema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                   TEXT PRIMARY KEY,
	folder_id            TEXT NOT NULL,
	relative_path        TEXT NOT NULL UNIQUE,
	size                 INTEGER NOT NULL,
	mtime                INTEGER NOT NULL,
	content_hash         TEXT NOT NULL,
	chunk_count          INTEGER NOT NULL DEFAULT 0,
	document_embedding   BLOB,
	document_key_phrases TEXT,
	indexed_at           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id                TEXT PRIMARY KEY,
	document_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal           INTEGER NOT NULL,
	text              TEXT NOT NULL,
	token_count       INTEGER NOT NULL,
	extraction_coords TEXT NOT NULL,
	key_phrases       TEXT,
	topics            TEXT,
	readability       REAL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS vectors (
	chunk_id TEXT NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
	model_id TEXT NOT NULL,
	vector   BLOB NOT NULL,
	PRIMARY KEY (chunk_id, model_id)
);
`

// SQLiteStore is the production Store implementation: one
// modernc.org/sqlite connection held open for the lifetime of the
// Store (spec.md §4.7 "single connection per folder, per indexing
// cycle"), plus an in-memory HNSWStore rehydrated from the vectors
// table at Open.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	vec    *HNSWStore
	vecCfg VectorStoreConfig
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) the SQLite database at path,
// applies pending migrations, and rehydrates the in-memory vector
// index from the persisted vector rows. vecCfg.Dimensions must match
// the folder's configured embedding model.
func Open(path string, vecCfg VectorStoreConfig) (*SQLiteStore, error) {
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, folderrerrors.IOErr("create store directory", err)
		}
	}

	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, folderrerrors.IOErr("open store database", err)
	}
	// A single connection enforces spec.md §4.7's "single connection
	// per folder" and sidesteps modernc.org/sqlite's lack of
	// concurrent-writer support.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, folderrerrors.IOErr("configure store pragmas", err)
		}
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	vec, err := NewHNSWStore(vecCfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, vec: vec, vecCfg: vecCfg}
	if err := s.rehydrateVectors(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate brings a database from whatever schema version it last
// persisted (0 for a fresh file) up to CurrentSchemaVersion. A
// persisted version newer than this binary understands is a hard
// error: reading ahead of a known schema risks silently
// misinterpreting columns.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return folderrerrors.IOErr("create store schema", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return folderrerrors.IOErr("read schema version", err)
	}
	if count == 0 {
		_, err := db.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, CurrentSchemaVersion)
		if err != nil {
			return folderrerrors.IOErr("initialize schema version", err)
		}
		return nil
	}

	var version int
	if err := db.QueryRow(`SELECT version FROM schema_meta LIMIT 1`).Scan(&version); err != nil {
		return folderrerrors.IOErr("read schema version", err)
	}
	if version > CurrentSchemaVersion {
		return folderrerrors.New(folderrerrors.ErrCodeSchemaVersion,
			fmt.Sprintf("store schema version %d is newer than this binary understands (%d)", version, CurrentSchemaVersion), nil)
	}
	// No migrations beyond version 1 exist yet; future schema bumps
	// add numbered steps here.
	return nil
}

// rehydrateVectors loads every persisted vector into the in-memory
// HNSW index. Called once at Open; a folder with many documents pays
// this cost once per daemon restart, not per query.
func (s *SQLiteStore) rehydrateVectors() error {
	ids, vecs, err := s.loadPersistedVectors()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.vec.Add(context.Background(), ids, vecs)
}

// loadPersistedVectors reads every vector row matching the store's
// configured dimensions. Shared by rehydrateVectors (at Open) and the
// Compactor (on a background rebuild).
func (s *SQLiteStore) loadPersistedVectors() ([]string, [][]float32, error) {
	rows, err := s.db.Query(`SELECT chunk_id, vector FROM vectors`)
	if err != nil {
		return nil, nil, folderrerrors.IOErr("read persisted vectors", err)
	}
	defer rows.Close()

	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, folderrerrors.IOErr("scan persisted vector", err)
		}
		v := decodeVector(blob)
		if len(v) != s.vecCfg.Dimensions {
			continue // stale dimension from a prior model; skip rather than corrupt the index
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, folderrerrors.IOErr("iterate persisted vectors", err)
	}
	return ids, vecs, nil
}

// Compact rebuilds the in-memory HNSW index from the durable vectors
// table and hot-swaps it in, dropping every lazily-deleted orphan
// node accumulated by prior Delete calls (spec.md §4.7).
func (s *SQLiteStore) Compact(ctx context.Context) error {
	ids, vecs, err := s.loadPersistedVectors()
	if err != nil {
		return err
	}

	fresh, err := NewHNSWStore(s.vecCfg)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := fresh.Add(ctx, ids, vecs); err != nil {
			_ = fresh.Close()
			return err
		}
	}

	s.mu.Lock()
	old := s.vec
	s.vec = fresh
	s.mu.Unlock()

	return old.Close()
}

// VectorStats exposes the live HNSW index's orphan bookkeeping so a
// Compactor can decide whether a rebuild is worth running.
func (s *SQLiteStore) VectorStats() IndexStats {
	s.mu.Lock()
	vec := s.vec
	s.mu.Unlock()
	return vec.Stats()
}

// GetDocumentFingerprints implements Store.
func (s *SQLiteStore) GetDocumentFingerprints(ctx context.Context) (map[string]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT relative_path, size, mtime, content_hash FROM documents`)
	if err != nil {
		return nil, folderrerrors.IOErr("read document fingerprints", err)
	}
	defer rows.Close()

	out := make(map[string]Fingerprint)
	for rows.Next() {
		var path, hash string
		var size, mtimeUnix int64
		if err := rows.Scan(&path, &size, &mtimeUnix, &hash); err != nil {
			return nil, folderrerrors.IOErr("scan document fingerprint", err)
		}
		out[path] = Fingerprint{Size: size, ModTime: time.Unix(0, mtimeUnix).UTC(), ContentHash: hash}
	}
	return out, rows.Err()
}

// WriteDocument implements Store. It replaces any existing row-set for
// the same relative path and the whole operation is one transaction
// (spec.md §4.7 invariant): a reader never observes a partially
// written document.
func (s *SQLiteStore) WriteDocument(ctx context.Context, folderID string, in DocumentWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return folderrerrors.IOErr("begin write transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE relative_path = ?`, in.RelativePath).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return folderrerrors.IOErr("look up existing document", err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, existingID); err != nil {
			return folderrerrors.IOErr("replace existing document", err)
		}
	}

	docID := documentID(in.RelativePath)
	keyPhrases, err := json.Marshal(in.DocumentKeyPhrases)
	if err != nil {
		return folderrerrors.InternalError("marshal document key phrases", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, folder_id, relative_path, size, mtime, content_hash, chunk_count, document_embedding, document_key_phrases, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		docID, folderID, in.RelativePath, in.Fingerprint.Size, in.Fingerprint.ModTime.UnixNano(), in.Fingerprint.ContentHash,
		len(in.Chunks), encodeVector(in.DocumentEmbedding), string(keyPhrases), now().UnixNano())
	if err != nil {
		return folderrerrors.IOErr("insert document", err)
	}

	for _, c := range in.Chunks {
		if c.ID == "" {
			return folderrerrors.New(folderrerrors.ErrCodeInvalidInput, "chunk write is missing its content-addressable ID", nil)
		}
		kp, err := json.Marshal(c.KeyPhrases)
		if err != nil {
			return folderrerrors.InternalError("marshal chunk key phrases", err)
		}
		topics, err := json.Marshal(c.Topics)
		if err != nil {
			return folderrerrors.InternalError("marshal chunk topics", err)
		}
		coords := c.ExtractionCoords
		if len(coords) == 0 {
			coords = json.RawMessage(`{}`)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, ordinal, text, token_count, extraction_coords, key_phrases, topics, readability)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, docID, c.Ordinal, c.Text, c.TokenCount, string(coords), string(kp), string(topics), c.Readability)
		if err != nil {
			return folderrerrors.IOErr("insert chunk", err)
		}

		if len(c.Vector) > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO vectors (chunk_id, model_id, vector) VALUES (?, ?, ?)`,
				c.ID, in.ModelID, encodeVector(c.Vector))
			if err != nil {
				return folderrerrors.IOErr("insert vector", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return folderrerrors.IOErr("commit write transaction", err)
	}
	committed = true

	ids := make([]string, 0, len(in.Chunks))
	vecs := make([][]float32, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		if len(c.Vector) > 0 {
			ids = append(ids, c.ID)
			vecs = append(vecs, c.Vector)
		}
	}
	if len(ids) > 0 {
		if err := s.vec.Add(ctx, ids, vecs); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDocument implements Store.
func (s *SQLiteStore) RemoveDocument(ctx context.Context, relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return folderrerrors.IOErr("begin remove transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var docID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE relative_path = ?`, relativePath).Scan(&docID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return folderrerrors.IOErr("look up document to remove", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, docID)
	if err != nil {
		return folderrerrors.IOErr("list chunks to remove", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return folderrerrors.IOErr("scan chunk id", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return folderrerrors.IOErr("delete document", err)
	}
	if err := tx.Commit(); err != nil {
		return folderrerrors.IOErr("commit remove transaction", err)
	}
	committed = true

	if len(chunkIDs) > 0 {
		return s.vec.Delete(ctx, chunkIDs)
	}
	return nil
}

// GetDocument implements Store.
func (s *SQLiteStore) GetDocument(ctx context.Context, relativePath string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, folder_id, relative_path, size, mtime, content_hash, chunk_count, document_embedding, document_key_phrases, indexed_at
		FROM documents WHERE relative_path = ?`, relativePath)
	return scanDocument(row)
}

// ListDocuments implements Store.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, folder_id, relative_path, size, mtime, content_hash, chunk_count, document_embedding, document_key_phrases, indexed_at
		FROM documents ORDER BY relative_path`)
	if err != nil {
		return nil, folderrerrors.IOErr("list documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetChunks implements Store.
func (s *SQLiteStore) GetChunks(ctx context.Context, documentID string) ([]*ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, ordinal, text, token_count, extraction_coords, key_phrases, topics, readability
		FROM chunks WHERE document_id = ? ORDER BY ordinal`, documentID)
	if err != nil {
		return nil, folderrerrors.IOErr("read chunks", err)
	}
	defer rows.Close()

	var chunks []*ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		var coords, keyPhrases, topics string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.TokenCount, &coords, &keyPhrases, &topics, &c.Readability); err != nil {
			return nil, folderrerrors.IOErr("scan chunk", err)
		}
		c.ExtractionCoords = json.RawMessage(coords)
		_ = json.Unmarshal([]byte(keyPhrases), &c.KeyPhrases)
		_ = json.Unmarshal([]byte(topics), &c.Topics)
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// SearchSimilar implements Store by querying the in-memory HNSW index
// and joining the resulting chunk IDs back to their owning document.
// modelID is currently advisory: invariant I2 guarantees every vector
// in a folder's index shares the folder's one resident model, so the
// in-memory index itself is never mixed-model.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, modelID string, query []float32, k int) ([]SearchResult, error) {
	s.mu.Lock()
	vec := s.vec
	s.mu.Unlock()

	hits, err := vec.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		var documentID, relPath, text, coords string
		var ordinal int
		row := s.db.QueryRowContext(ctx, `
			SELECT c.document_id, d.relative_path, c.ordinal, c.text, c.extraction_coords
			FROM chunks c JOIN documents d ON d.id = c.document_id
			WHERE c.id = ?`, hit.ID)
		if err := row.Scan(&documentID, &relPath, &ordinal, &text, &coords); err != nil {
			if err == sql.ErrNoRows {
				continue // vector index has a stale entry for a chunk removed since rehydration
			}
			return nil, folderrerrors.IOErr("join search hit to chunk", err)
		}
		results = append(results, SearchResult{
			ChunkID:          hit.ID,
			DocumentID:       documentID,
			RelativePath:     relPath,
			Ordinal:          ordinal,
			Text:             text,
			Score:            hit.Score,
			ExtractionCoords: json.RawMessage(coords),
		})
	}
	return results, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.vec.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	var mtimeUnix, indexedAtUnix int64
	var embedding []byte
	var keyPhrases string
	err := row.Scan(&d.ID, &d.FolderID, &d.RelativePath, &d.Fingerprint.Size, &mtimeUnix, &d.Fingerprint.ContentHash,
		&d.ChunkCount, &embedding, &keyPhrases, &indexedAtUnix)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, folderrerrors.IOErr("scan document", err)
	}
	d.Fingerprint.ModTime = time.Unix(0, mtimeUnix).UTC()
	d.IndexedAt = time.Unix(0, indexedAtUnix).UTC()
	d.DocumentEmbedding = decodeVector(embedding)
	_ = json.Unmarshal([]byte(keyPhrases), &d.DocumentKeyPhrases)
	return &d, nil
}

func scanDocumentRow(rows *sql.Rows) (*Document, error) {
	var d Document
	var mtimeUnix, indexedAtUnix int64
	var embedding []byte
	var keyPhrases string
	err := rows.Scan(&d.ID, &d.FolderID, &d.RelativePath, &d.Fingerprint.Size, &mtimeUnix, &d.Fingerprint.ContentHash,
		&d.ChunkCount, &embedding, &keyPhrases, &indexedAtUnix)
	if err != nil {
		return nil, folderrerrors.IOErr("scan document", err)
	}
	d.Fingerprint.ModTime = time.Unix(0, mtimeUnix).UTC()
	d.IndexedAt = time.Unix(0, indexedAtUnix).UTC()
	d.DocumentEmbedding = decodeVector(embedding)
	_ = json.Unmarshal([]byte(keyPhrases), &d.DocumentKeyPhrases)
	return &d, nil
}

// documentID derives a document's stable identity from its relative
// path alone, so re-indexing the same path (CreateEmbeddings or
// UpdateEmbeddings) always replaces the same row.
func documentID(relativePath string) string {
	sum := sha256.Sum256([]byte(relativePath))
	return hex.EncodeToString(sum[:])[:16]
}

// encodeVector packs a []float32 into a little-endian byte BLOB.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian byte BLOB into a []float32.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// now is a seam so tests could stub the clock; production code always
// uses wall-clock time.
var now = time.Now
