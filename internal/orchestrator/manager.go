// Package orchestrator wires the scanner, chunker, embedding
// coordinator, semantic enricher, and storage adapter together into
// the lifecycle.Scanner and lifecycle.Executor a folder's
// lifecycle.Machine drives (spec.md §4.1-§4.7). One Manager is shared
// across every registered folder's Machine; it resolves a folder ID
// (or a task's FolderID) to that folder's own resources.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/foldermcp/folderd/internal/chunk"
	"github.com/foldermcp/folderd/internal/embed"
	folderrerrors "github.com/foldermcp/folderd/internal/errors"
	"github.com/foldermcp/folderd/internal/lifecycle"
	"github.com/foldermcp/folderd/internal/scanner"
	"github.com/foldermcp/folderd/internal/semantic"
	"github.com/foldermcp/folderd/internal/store"
)

// Embedder is the subset of *embed.Coordinator the orchestrator
// depends on, narrowed to an interface so tests supply a fake rather
// than spawning a worker subprocess. *embed.Coordinator and
// semantic.Extractor are both satisfied by the same concrete type.
type Embedder interface {
	Embed(ctx context.Context, modelID string, texts []string, class embed.RequestClass) ([][]float32, error)
	semantic.Extractor
}

// FolderConfig is the per-folder configuration a Manager needs to scan
// and index it. It corresponds to one entry of config's Folders list
// (spec.md §6).
type FolderConfig struct {
	FolderID        string
	RootDir         string
	ModelID         string
	ExcludePatterns []string
	MaxFileSize     int64
	Workers         int
	FollowSymlinks  bool
}

// Folder bundles one registered folder's config with its own storage
// adapter and enrichment state. The TopicAssigner embedded in enricher
// is scoped to this folder, per semantic.NewEnricher's contract.
type Folder struct {
	cfg      FolderConfig
	store    store.Store
	enricher *semantic.Enricher

	// machine is the folder's lifecycle.Machine, attached separately
	// from RegisterFolder since the Machine is constructed with this
	// Manager as its Scanner/Executor and so must come into being
	// after the Folder it reports on. Nil until AttachMachine is
	// called; FolderStatus degrades gracefully when it is.
	machine *lifecycle.Machine
}

// Manager implements lifecycle.Scanner and lifecycle.Executor for
// every folder registered with it. It holds the one process-wide
// scanner.Scanner (its exclude-pattern cache benefits from being
// shared) and the one process-wide embedding Embedder, per spec.md
// §4.5's singleton-worker design.
type Manager struct {
	scan     *scanner.Scanner
	chunks   *chunk.Registry
	embedder Embedder

	mu      sync.RWMutex
	folders map[string]*Folder
}

// NewManager constructs a Manager. scan may be nil, in which case a
// fresh scanner.Scanner is created.
func NewManager(scan *scanner.Scanner, chunks *chunk.Registry, embedder Embedder) (*Manager, error) {
	if scan == nil {
		var err error
		scan, err = scanner.New()
		if err != nil {
			return nil, err
		}
	}
	if chunks == nil {
		chunks = chunk.NewRegistry()
	}
	return &Manager{
		scan:     scan,
		chunks:   chunks,
		embedder: embedder,
		folders:  make(map[string]*Folder),
	}, nil
}

// RegisterFolder adds (or replaces) a folder's resources. st is the
// folder's own Store, typically opened from "<cfg.RootDir>/.folderd/".
func (m *Manager) RegisterFolder(cfg FolderConfig, st store.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[cfg.FolderID] = &Folder{
		cfg:      cfg,
		store:    st,
		enricher: semantic.NewEnricher(m.embedder),
	}
}

// AttachMachine associates folderID's lifecycle.Machine with its
// already-registered Folder, so FolderStatus and ListFolders can report
// live progress. A no-op if folderID was never registered.
func (m *Manager) AttachMachine(folderID string, machine *lifecycle.Machine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.folders[folderID]; ok {
		f.machine = machine
	}
}

// UnregisterFolder drops a folder's resources, disposing its machine
// and closing its store. Returns the store's close error, if any.
func (m *Manager) UnregisterFolder(folderID string) error {
	m.mu.Lock()
	f, ok := m.folders[folderID]
	delete(m.folders, folderID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if f.machine != nil {
		f.machine.Dispose()
	}
	return f.store.Close()
}

// Close disposes every registered folder's machine and closes its
// store, for clean daemon shutdown. Errors from individual folders are
// joined rather than short-circuited, so one failing store doesn't
// prevent the rest from closing.
func (m *Manager) Close() error {
	m.mu.Lock()
	folders := make([]*Folder, 0, len(m.folders))
	for _, f := range m.folders {
		folders = append(folders, f)
	}
	m.folders = make(map[string]*Folder)
	m.mu.Unlock()

	var errs []error
	for _, f := range folders {
		if f.machine != nil {
			f.machine.Dispose()
		}
		if err := f.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// folder returns the registered Folder for folderID, or an internal
// error if it was never registered (or was unregistered mid-flight --
// a task outliving its folder's disposal, which Dispose's cancel
// should prevent in practice).
func (m *Manager) folder(folderID string) (*Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.folders[folderID]
	if !ok {
		return nil, folderrerrors.InternalError("folder not registered: "+folderID, nil)
	}
	return f, nil
}

// absPath resolves task.Path (folder-relative, slash-separated) to an
// absolute on-disk path under folder's root.
func absPath(f *Folder, relPath string) string {
	return filepath.Join(f.cfg.RootDir, filepath.FromSlash(relPath))
}

// fingerprintFile computes a store.Fingerprint for an on-disk file by
// stat + full-content hash. Unlike the scanner's walk, this never
// reuses a cached hash: Execute runs once per changed file, so the
// cost of one fresh hash here is the cost of certainty about what was
// actually just indexed.
func fingerprintFile(absPath string) (store.Fingerprint, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return store.Fingerprint{}, folderrerrors.IOErr("open file for fingerprinting", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return store.Fingerprint{}, folderrerrors.IOErr("stat file for fingerprinting", err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return store.Fingerprint{}, folderrerrors.IOErr("hash file contents", err)
	}

	return store.Fingerprint{
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// meanVector returns the element-wise mean of vectors, or nil if there
// are none. Used to derive a document-level embedding from its
// chunks' vectors when no dedicated whole-document embedding is
// computed.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i, val := range v {
			sum[i] += float64(val)
		}
	}
	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	return mean
}
