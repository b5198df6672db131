package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foldermcp/folderd/internal/chunk"
	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/embed"
	"github.com/foldermcp/folderd/internal/lifecycle"
	"github.com/foldermcp/folderd/internal/orchestrator"
	"github.com/foldermcp/folderd/internal/store"
)

// folderID derives a stable identifier for a folder from its absolute
// path, so the same folder resolves to the same ID across CLI
// invocations and daemon restarts without a separate persisted mapping.
func folderID(absRoot string) string {
	sum := sha256.Sum256([]byte(absRoot))
	return hex.EncodeToString(sum[:])[:16]
}

// newCoordinator builds the process-wide embedding coordinator from the
// resolved configuration's embeddings section.
func newCoordinator(cfg *config.Config) (*embed.Coordinator, error) {
	if len(cfg.Embeddings.WorkerCommand) == 0 {
		return nil, fmt.Errorf("embeddings.worker_command is not configured")
	}
	return embed.Get(embed.Config{
		WorkerCommand:  cfg.Embeddings.WorkerCommand[0],
		WorkerArgs:     cfg.Embeddings.WorkerCommand[1:],
		CapabilityPath: cfg.Embeddings.CapabilitiesFile,
		BatchSize:      cfg.Embeddings.BatchSize,
		RequestTimeout: cfg.Embeddings.RequestTimeout,
	})
}

// folderStorePath returns the on-disk SQLite path for a registered
// folder, one file per folder under the configured data directory.
func folderStorePath(cfg *config.Config, id string) string {
	return filepath.Join(cfg.Store.DataDir, id+".db")
}

// openFolderStore resolves modelID's vector dimension from the
// coordinator's capability table and opens (or creates) the folder's
// store at its conventional path.
func openFolderStore(cfg *config.Config, coord *embed.Coordinator, id, modelID string) (store.Store, error) {
	caps, err := coord.Capabilities(modelID)
	if err != nil {
		return nil, fmt.Errorf("resolve model capabilities: %w", err)
	}

	path := folderStorePath(cfg, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return store.Open(path, store.DefaultVectorStoreConfig(caps.Dimension))
}

// registerAndStart registers rootDir with mgr under modelID, opening its
// store and attaching a freshly started lifecycle.Machine. It returns
// the machine so callers can wait on Progress() or Dispose() it.
func registerAndStart(ctx context.Context, cfg *config.Config, mgr *orchestrator.Manager, coord *embed.Coordinator, rootDir, modelID string) (string, *lifecycle.Machine, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", nil, fmt.Errorf("resolve folder path: %w", err)
	}
	id := folderID(absRoot)

	if modelID == "" {
		modelID = cfg.Embeddings.ModelID
	}
	if modelID == "" {
		return "", nil, fmt.Errorf("no embedding model configured (set embeddings.model_id)")
	}

	st, err := openFolderStore(cfg, coord, id, modelID)
	if err != nil {
		return "", nil, err
	}

	mgr.RegisterFolder(orchestrator.FolderConfig{
		FolderID:        id,
		RootDir:         absRoot,
		ModelID:         modelID,
		ExcludePatterns: cfg.Folders.Exclude,
		MaxFileSize:     cfg.Folders.MaxFileSizeBytes,
		Workers:         cfg.Concurrency.PerFolderTasks,
	}, st)

	machine := lifecycle.NewMachine(id, mgr, mgr, lifecycle.DefaultRetryPolicy(), cfg.Concurrency.PerFolderTasks)
	mgr.AttachMachine(id, machine)
	machine.Start(ctx)

	return id, machine, nil
}

// newManager builds a Manager sharing one scanner.Scanner and
// chunk.Registry across every folder registered against it in this
// process.
func newManager(coord *embed.Coordinator) (*orchestrator.Manager, error) {
	return orchestrator.NewManager(nil, chunk.NewRegistry(), coord)
}
