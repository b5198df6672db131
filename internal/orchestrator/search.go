package orchestrator

import (
	"context"

	"github.com/foldermcp/folderd/internal/embed"
	"github.com/foldermcp/folderd/internal/store"
)

// Search embeds query under folderID's configured model and returns the
// nearest chunks from that folder's store, ranked by similarity. It is
// the read path the MCP and daemon search surfaces both call through
// (spec.md §6's "search" verb).
func (m *Manager) Search(ctx context.Context, folderID, query string, limit int) ([]store.SearchResult, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return nil, err
	}

	vecs, err := m.embedder.Embed(ctx, f.cfg.ModelID, []string{query}, embed.ClassInteractive)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	return f.store.SearchSimilar(ctx, f.cfg.ModelID, vecs[0], limit)
}

// ListDocuments returns every document folderID has indexed.
func (m *Manager) ListDocuments(ctx context.Context, folderID string) ([]*store.Document, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return nil, err
	}
	return f.store.ListDocuments(ctx)
}

// GetDocument returns one document's record by its folder-relative path.
func (m *Manager) GetDocument(ctx context.Context, folderID, relativePath string) (*store.Document, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return nil, err
	}
	return f.store.GetDocument(ctx, relativePath)
}

// GetChunks returns every chunk of documentID, ordered by ordinal.
func (m *Manager) GetChunks(ctx context.Context, folderID, documentID string) ([]*store.ChunkRecord, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return nil, err
	}
	return f.store.GetChunks(ctx, documentID)
}

// FolderRoot returns folderID's root directory, for resolving a
// document's absolute on-disk path.
func (m *Manager) FolderRoot(folderID string) (string, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return "", err
	}
	return f.cfg.RootDir, nil
}

// FolderStatus is a snapshot of one registered folder's identity and
// lifecycle progress, as reported by the daemon's folder_status verb
// and the MCP folder_status/list_folders tools.
type FolderStatus struct {
	FolderID       string
	RootPath       string
	State          string
	DocumentsTotal int
	PendingTasks   int
	LastError      string
}

// FolderStatus reports folderID's current state. DocumentsTotal counts
// what has actually been persisted to the store; State/PendingTasks/
// LastError come from the folder's lifecycle.Machine if one has been
// attached via AttachMachine, and read as zero values otherwise.
func (m *Manager) FolderStatus(ctx context.Context, folderID string) (FolderStatus, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return FolderStatus{}, err
	}

	status := FolderStatus{FolderID: folderID, RootPath: f.cfg.RootDir}

	docs, err := f.store.ListDocuments(ctx)
	if err != nil {
		return FolderStatus{}, err
	}
	status.DocumentsTotal = len(docs)

	if f.machine != nil {
		snap := f.machine.Progress()
		status.State = string(snap.Phase)
		status.PendingTasks = snap.Total - snap.Done - snap.Failed
		status.LastError = snap.ErrorMessage
	}

	return status, nil
}

// ListFolders reports FolderStatus for every registered folder.
func (m *Manager) ListFolders(ctx context.Context) ([]FolderStatus, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.folders))
	for id := range m.folders {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	statuses := make([]FolderStatus, 0, len(ids))
	for _, id := range ids {
		st, err := m.FolderStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
