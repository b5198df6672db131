package orchestrator

import (
	"context"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
	"github.com/foldermcp/folderd/internal/lifecycle"
	"github.com/foldermcp/folderd/internal/scanner"
)

// Scan implements lifecycle.Scanner. It walks the folder, diffs the
// result against the store's last-committed fingerprints (spec.md
// §4.2), and returns one task per added/modified/removed path.
// Per-file errors surfaced by the walk (an unreadable file, a hash
// failure) are dropped from the result set rather than failing the
// whole scan; only a structural failure -- the root itself unreadable
// -- returns an error, which the caller (lifecycle.Machine) treats as
// fatal and moves the folder to StateError.
func (m *Manager) Scan(ctx context.Context, folderID string) ([]lifecycle.Task, error) {
	f, err := m.folder(folderID)
	if err != nil {
		return nil, err
	}

	committed, err := f.store.GetDocumentFingerprints(ctx)
	if err != nil {
		return nil, folderrerrors.New(folderrerrors.ErrCodeFatalScan, "read committed fingerprints", err)
	}

	previous := make(map[string]scanner.Fingerprint, len(committed))
	for path, fp := range committed {
		previous[path] = scanner.Fingerprint{
			Path:        path,
			Size:        fp.Size,
			ModTime:     fp.ModTime,
			ContentHash: fp.ContentHash,
		}
	}

	results, err := m.scan.Scan(ctx, &scanner.ScanOptions{
		RootDir:         f.cfg.RootDir,
		Previous:        previous,
		ExcludePatterns: f.cfg.ExcludePatterns,
		Workers:         f.cfg.Workers,
		MaxFileSize:     f.cfg.MaxFileSize,
		FollowSymlinks:  f.cfg.FollowSymlinks,
	})
	if err != nil {
		return nil, folderrerrors.New(folderrerrors.ErrCodeFatalScan, "scan folder root", err)
	}

	current := make(map[string]scanner.Fingerprint)
	for res := range results {
		if res.Error != nil {
			continue
		}
		current[res.File.Path] = *res.File
	}

	changes := scanner.Diff(previous, current)

	tasks := make([]lifecycle.Task, 0, len(changes))
	for _, ch := range changes {
		switch ch.Kind {
		case scanner.ChangeAdded:
			tasks = append(tasks, lifecycle.NewTask(folderID, ch.Path, lifecycle.OpCreateEmbeddings))
		case scanner.ChangeModified:
			tasks = append(tasks, lifecycle.NewTask(folderID, ch.Path, lifecycle.OpUpdateEmbeddings))
		case scanner.ChangeRemoved:
			tasks = append(tasks, lifecycle.NewTask(folderID, ch.Path, lifecycle.OpRemoveEmbeddings))
		case scanner.ChangeUnchanged:
			// no task
		}
	}
	return tasks, nil
}
