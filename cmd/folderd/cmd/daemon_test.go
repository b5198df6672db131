package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/foldermcp/folderd/internal/daemon"
	"github.com/foldermcp/folderd/internal/orchestrator"
)

func TestDaemonCmd_Subcommands(t *testing.T) {
	cmd := newDaemonCmd()
	for _, name := range []string{"start", "stop", "status"} {
		if _, _, err := cmd.Find([]string{name}); err != nil {
			t.Errorf("expected daemon subcommand %q: %v", name, err)
		}
	}
}

func TestDaemonStatusCmd_NotRunning(t *testing.T) {
	cmd := newDaemonStatusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("daemon status should not error when not running: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("not running")) {
		t.Errorf("expected 'not running', got: %s", out.String())
	}
}

func TestDaemonStopCmd_NoPIDFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newDaemonStopCmd()
	cmd.SetOut(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error stopping a daemon with no PID file")
	}
}

func TestToFolderStatusResult_MapsRootPathToPath(t *testing.T) {
	st := orchestrator.FolderStatus{
		FolderID:       "abc123",
		RootPath:       "/docs/finance",
		State:          "active",
		DocumentsTotal: 4,
		PendingTasks:   1,
	}

	got := toFolderStatusResult(st)
	want := daemon.FolderStatusResult{
		FolderID:       "abc123",
		Path:           "/docs/finance",
		State:          "active",
		DocumentsTotal: 4,
		PendingTasks:   1,
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestManagerHandler_GetStatus_IdleWithNoFolders(t *testing.T) {
	mgr, err := newManager(nil)
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}

	h := &managerHandler{mgr: mgr, cfg: testConfig()}
	st := h.GetStatus()
	if st.ModelState != "idle" {
		t.Errorf("expected idle model state with no folders, got %s", st.ModelState)
	}
	if st.FoldersLoaded != 0 {
		t.Errorf("expected 0 folders loaded, got %d", st.FoldersLoaded)
	}
}

func TestManagerHandler_HandleListFolders_Empty(t *testing.T) {
	mgr, err := newManager(nil)
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}

	h := &managerHandler{mgr: mgr, cfg: testConfig()}
	result, err := h.HandleListFolders(context.Background())
	if err != nil {
		t.Fatalf("HandleListFolders: %v", err)
	}
	if len(result.Folders) != 0 {
		t.Errorf("expected no folders, got %d", len(result.Folders))
	}
}
