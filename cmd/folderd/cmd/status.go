package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/daemon"
	"github.com/foldermcp/folderd/internal/orchestrator"
)

type statusOptions struct {
	folder string
	json   bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show indexing status for registered folders",
		Long: `Show indexing status for registered folders.

Reports each folder's lifecycle state, document count, and pending
task count. If a daemon is running, status is read from it; otherwise
folders are resolved locally from config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.folder, "folder", "", "Show status for one folder only (path)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	daemonCfg := daemon.DefaultConfig()
	client := daemon.NewClient(daemonCfg)
	if client.IsRunning() {
		return runDaemonStatus(ctx, cmd, client, opts)
	}
	return runLocalStatus(ctx, cmd, opts)
}

func runDaemonStatus(ctx context.Context, cmd *cobra.Command, client *daemon.Client, opts statusOptions) error {
	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("query daemon status: %w", err)
	}

	folders, err := client.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}

	if opts.json {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
			Daemon  *daemon.StatusResult        `json:"daemon"`
			Folders []daemon.FolderStatusResult `json:"folders"`
		}{st, folders.Folders})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "daemon: running (pid %d, uptime %s, model %s)\n", st.PID, st.Uptime, st.ModelID)
	if len(folders.Folders) == 0 {
		fmt.Fprintln(out, "no folders registered")
		return nil
	}
	for _, f := range folders.Folders {
		if opts.folder != "" && f.Path != opts.folder {
			continue
		}
		printFolderStatusLine(out, f.Path, f.State, f.DocumentsTotal, f.PendingTasks, f.LastError)
	}
	return nil
}

func runLocalStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	out := cmd.OutOrStdout()

	dir := opts.folder
	if dir == "" {
		dir = "."
	}
	resolved, err := config.Load(dir, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := resolved.Config

	if opts.folder == "" {
		fmt.Fprintln(out, "daemon: not running (no folder given, local fallback needs --folder)")
		return nil
	}

	coord, err := newCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("start embedding coordinator: %w", err)
	}

	mgr, err := newManager(coord)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	defer func() { _ = mgr.Close() }()

	id, machine, err := registerAndStart(ctx, cfg, mgr, coord, opts.folder, cfg.Embeddings.ModelID)
	if err != nil {
		return fmt.Errorf("register folder: %w", err)
	}
	defer machine.Dispose()

	st, err := mgr.FolderStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("read folder status: %w", err)
	}

	if opts.json {
		return json.NewEncoder(out).Encode(statusJSON(st))
	}

	fmt.Fprintln(out, "daemon: not running (local one-shot status)")
	printFolderStatusLine(out, st.RootPath, st.State, st.DocumentsTotal, st.PendingTasks, st.LastError)
	return nil
}

func statusJSON(st orchestrator.FolderStatus) daemon.FolderStatusResult {
	return daemon.FolderStatusResult{
		FolderID:       st.FolderID,
		Path:           st.RootPath,
		State:          st.State,
		DocumentsTotal: st.DocumentsTotal,
		PendingTasks:   st.PendingTasks,
		LastError:      st.LastError,
	}
}

func printFolderStatusLine(out io.Writer, path, state string, docs, pending int, lastErr string) {
	fmt.Fprintf(out, "%s\n  state: %s  documents: %d  pending: %d\n", path, state, docs, pending)
	if lastErr != "" {
		fmt.Fprintf(out, "  last error: %s\n", lastErr)
	}
}
