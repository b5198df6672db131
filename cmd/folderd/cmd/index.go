package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/daemon"
	"github.com/foldermcp/folderd/internal/lifecycle"
)

type indexOptions struct {
	modelID string
	local   bool
	wait    bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Register a folder for indexing",
		Long: `Register a folder so folderd scans, chunks, and embeds its documents.

If a daemon is running, the folder is registered with it and the
daemon continues watching it in the background. Otherwise a one-shot
local index runs in this process and exits when the initial scan
completes. Use --local to force the one-shot path even with a daemon
running.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(ctx, cmd, path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.modelID, "model", "", "Embedding model ID (defaults to config's embeddings.model_id)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Force one-shot local indexing (bypass daemon)")
	cmd.Flags().BoolVar(&opts.wait, "wait", true, "Wait for the initial scan to finish before returning")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, opts indexOptions) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absPath)
	}

	daemonCfg := daemon.DefaultConfig()
	client := daemon.NewClient(daemonCfg)
	if !opts.local && client.IsRunning() {
		return runDaemonIndex(ctx, cmd, client, absPath, opts)
	}
	return runLocalIndex(ctx, cmd, absPath, opts)
}

func runDaemonIndex(ctx context.Context, cmd *cobra.Command, client *daemon.Client, absPath string, opts indexOptions) error {
	id := folderID(absPath)
	if err := client.RegisterFolder(ctx, daemon.RegisterFolderParams{
		FolderID: id,
		Path:     absPath,
		ModelID:  opts.modelID,
	}); err != nil {
		return fmt.Errorf("register folder with daemon: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "registered %s with running daemon (folder %s)\n", absPath, id)

	if !opts.wait {
		return nil
	}

	for {
		st, err := client.FolderStatus(ctx, id)
		if err != nil {
			return fmt.Errorf("poll folder status: %w", err)
		}
		if st.State == string(lifecycle.StateActive) || st.State == string(lifecycle.StateError) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d documents, %d pending)\n", absPath, st.State, st.DocumentsTotal, st.PendingTasks)
			if st.LastError != "" {
				return fmt.Errorf("indexing failed: %s", st.LastError)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func runLocalIndex(ctx context.Context, cmd *cobra.Command, absPath string, opts indexOptions) error {
	resolved, err := config.Load(absPath, &config.Overrides{ModelID: nonEmpty(opts.modelID)})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := resolved.Config

	coord, err := newCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("start embedding coordinator: %w", err)
	}

	mgr, err := newManager(coord)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	defer func() { _ = mgr.Close() }()

	id, machine, err := registerAndStart(ctx, cfg, mgr, coord, absPath, opts.modelID)
	if err != nil {
		return fmt.Errorf("register folder: %w", err)
	}
	defer machine.Dispose()

	fmt.Fprintf(cmd.OutOrStdout(), "indexing %s locally (folder %s)...\n", absPath, id)

	if !opts.wait {
		return nil
	}

	for {
		snap := machine.Progress()
		if snap.Phase == lifecycle.StateActive || snap.Phase == lifecycle.StateError {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d/%d tasks)\n", absPath, snap.Phase, snap.Done, snap.Total)
			if snap.ErrorMessage != "" {
				return fmt.Errorf("indexing failed: %s", snap.ErrorMessage)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
