package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/daemon"
	"github.com/foldermcp/folderd/internal/logging"
	"github.com/foldermcp/folderd/internal/orchestrator"
)

// managerHandler adapts *orchestrator.Manager to daemon.RequestHandler,
// translating between the manager's domain types and the daemon's
// wire types (e.g. FolderStatus.RootPath <-> FolderStatusResult.Path).
type managerHandler struct {
	mgr     *orchestrator.Manager
	cfg     *config.Config
	started time.Time
}

func (h *managerHandler) HandleSearch(ctx context.Context, params daemon.SearchParams) ([]daemon.SearchResult, error) {
	results, err := h.mgr.Search(ctx, params.FolderID, params.Query, params.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]daemon.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, daemon.SearchResult{
			DocumentPath: r.RelativePath,
			ChunkID:      r.ChunkID,
			Ordinal:      r.Ordinal,
			Score:        float64(r.Score),
			Text:         r.Text,
		})
	}
	return out, nil
}

func (h *managerHandler) HandleRegisterFolder(ctx context.Context, params daemon.RegisterFolderParams) error {
	modelID := params.ModelID
	if modelID == "" {
		modelID = h.cfg.Embeddings.ModelID
	}
	coord, err := newCoordinator(h.cfg)
	if err != nil {
		return err
	}
	_, _, err = registerAndStart(ctx, h.cfg, h.mgr, coord, params.Path, modelID)
	return err
}

func (h *managerHandler) HandleRemoveFolder(ctx context.Context, params daemon.RemoveFolderParams) error {
	return h.mgr.UnregisterFolder(params.FolderID)
}

func (h *managerHandler) HandleFolderStatus(ctx context.Context, params daemon.FolderStatusParams) (daemon.FolderStatusResult, error) {
	st, err := h.mgr.FolderStatus(ctx, params.FolderID)
	if err != nil {
		return daemon.FolderStatusResult{}, err
	}
	return toFolderStatusResult(st), nil
}

func (h *managerHandler) HandleListFolders(ctx context.Context) (daemon.ListFoldersResult, error) {
	statuses, err := h.mgr.ListFolders(ctx)
	if err != nil {
		return daemon.ListFoldersResult{}, err
	}
	result := daemon.ListFoldersResult{Folders: make([]daemon.FolderStatusResult, 0, len(statuses))}
	for _, st := range statuses {
		result.Folders = append(result.Folders, toFolderStatusResult(st))
	}
	return result, nil
}

func (h *managerHandler) GetStatus() daemon.StatusResult {
	statuses, _ := h.mgr.ListFolders(context.Background())
	modelState := "idle"
	if len(statuses) > 0 {
		modelState = "ready"
	}
	return daemon.StatusResult{
		ModelID:       h.cfg.Embeddings.ModelID,
		ModelState:    modelState,
		FoldersLoaded: len(statuses),
	}
}

func toFolderStatusResult(st orchestrator.FolderStatus) daemon.FolderStatusResult {
	return daemon.FolderStatusResult{
		FolderID:       st.FolderID,
		Path:           st.RootPath,
		State:          st.State,
		DocumentsTotal: st.DocumentsTotal,
		PendingTasks:   st.PendingTasks,
		LastError:      st.LastError,
	}
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the folderd background daemon",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var foreground bool
	var debug bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemonStart(ctx, cmd, foreground, debug)
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "Omit the startup notice (the daemon never detaches; it always runs in this process)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable file-based debug logging")

	return cmd
}

func runDaemonStart(ctx context.Context, cmd *cobra.Command, foreground, debug bool) error {
	daemonCfg := daemon.DefaultConfig()
	client := daemon.NewClient(daemonCfg)
	if client.IsRunning() {
		return fmt.Errorf("daemon already running (socket %s)", daemonCfg.SocketPath)
	}

	if err := daemonCfg.EnsureDir(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if debug {
		logCfg = logging.DebugConfig()
	}
	if _, cleanup, err := logging.Setup(logCfg); err == nil {
		defer cleanup()
	}

	resolved, err := config.Load("", nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := resolved.Config

	coord, err := newCoordinator(cfg)
	if err != nil {
		return fmt.Errorf("start embedding coordinator: %w", err)
	}
	defer func() { _ = coord.Close() }()

	mgr, err := newManager(coord)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	defer func() { _ = mgr.Close() }()

	pidFile := daemon.NewPIDFile(daemonCfg.PIDPath)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	defer func() { _ = pidFile.Remove() }()

	server, err := daemon.NewServer(daemonCfg.SocketPath)
	if err != nil {
		return fmt.Errorf("create daemon server: %w", err)
	}
	server.SetHandler(&managerHandler{mgr: mgr, cfg: cfg, started: time.Now()})

	if !foreground {
		fmt.Fprintf(cmd.OutOrStdout(), "starting daemon on %s (pid %d)\n", daemonCfg.SocketPath, os.Getpid())
	}

	return server.ListenAndServe(ctx)
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			daemonCfg := daemon.DefaultConfig()
			pidFile := daemon.NewPIDFile(daemonCfg.PIDPath)
			pid, err := pidFile.Read()
			if err != nil {
				return fmt.Errorf("daemon is not running: %w", err)
			}
			if err := pidFile.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent SIGTERM to daemon (pid %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			daemonCfg := daemon.DefaultConfig()
			client := daemon.NewClient(daemonCfg)
			if !client.IsRunning() {
				fmt.Fprintln(cmd.OutOrStdout(), "daemon: not running")
				return nil
			}
			st, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("query daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daemon: running (pid %d, uptime %s, model %s, folders %d)\n",
				st.PID, st.Uptime, st.ModelID, st.FoldersLoaded)
			return nil
		},
	}
}
