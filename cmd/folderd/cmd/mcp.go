package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/logging"
	"github.com/foldermcp/folderd/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run folderd as an MCP server",
	}
	cmd.AddCommand(newMCPServerCmd())
	return cmd
}

func newMCPServerCmd() *cobra.Command {
	var folders []string
	var transport string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve search, document, and folder tools over MCP",
		Long: `Run an MCP server exposing search, document, and folder-status
tools over every folder registered via --folder.

The server runs entirely in this process (it does not proxy through a
running daemon), so each invocation pays its own embedding-model
startup cost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMCPServer(ctx, cmd, folders, transport)
		},
	}

	cmd.Flags().StringSliceVar(&folders, "folder", nil, "Folder to expose over MCP (repeatable)")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runMCPServer(ctx context.Context, cmd *cobra.Command, folders []string, transport string) error {
	if len(folders) == 0 {
		return fmt.Errorf("at least one --folder is required")
	}

	if cleanup, err := logging.SetupMCPMode(); err == nil {
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

	for _, folder := range folders {
		_, machine, err := registerAndStart(ctx, cfg, mgr, coord, folder, cfg.Embeddings.ModelID)
		if err != nil {
			return fmt.Errorf("register folder %s: %w", folder, err)
		}
		defer machine.Dispose()
	}

	srv, err := mcp.NewServer(mgr, cfg)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return srv.Serve(ctx, transport)
}
