// Package cmd provides the CLI commands for folderd.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/logging"
	"github.com/foldermcp/folderd/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the folderd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folderd",
		Short: "Local semantic knowledge base daemon over office documents",
		Long: `folderd indexes registered folders of office documents (PDF,
DOCX, XLSX, PPTX, Markdown, text) into a local searchable store, and
exposes vector similarity search over them to MCP clients.

Register a folder with 'folderd index', run 'folderd daemon start' to
keep it watched and indexed in the background, and expose it to an MCP
client with 'folderd mcp server'.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("folderd version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.local/state/folderd/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
