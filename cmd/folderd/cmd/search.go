package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foldermcp/folderd/internal/config"
	"github.com/foldermcp/folderd/internal/daemon"
)

type searchOptions struct {
	folder string
	limit  int
	format string // "text", "json"
	local  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a registered folder",
		Long: `Search a registered folder's indexed documents.

Ranks the folder's chunks by vector similarity to the embedded query;
there is no keyword matching.
If a daemon is running, the query is sent there; otherwise a one-shot
local search opens the folder's store directly.

Examples:
  folderd search "quarterly revenue targets" --folder ~/Documents/finance
  folderd search "onboarding checklist" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVar(&opts.folder, "folder", ".", "Folder to search")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Force local search (bypass daemon)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	absFolder, err := filepath.Abs(opts.folder)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}

	daemonCfg := daemon.DefaultConfig()
	client := daemon.NewClient(daemonCfg)
	if !opts.local && client.IsRunning() {
		results, err := client.Search(ctx, daemon.SearchParams{
			Query:    query,
			FolderID: folderID(absFolder),
			Limit:    opts.limit,
		})
		if err != nil {
			return fmt.Errorf("daemon search: %w", err)
		}
		return formatDaemonResults(cmd, query, results, opts.format)
	}

	return runLocalSearch(ctx, cmd, absFolder, query, opts)
}

func runLocalSearch(ctx context.Context, cmd *cobra.Command, absFolder, query string, opts searchOptions) error {
	resolved, err := config.Load(absFolder, nil)
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

	id, machine, err := registerAndStart(ctx, cfg, mgr, coord, absFolder, cfg.Embeddings.ModelID)
	if err != nil {
		return fmt.Errorf("register folder: %w", err)
	}
	defer machine.Dispose()

	results, err := mgr.Search(ctx, id, query, opts.limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no results for %q\n", query)
		return nil
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d results for %q:\n\n", len(results), query)
		for i, r := range results {
			fmt.Fprintf(out, "%d. %s (chunk %d, score %.3f)\n", i+1, r.RelativePath, r.Ordinal, r.Score)
			for _, line := range snippetLines(r.Text, 3) {
				fmt.Fprintf(out, "   %s\n", line)
			}
			fmt.Fprintln(out)
		}
		return nil
	}
}

// formatDaemonResults renders search results returned by the daemon.
func formatDaemonResults(cmd *cobra.Command, query string, results []daemon.SearchResult, format string) error {
	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no results for %q\n", query)
		return nil
	}

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d results for %q:\n\n", len(results), query)
		for i, r := range results {
			fmt.Fprintf(out, "%d. %s (chunk %d, score %.3f)\n", i+1, r.DocumentPath, r.Ordinal, r.Score)
			for _, line := range snippetLines(r.Text, 3) {
				fmt.Fprintf(out, "   %s\n", line)
			}
			fmt.Fprintln(out)
		}
		return nil
	}
}

// snippetLines returns the first n non-trailing-blank lines of content.
func snippetLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
