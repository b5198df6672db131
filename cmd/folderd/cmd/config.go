package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foldermcp/folderd/configs"
	"github.com/foldermcp/folderd/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage folderd configuration",
		Long: `Manage the user and folder-local configuration files.

User configuration applies machine-wide: the embedding worker command,
active model, concurrency, and store tuning. A folder's own
.folderd.yaml can override scan-related settings for just that folder.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. System config (/etc/folderd/config.yaml)
  3. User config (~/.config/folderd/config.yaml)
  4. Folder config (<folder>/.folderd.yaml)
  5. Environment variables (FOLDERD_*)
  6. CLI flags`,
		Example: `  # Create user config from template
  folderd config init

  # Show effective configuration (merged from all sources)
  folderd config show --folder ~/Documents/finance

  # Print user config file path
  folderd config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from a template, at
~/.config/folderd/config.yaml (or $XDG_CONFIG_HOME/folderd/config.yaml
if XDG_CONFIG_HOME is set).`,
		Example: `  # Create user config
  folderd config init

  # Overwrite existing config, keeping a timestamped backup
  folderd config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (keeps a backup)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
		folder     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

--source merged (the default) reports the merged view folderd actually
uses for the given --folder; --source user reports the user config
file's content in isolation; --source defaults reports the hardcoded
defaults.`,
		Example: `  # Show merged configuration for a folder
  folderd config show --folder ~/Documents/finance

  # Show as JSON
  folderd config show --json

  # Show only the user config file
  folderd config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source, folder)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, defaults")
	cmd.Flags().StringVar(&folder, "folder", ".", "Folder whose .folderd.yaml is consulted for the merged view")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()
	configPath := config.GetUserConfigPath()
	configDir := config.GetUserConfigDir()

	if config.UserConfigExists() {
		if !force {
			fmt.Fprintf(out, "user configuration already exists at %s\n", configPath)
			fmt.Fprintln(out, "use --force to overwrite (a timestamped backup is kept)")
			return nil
		}

		backupPath, err := config.BackupUserConfig()
		if err != nil {
			return fmt.Errorf("backup existing config: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		fmt.Fprintf(out, "overwrote user configuration at %s (backup: %s)\n", configPath, backupPath)
		return nil
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Fprintf(out, "created user configuration at %s\n", configPath)
	fmt.Fprintln(out, "edit embeddings.model_id and embeddings.worker_command, then run 'folderd config show'")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source, folder string) error {
	out := cmd.OutOrStdout()

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		resolved, err := config.Load(folder, nil)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = resolved.Config
		sourceDesc = "merged (defaults + system + user + folder + env)"

	case "user":
		configPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			fmt.Fprintf(out, "no user configuration file found (expected at %s)\n", configPath)
			fmt.Fprintln(out, "run 'folderd config init' to create one")
			return nil
		}
		cfg = config.NewConfig()
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("read user config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse user config: %w", err)
		}
		sourceDesc = fmt.Sprintf("user (%s)", configPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "# configuration source: %s\n", sourceDesc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
