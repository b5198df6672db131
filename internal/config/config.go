package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete folderd configuration, layered:
// defaults -> system file -> user file -> folder-local file
// -> environment variables -> CLI overrides.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Folders    FoldersConfig    `yaml:"folders" json:"folders"`
	Scanner    ScannerConfig    `yaml:"scanner" json:"scanner"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Semantic   SemanticConfig   `yaml:"semantic" json:"semantic"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Store      StoreConfig      `yaml:"store" json:"store"`
}

// FoldersConfig configures which paths are included/excluded when
// scanning a registered folder.
type FoldersConfig struct {
	Exclude []string `yaml:"exclude" json:"exclude"`
	// MaxFileSizeBytes is the largest document folderd will read.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
}

// ScannerConfig configures the fingerprint scanner and the file watcher's
// debounce window.
type ScannerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	DebounceWindow time.Duration `yaml:"debounce_window" json:"debounce_window"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
}

// EmbeddingsConfig configures the embedding worker subprocess and the
// active model.
type EmbeddingsConfig struct {
	// WorkerCommand is the executable (and args) used to spawn the
	// embedding worker subprocess, e.g. ["folderd-embed-worker"].
	WorkerCommand []string `yaml:"worker_command" json:"worker_command"`
	// ModelID selects an entry from the model capability registry.
	ModelID string `yaml:"model_id" json:"model_id"`
	// CapabilitiesFile points at the JSON model capability registry.
	CapabilitiesFile string `yaml:"capabilities_file" json:"capabilities_file"`
	BatchSize        int    `yaml:"batch_size" json:"batch_size"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout"`
	ModelCacheDir    string `yaml:"model_cache_dir" json:"model_cache_dir"`
}

// SemanticConfig configures the enrichment stage.
type SemanticConfig struct {
	KeyPhraseCount int `yaml:"key_phrase_count" json:"key_phrase_count"`
	TopicCount     int `yaml:"topic_count" json:"topic_count"`
}

// ConcurrencyConfig bounds per-folder and cross-folder work.
type ConcurrencyConfig struct {
	// PerFolderTasks is the max concurrent tasks within one folder.
	PerFolderTasks int `yaml:"per_folder_tasks" json:"per_folder_tasks"`
	// InFlightEmbeddingBatches caps cross-folder embedding concurrency.
	InFlightEmbeddingBatches int `yaml:"in_flight_embedding_batches" json:"in_flight_embedding_batches"`
	// MaxTaskRetries bounds the lifecycle task queue's retry budget.
	MaxTaskRetries int `yaml:"max_task_retries" json:"max_task_retries"`
}

// ServerConfig configures the MCP server and control-socket transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"` // "stdio" or "unix"
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// StoreConfig configures the per-folder storage adapter.
type StoreConfig struct {
	// DataDir holds one SQLite database per registered folder.
	DataDir       string           `yaml:"data_dir" json:"data_dir"`
	SQLiteCacheMB int              `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
	HNSWMaxLevel  int              `yaml:"hnsw_max_level" json:"hnsw_max_level"`
	Compaction    CompactionConfig `yaml:"compaction" json:"compaction"`
}

// CompactionConfig controls background rebuilding of a folder's
// in-memory HNSW index once lazily-deleted nodes accumulate past a
// threshold. folderd never deletes graph nodes in place (coder/hnsw
// can corrupt its last-level node on deletion), so orphans only shrink
// via a full rebuild from the durable vectors table.
type CompactionConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	IdleTimeout     string  `yaml:"idle_timeout" json:"idle_timeout"`
	Cooldown        string  `yaml:"cooldown" json:"cooldown"`
	OrphanThreshold float64 `yaml:"orphan_threshold" json:"orphan_threshold"`
	MinOrphanCount  int     `yaml:"min_orphan_count" json:"min_orphan_count"`
}

// defaultExcludePatterns are always excluded from folder scans.
var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/~$*",
	"**/.DS_Store",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Folders: FoldersConfig{
			Exclude:          defaultExcludePatterns,
			MaxFileSizeBytes: 100 * 1024 * 1024,
		},
		Scanner: ScannerConfig{
			PollInterval:   2 * time.Second,
			DebounceWindow: 500 * time.Millisecond,
			BatchSize:      200,
		},
		Embeddings: EmbeddingsConfig{
			WorkerCommand:    []string{"folderd-embed-worker"},
			ModelID:          "",
			CapabilitiesFile: "",
			BatchSize:        32,
			RequestTimeout:   30 * time.Second,
			ModelCacheDir:    defaultModelCacheDir(),
		},
		Semantic: SemanticConfig{
			KeyPhraseCount: 8,
			TopicCount:     3,
		},
		Concurrency: ConcurrencyConfig{
			PerFolderTasks:           3,
			InFlightEmbeddingBatches: 2,
			MaxTaskRetries:           3,
		},
		Server: ServerConfig{
			Transport:  "stdio",
			SocketPath: defaultSocketPath(),
			LogLevel:   "info",
		},
		Store: StoreConfig{
			DataDir:       defaultDataDir(),
			SQLiteCacheMB: 64,
			HNSWMaxLevel:  16,
			Compaction: CompactionConfig{
				Enabled:         true,
				IdleTimeout:     "30s",
				Cooldown:        "1h",
				OrphanThreshold: 0.3,
				MinOrphanCount:  200,
			},
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "folderd", "data")
	}
	return filepath.Join(home, ".local", "share", "folderd")
}

func defaultModelCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "folderd", "models")
	}
	return filepath.Join(home, ".cache", "folderd", "models")
}

func defaultSocketPath() string {
	return filepath.Join(os.TempDir(), "folderd.sock")
}

// GetUserConfigPath returns the path to the user configuration file. It
// follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/folderd/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/folderd/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "folderd", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "folderd", "config.yaml")
	}
	return filepath.Join(home, ".config", "folderd", "config.yaml")
}

// GetSystemConfigPath returns the path to the system-wide configuration
// file, the lowest-precedence file layer in the config hierarchy.
func GetSystemConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(`C:\ProgramData`, "folderd", "config.yaml")
	}
	return "/etc/folderd/config.yaml"
}

// Source identifies which configuration layer supplied a field's value.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceUser    Source = "user"
	SourceFolder  Source = "folder"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Resolved pairs a loaded Config with the layer that won each field,
// reported by `folderd config show`.
type Resolved struct {
	Config *Config
	// Sources maps a dotted field path (e.g. "embeddings.model_id") to
	// the layer whose value is currently in effect. Only fields touched
	// by a non-default layer are recorded; anything absent is
	// SourceDefault.
	Sources map[string]Source
}

func (r *Resolved) note(field string, src Source) {
	if r.Sources == nil {
		r.Sources = make(map[string]Source)
	}
	r.Sources[field] = src
}

// SourceOf reports which layer resolved field, defaulting to
// SourceDefault if no layer overrode it.
func (r *Resolved) SourceOf(field string) Source {
	if r.Sources == nil {
		return SourceDefault
	}
	if s, ok := r.Sources[field]; ok {
		return s
	}
	return SourceDefault
}

// Overrides carries CLI-flag-sourced values, the highest-precedence
// config layer.
type Overrides struct {
	ModelID        *string
	LogLevel       *string
	PerFolderTasks *int
	DataDir        *string
}

// Load loads configuration for folder dir, applying layers in order of
// increasing precedence: defaults -> system file -> user file ->
// folder-local file (.folderd.yaml) -> env vars (FOLDERD_*) -> CLI
// overrides.
func Load(dir string, overrides *Overrides) (*Resolved, error) {
	resolved := &Resolved{Config: NewConfig()}

	if sysCfg, err := loadFileIfExists(GetSystemConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	} else if sysCfg != nil {
		resolved.Config.mergeWith(sysCfg, resolved, SourceSystem)
	}

	if userCfg, err := loadFileIfExists(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		resolved.Config.mergeWith(userCfg, resolved, SourceUser)
	}

	if dir != "" {
		folderPath := filepath.Join(dir, ".folderd.yaml")
		if folderCfg, err := loadFileIfExists(folderPath); err != nil {
			return nil, fmt.Errorf("failed to load folder config: %w", err)
		} else if folderCfg != nil {
			resolved.Config.mergeWith(folderCfg, resolved, SourceFolder)
		}
	}

	resolved.Config.applyEnvOverrides(resolved)

	if overrides != nil {
		resolved.Config.applyFlagOverrides(overrides, resolved)
	}

	if err := resolved.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return resolved, nil
}

func loadFileIfExists(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &parsed, nil
}

// mergeWith merges non-zero values from other into c, recording the
// winning layer for each touched field in resolved.
func (c *Config) mergeWith(other *Config, resolved *Resolved, src Source) {
	if other.Version != 0 {
		c.Version = other.Version
		resolved.note("version", src)
	}
	if len(other.Folders.Exclude) > 0 {
		c.Folders.Exclude = other.Folders.Exclude
		resolved.note("folders.exclude", src)
	}
	if other.Folders.MaxFileSizeBytes != 0 {
		c.Folders.MaxFileSizeBytes = other.Folders.MaxFileSizeBytes
		resolved.note("folders.max_file_size_bytes", src)
	}
	if other.Scanner.PollInterval != 0 {
		c.Scanner.PollInterval = other.Scanner.PollInterval
		resolved.note("scanner.poll_interval", src)
	}
	if other.Scanner.DebounceWindow != 0 {
		c.Scanner.DebounceWindow = other.Scanner.DebounceWindow
		resolved.note("scanner.debounce_window", src)
	}
	if other.Scanner.BatchSize != 0 {
		c.Scanner.BatchSize = other.Scanner.BatchSize
		resolved.note("scanner.batch_size", src)
	}
	if len(other.Embeddings.WorkerCommand) > 0 {
		c.Embeddings.WorkerCommand = other.Embeddings.WorkerCommand
		resolved.note("embeddings.worker_command", src)
	}
	if other.Embeddings.ModelID != "" {
		c.Embeddings.ModelID = other.Embeddings.ModelID
		resolved.note("embeddings.model_id", src)
	}
	if other.Embeddings.CapabilitiesFile != "" {
		c.Embeddings.CapabilitiesFile = other.Embeddings.CapabilitiesFile
		resolved.note("embeddings.capabilities_file", src)
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
		resolved.note("embeddings.batch_size", src)
	}
	if other.Embeddings.RequestTimeout != 0 {
		c.Embeddings.RequestTimeout = other.Embeddings.RequestTimeout
		resolved.note("embeddings.request_timeout", src)
	}
	if other.Embeddings.ModelCacheDir != "" {
		c.Embeddings.ModelCacheDir = other.Embeddings.ModelCacheDir
		resolved.note("embeddings.model_cache_dir", src)
	}
	if other.Semantic.KeyPhraseCount != 0 {
		c.Semantic.KeyPhraseCount = other.Semantic.KeyPhraseCount
		resolved.note("semantic.key_phrase_count", src)
	}
	if other.Semantic.TopicCount != 0 {
		c.Semantic.TopicCount = other.Semantic.TopicCount
		resolved.note("semantic.topic_count", src)
	}
	if other.Concurrency.PerFolderTasks != 0 {
		c.Concurrency.PerFolderTasks = other.Concurrency.PerFolderTasks
		resolved.note("concurrency.per_folder_tasks", src)
	}
	if other.Concurrency.InFlightEmbeddingBatches != 0 {
		c.Concurrency.InFlightEmbeddingBatches = other.Concurrency.InFlightEmbeddingBatches
		resolved.note("concurrency.in_flight_embedding_batches", src)
	}
	if other.Concurrency.MaxTaskRetries != 0 {
		c.Concurrency.MaxTaskRetries = other.Concurrency.MaxTaskRetries
		resolved.note("concurrency.max_task_retries", src)
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
		resolved.note("server.transport", src)
	}
	if other.Server.SocketPath != "" {
		c.Server.SocketPath = other.Server.SocketPath
		resolved.note("server.socket_path", src)
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
		resolved.note("server.log_level", src)
	}
	if other.Store.DataDir != "" {
		c.Store.DataDir = other.Store.DataDir
		resolved.note("store.data_dir", src)
	}
	if other.Store.SQLiteCacheMB != 0 {
		c.Store.SQLiteCacheMB = other.Store.SQLiteCacheMB
		resolved.note("store.sqlite_cache_mb", src)
	}
	if other.Store.HNSWMaxLevel != 0 {
		c.Store.HNSWMaxLevel = other.Store.HNSWMaxLevel
		resolved.note("store.hnsw_max_level", src)
	}
}

// applyEnvOverrides applies FOLDERD_* environment variable overrides,
// the second-highest precedence layer. String-array fields accept a
// JSON array (e.g. FOLDERD_FOLDERS_EXCLUDE='["**/tmp/**","**/.cache/**"]').
func (c *Config) applyEnvOverrides(resolved *Resolved) {
	if v, ok := envArray("FOLDERD_FOLDERS_EXCLUDE"); ok {
		c.Folders.Exclude = v
		resolved.note("folders.exclude", SourceEnv)
	}
	if v := os.Getenv("FOLDERD_MAX_FILE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Folders.MaxFileSizeBytes = n
			resolved.note("folders.max_file_size_bytes", SourceEnv)
		}
	}
	if v := os.Getenv("FOLDERD_SCANNER_DEBOUNCE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Scanner.DebounceWindow = d
			resolved.note("scanner.debounce_window", SourceEnv)
		}
	}
	if v, ok := envArray("FOLDERD_EMBEDDINGS_WORKER_COMMAND"); ok {
		c.Embeddings.WorkerCommand = v
		resolved.note("embeddings.worker_command", SourceEnv)
	}
	if v := os.Getenv("FOLDERD_EMBEDDINGS_MODEL_ID"); v != "" {
		c.Embeddings.ModelID = v
		resolved.note("embeddings.model_id", SourceEnv)
	}
	if v := os.Getenv("FOLDERD_EMBEDDINGS_CAPABILITIES_FILE"); v != "" {
		c.Embeddings.CapabilitiesFile = v
		resolved.note("embeddings.capabilities_file", SourceEnv)
	}
	if v := os.Getenv("FOLDERD_CONCURRENCY_PER_FOLDER_TASKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency.PerFolderTasks = n
			resolved.note("concurrency.per_folder_tasks", SourceEnv)
		}
	}
	if v := os.Getenv("FOLDERD_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
		resolved.note("server.log_level", SourceEnv)
	}
	if v := os.Getenv("FOLDERD_STORE_DATA_DIR"); v != "" {
		c.Store.DataDir = v
		resolved.note("store.data_dir", SourceEnv)
	}
}

// envArray parses a JSON-array-valued environment variable, as used for
// list-typed config fields.
func envArray(name string) ([]string, bool) {
	v := os.Getenv(name)
	if v == "" {
		return nil, false
	}
	var arr []string
	if err := json.Unmarshal([]byte(v), &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// applyFlagOverrides applies CLI flag overrides, the highest-precedence
// layer.
func (c *Config) applyFlagOverrides(o *Overrides, resolved *Resolved) {
	if o.ModelID != nil {
		c.Embeddings.ModelID = *o.ModelID
		resolved.note("embeddings.model_id", SourceFlag)
	}
	if o.LogLevel != nil {
		c.Server.LogLevel = *o.LogLevel
		resolved.note("server.log_level", SourceFlag)
	}
	if o.PerFolderTasks != nil {
		c.Concurrency.PerFolderTasks = *o.PerFolderTasks
		resolved.note("concurrency.per_folder_tasks", SourceFlag)
	}
	if o.DataDir != nil {
		c.Store.DataDir = *o.DataDir
		resolved.note("store.data_dir", SourceFlag)
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Concurrency.PerFolderTasks <= 0 {
		return fmt.Errorf("concurrency.per_folder_tasks must be positive, got %d", c.Concurrency.PerFolderTasks)
	}
	if c.Concurrency.InFlightEmbeddingBatches <= 0 {
		return fmt.Errorf("concurrency.in_flight_embedding_batches must be positive, got %d", c.Concurrency.InFlightEmbeddingBatches)
	}
	if c.Folders.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("folders.max_file_size_bytes must be positive, got %d", c.Folders.MaxFileSizeBytes)
	}
	if c.Scanner.DebounceWindow <= 0 {
		return fmt.Errorf("scanner.debounce_window must be positive, got %s", c.Scanner.DebounceWindow)
	}
	validTransports := map[string]bool{"stdio": true, "unix": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'unix', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
