package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory
// (~/.local/state/folderd/logs/). Falls back to temp directory if home
// directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "folderd", "logs")
	}
	return filepath.Join(home, ".local", "state", "folderd", "logs")
}

// DefaultLogPath returns the daemon's own log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "daemon.log")
}

// WorkerLogPath returns the embedding worker subprocess's log path, by
// convention the same log directory the daemon uses (spec.md §4.5's
// worker is a separate process the operator configures; it is expected
// to write its own log there).
func WorkerLogPath() string {
	return filepath.Join(DefaultLogDir(), "embed-worker.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceDaemon is the folderd daemon's own logs (default).
	LogSourceDaemon LogSource = "daemon"
	// LogSourceWorker is the embedding worker subprocess's logs.
	LogSourceWorker LogSource = "worker"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.local/state/folderd/logs/daemon.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	// Try global path
	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run with --debug yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	// Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceDaemon:
		daemonPath := DefaultLogPath()
		checked = append(checked, daemonPath)
		if _, err := os.Stat(daemonPath); err == nil {
			paths = append(paths, daemonPath)
		}

	case LogSourceWorker:
		workerPath := WorkerLogPath()
		checked = append(checked, workerPath)
		if _, err := os.Stat(workerPath); err == nil {
			paths = append(paths, workerPath)
		}

	case LogSourceAll:
		daemonPath := DefaultLogPath()
		workerPath := WorkerLogPath()
		checked = append(checked, daemonPath, workerPath)

		if _, err := os.Stat(daemonPath); err == nil {
			paths = append(paths, daemonPath)
		}
		if _, err := os.Stat(workerPath); err == nil {
			paths = append(paths, workerPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: daemon, worker, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "worker":
		return LogSourceWorker
	case "all":
		return LogSourceAll
	default:
		return LogSourceDaemon
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceDaemon:
		return "To generate daemon logs:\n  folderd daemon start --foreground --debug"
	case LogSourceWorker:
		return "The embedding worker subprocess writes its own log; check its configured command."
	case LogSourceAll:
		return "To generate logs:\n  daemon: folderd daemon start --foreground --debug\n  worker: check the worker subprocess's own logging"
	default:
		return ""
	}
}
