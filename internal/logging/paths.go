package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.baysets/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".baysets", "logs")
	}
	return filepath.Join(home, ".baysets", "logs")
}

// DefaultLogPath returns the default daemon log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "daemon.log")
}

// BuildLogPath returns the path used by `baysets build` for its own log
// file, kept separate from the daemon's so a long-running build does not
// interleave with query traffic.
func BuildLogPath() string {
	return filepath.Join(DefaultLogDir(), "build.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceDaemon is the query-serving daemon's logs (default).
	LogSourceDaemon LogSource = "daemon"
	// LogSourceBuild is the index builder's logs.
	LogSourceBuild LogSource = "build"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.baysets/logs/daemon.log (global)
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

	return "", fmt.Errorf("no log file found. Daemon may not have run with --debug yet.\nExpected at: %s", globalPath)
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

	case LogSourceBuild:
		buildPath := BuildLogPath()
		checked = append(checked, buildPath)
		if _, err := os.Stat(buildPath); err == nil {
			paths = append(paths, buildPath)
		}

	case LogSourceAll:
		daemonPath := DefaultLogPath()
		buildPath := BuildLogPath()
		checked = append(checked, daemonPath, buildPath)

		if _, err := os.Stat(daemonPath); err == nil {
			paths = append(paths, daemonPath)
		}
		if _, err := os.Stat(buildPath); err == nil {
			paths = append(paths, buildPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: daemon, build, all)", source)
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
	case "build":
		return LogSourceBuild
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
		return "To generate daemon logs:\n  baysets --debug daemon start"
	case LogSourceBuild:
		return "To generate build logs:\n  baysets --debug build"
	case LogSourceAll:
		return "To generate logs:\n  Daemon: baysets --debug daemon start\n  Build:  baysets --debug build"
	default:
		return ""
	}
}
