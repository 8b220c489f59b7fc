// Package daemon provides a background service that keeps computed indexes
// warm in memory across CLI invocations. The daemon keeps an LRU cache of
// loaded indexes (internal/cache), allowing CLI query/explain commands to
// connect via Unix socket instead of re-reading the four-file index from
// disk on every invocation.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/baysets/baysets/internal/config"
)

// Config holds configuration for the daemon service.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.baysets/daemon.sock
	SocketPath string

	// PIDPath is the file path for storing the daemon's process ID.
	// Default: ~/.baysets/daemon.pid
	PIDPath string

	// Timeout is the maximum duration for client-daemon communication.
	// Default: 30s
	Timeout time.Duration

	// ShutdownGracePeriod is the time to wait for graceful shutdown.
	// Default: 10s
	ShutdownGracePeriod time.Duration

	// MaxIndexes is the maximum number of computed indexes to keep loaded.
	// Uses LRU eviction when exceeded.
	// Default: 5
	MaxIndexes int

	// AutoStart enables auto-starting the daemon from the CLI if not running.
	// Default: false
	AutoStart bool

	// App supplies model/query defaults (smoothing constant, parallel row
	// threshold, top_k default, attribution mode) used when loading an
	// index and serving requests. A nil App uses config.NewConfig().
	App *config.Config
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}

	baysetsDir := filepath.Join(home, ".baysets")

	return Config{
		SocketPath:          filepath.Join(baysetsDir, "daemon.sock"),
		PIDPath:             filepath.Join(baysetsDir, "daemon.pid"),
		Timeout:             30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
		MaxIndexes:          5,
		AutoStart:           false,
		App:                 config.NewConfig(),
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown grace period must be positive")
	}
	if c.MaxIndexes <= 0 {
		return fmt.Errorf("max indexes must be positive")
	}
	return nil
}

// EnsureDir creates the directory for socket and PID files if it doesn't exist.
func (c Config) EnsureDir() error {
	socketDir := filepath.Dir(c.SocketPath)
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	pidDir := filepath.Dir(c.PIDPath)
	if pidDir != socketDir {
		if err := os.MkdirAll(pidDir, 0755); err != nil {
			return fmt.Errorf("failed to create PID directory: %w", err)
		}
	}

	return nil
}
