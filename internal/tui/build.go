// Package tui provides terminal UI components for the baysets CLI: a build
// progress display and an interactive result browser for query output.
package tui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a phase of the build pipeline (internal/rawindex append
// followed by the CSR sort/compact pass of §4.2 step 3).
type Stage int

const (
	// StageIngesting covers reading pairs from the ingest.PairSource and
	// appending them to the raw index builder.
	StageIngesting Stage = iota
	// StageCompacting is the per-row sort/dedup/compact pass that turns the
	// raw coordinate streams into the CSR matrix.
	StageCompacting
	// StageComplete indicates the build finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageIngesting:
		return "Ingesting"
	case StageCompacting:
		return "Compacting"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage icon for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageIngesting:
		return "INGEST"
	case StageCompacting:
		return "COMPACT"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update during a build.
type ProgressEvent struct {
	Stage    Stage
	Current  int
	Total    int
	RowLabel string // e.g. the item id currently being ingested
	Message  string
}

// ErrorEvent represents an error or warning raised during a build (e.g. a
// malformed pair from ingest.PairSource).
type ErrorEvent struct {
	Source string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each build stage.
type StageTimings struct {
	Ingest   time.Duration
	Compact  time.Duration
}

// CompletionStats contains final build statistics.
type CompletionStats struct {
	Rows     int // number of distinct item rows ingested
	Pairs    int // number of (item, feature) pairs appended
	Duration time.Duration
	Errors   int
	Warnings int
	Stages   StageTimings
}

// Renderer defines the interface for build progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the build renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	IndexDir   string // directory being built, displayed in header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithIndexDir sets the index directory path to display in the header.
func WithIndexDir(dir string) ConfigOption {
	return func(c *Config) {
		c.IndexDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// NewRenderer creates an appropriate renderer based on config and environment.
// It returns a TUI renderer for interactive terminals, and a plain text
// renderer for CI environments, pipes, or when --no-tui is specified.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain {
		return NewPlainRenderer(cfg)
	}

	if !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}

	if DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}

	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
