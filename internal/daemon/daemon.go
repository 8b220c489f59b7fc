package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/baysets/baysets/internal/cache"
	baysetsconfig "github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/index"
)

// Daemon is a long-running background process serving query/explain/status
// over a Unix socket, keeping an LRU of computed indexes warm so a CLI
// invocation doesn't pay the four-file load cost on every call.
type Daemon struct {
	cfg     Config
	cache   *cache.IndexCache
	server  *Server
	pidFile *PIDFile

	mu      sync.RWMutex
	started time.Time
}

// Option configures a Daemon at construction time.
type Option func(*Daemon)

// WithCache injects a pre-built index cache, e.g. a fixture in tests that
// skips the real directory-loader.
func WithCache(c *cache.IndexCache) Option {
	return func(d *Daemon) { d.cache = c }
}

// NewDaemon creates a Daemon from cfg. A nil cfg.App uses config.NewConfig().
func NewDaemon(cfg Config, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.App == nil {
		cfg.App = baysetsconfig.NewConfig()
	}

	d := &Daemon{
		cfg:     cfg,
		pidFile: NewPIDFile(cfg.PIDPath),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.cache == nil {
		c, err := cache.New(cfg.MaxIndexes, func(ctx context.Context, dir string) (*index.Computed, error) {
			return index.Load(ctx, dir, cfg.App.Model.SmoothingC, cfg.App.Model.ParallelRowThreshold)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create index cache: %w", err)
		}
		d.cache = c
	}

	srv, err := NewServer(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	srv.SetHandler(d)
	d.server = srv

	return d, nil
}

// Start writes the PID file, binds the Unix socket, and serves requests
// until ctx is cancelled. It always cleans up the PID file on return.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDir(); err != nil {
		return err
	}
	if err := d.pidFile.Write(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() {
		if err := d.pidFile.Remove(); err != nil {
			slog.Warn("daemon: failed to remove PID file", slog.String("error", err.Error()))
		}
	}()

	d.mu.Lock()
	d.started = time.Now()
	d.mu.Unlock()

	slog.Info("daemon: starting",
		slog.String("socket", d.cfg.SocketPath),
		slog.Int("max_indexes", d.cfg.MaxIndexes))

	return d.server.ListenAndServe(ctx)
}

// Close stops the server and releases the index cache.
func (d *Daemon) Close() error {
	d.mu.Lock()
	d.cache = nil
	d.mu.Unlock()
	return d.server.Close()
}

// HandleQuery implements RequestHandler, loading (or reusing) the computed
// index at params.Dir and running the top-K scan over params.ItemIDs.
func (d *Daemon) HandleQuery(ctx context.Context, params QueryParams) ([]QueryResultItem, error) {
	c, appCfg := d.snapshot()
	if c == nil {
		return nil, fmt.Errorf("daemon is not started")
	}

	computed, err := c.Get(ctx, params.Dir)
	if err != nil {
		return nil, fmt.Errorf("no index found at %s: %w", params.Dir, err)
	}

	topK := params.TopK
	if topK <= 0 {
		topK = appCfg.Query.TopKDefault
	}

	results, err := computed.NewHandler().Query(ctx, params.ItemIDs, topK)
	if err != nil {
		return nil, err
	}

	out := make([]QueryResultItem, len(results))
	for i, r := range results {
		out[i] = QueryResultItem{ItemID: r.ItemID, LogScore: r.LogScore}
	}
	return out, nil
}

// HandleExplain implements RequestHandler, decomposing params.RowID's log
// score against the query set params.ItemIDs.
func (d *Daemon) HandleExplain(ctx context.Context, params ExplainParams) (ExplainResult, error) {
	c, appCfg := d.snapshot()
	if c == nil {
		return ExplainResult{}, fmt.Errorf("daemon is not started")
	}

	computed, err := c.Get(ctx, params.Dir)
	if err != nil {
		return ExplainResult{}, fmt.Errorf("no index found at %s: %w", params.Dir, err)
	}

	row, ok := computed.Rows.Lookup(params.RowID)
	if !ok {
		return ExplainResult{}, fmt.Errorf("row_id %d is not a known item id", params.RowID)
	}

	mode := appCfg.Query.AttributionMode
	if params.Mode != "" {
		mode = baysetsconfig.AttributionMode(params.Mode)
	}

	maxTerms := params.MaxTerms
	if maxTerms == 0 {
		maxTerms = appCfg.Query.MaxExplainTerms
	}

	prep := computed.NewHandler().Prepare(params.ItemIDs)
	result := computed.Explain(prep, row, maxTerms, mode)

	out := ExplainResult{Terms: make([]ExplainTerm, len(result.Scores)), TotalScore: result.TotalScore}
	for i, t := range result.Scores {
		out.Terms[i] = ExplainTerm{FeatureLabel: t.FeatureLabel, Contribution: t.Contribution}
	}
	return out, nil
}

// GetStatus implements RequestHandler.
func (d *Daemon) GetStatus() StatusResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexesLoaded := 0
	if d.cache != nil {
		indexesLoaded = d.cache.Len()
	}

	return StatusResult{
		Running:       true,
		PID:           os.Getpid(),
		Uptime:        time.Since(d.started).Round(time.Second).String(),
		IndexesLoaded: indexesLoaded,
	}
}

// InvalidateIndex evicts dir's cached computed index, if any, so the next
// query/explain request reloads it from disk. Called from the serve command
// when internal/reload signals that dir's on-disk index was replaced.
func (d *Daemon) InvalidateIndex(dir string) {
	d.mu.RLock()
	c := d.cache
	d.mu.RUnlock()
	if c != nil {
		c.Invalidate(dir)
	}
}

func (d *Daemon) snapshot() (*cache.IndexCache, *baysetsconfig.Config) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache, d.cfg.App
}
