package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/index"
	"github.com/baysets/baysets/internal/ingest"
	"github.com/baysets/baysets/internal/logging"
	"github.com/baysets/baysets/internal/preflight"
	"github.com/baysets/baysets/internal/rawindex"
	"github.com/baysets/baysets/internal/tui"
)

func newBuildCmd() *cobra.Command {
	var (
		noTUI        bool
		force        bool
		skipCheck    bool
		source       string
		sqliteDSN    string
		sqliteQuery  string
		flatFilePath string
	)

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Ingest presence pairs and compute the CSR index",
		Long: `Read (item_id, feature_label) presence pairs from the configured
ingest source, append them to the raw coordinate streams, and build the
CSR matrix and Beta-Bernoulli hyperparameters over them.

The ingest source is selected by ingest.source in .baysets.yaml (memory,
sqlite, or flatfile); --source and its related flags override the config
for this run only.

Use --force to clear an existing index directory and rebuild from scratch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			return runBuild(ctx, cmd, dir, buildOptions{
				noTUI:        noTUI,
				force:        force,
				skipCheck:    skipCheck,
				source:       source,
				sqliteDSN:    sqliteDSN,
				sqliteQuery:  sqliteQuery,
				flatFilePath: flatFilePath,
			})
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&force, "force", false, "Clear an existing index directory before building")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip pre-flight system checks")
	cmd.Flags().StringVar(&source, "source", "", "Ingest source: memory, sqlite, or flatfile (overrides config)")
	cmd.Flags().StringVar(&sqliteDSN, "sqlite-dsn", "", "Data source name for the sqlite ingest source")
	cmd.Flags().StringVar(&sqliteQuery, "sqlite-query", "", "SELECT statement for the sqlite ingest source")
	cmd.Flags().StringVar(&flatFilePath, "flatfile-path", "", "Path to the flat-file ingest source")

	return cmd
}

type buildOptions struct {
	noTUI        bool
	force        bool
	skipCheck    bool
	source       string
	sqliteDSN    string
	sqliteQuery  string
	flatFilePath string
}

func runBuild(ctx context.Context, cmd *cobra.Command, dir string, opts buildOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if !opts.skipCheck {
		checker := preflight.New(preflight.WithOutput(os.Stderr))
		results := checker.RunAll(ctx, absDir)
		if checker.HasCriticalFailures(results) {
			checker.PrintResults(results)
			return fmt.Errorf("system check failed, run 'baysets doctor' for diagnostics")
		}
	}

	cfg, err := config.Load(absDir)
	if err != nil {
		cfg = config.NewConfig()
	}
	if opts.source != "" {
		cfg.Ingest.Source = opts.source
	}
	if opts.sqliteDSN != "" {
		cfg.Ingest.SQLiteDSN = opts.sqliteDSN
	}
	if opts.sqliteQuery != "" {
		cfg.Ingest.SQLiteQuery = opts.sqliteQuery
	}
	if opts.flatFilePath != "" {
		cfg.Ingest.FlatFilePath = opts.flatFilePath
	}

	if opts.force {
		if err := clearBuildArtifacts(absDir); err != nil {
			return fmt.Errorf("failed to clear existing index: %w", err)
		}
	}

	rendCfg := tui.NewConfig(cmd.OutOrStdout(), tui.WithForcePlain(opts.noTUI), tui.WithIndexDir(absDir))
	renderer := tui.NewRenderer(rendCfg)
	if err := renderer.Start(ctx); err != nil {
		slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	start := time.Now()

	src, err := ingest.Open(ctx, cfg.Ingest)
	if err != nil {
		return fmt.Errorf("failed to open ingest source: %w", err)
	}

	builder, err := rawindex.Open(absDir, slog.Default())
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to open raw index: %w", err)
	}

	renderer.UpdateProgress(tui.ProgressEvent{Stage: tui.StageIngesting, Message: "Ingesting pairs..."})

	var pairs, errorCount, warnCount int
	for {
		select {
		case <-ctx.Done():
			_ = builder.Close()
			_ = src.Close()
			return ctx.Err()
		default:
		}

		pair, ok, err := src.Next(ctx)
		if err != nil {
			renderer.AddError(tui.ErrorEvent{Source: "ingest", Err: err, IsWarn: false})
			errorCount++
			_ = builder.Close()
			_ = src.Close()
			return fmt.Errorf("ingest failed: %w", err)
		}
		if !ok {
			break
		}

		if err := builder.Add(pair.ItemID, pair.FeatureLabel); err != nil {
			renderer.AddError(tui.ErrorEvent{Source: fmt.Sprintf("item:%d", pair.ItemID), Err: err, IsWarn: false})
			errorCount++
			_ = builder.Close()
			_ = src.Close()
			return fmt.Errorf("failed to append pair: %w", err)
		}

		pairs++
		if pairs%500 == 0 {
			renderer.UpdateProgress(tui.ProgressEvent{
				Stage:    tui.StageIngesting,
				Current:  pairs,
				RowLabel: fmt.Sprintf("item:%d", pair.ItemID),
			})
		}
	}
	_ = src.Close()

	if err := builder.Close(); err != nil {
		return fmt.Errorf("failed to close raw index: %w", err)
	}

	renderer.UpdateProgress(tui.ProgressEvent{Stage: tui.StageCompacting, Message: "Compacting CSR matrix..."})

	computed, err := index.Load(ctx, absDir, cfg.Model.SmoothingC, cfg.Model.ParallelRowThreshold)
	if err != nil {
		return fmt.Errorf("failed to compact index: %w", err)
	}

	renderer.UpdateProgress(tui.ProgressEvent{Stage: tui.StageComplete})

	st := computed.Stats()
	renderer.Complete(tui.CompletionStats{
		Rows:     st.N,
		Pairs:    pairs,
		Duration: time.Since(start),
		Errors:   errorCount,
		Warnings: warnCount,
	})

	return nil
}

// clearBuildArtifacts removes the four on-disk index files and build lock,
// leaving .baysets.yaml (which lives alongside them, not inside them)
// untouched.
func clearBuildArtifacts(dir string) error {
	artifacts := []string{
		filepath.Join(dir, "index.xco"),
		filepath.Join(dir, "index.yco"),
		filepath.Join(dir, "index.ids"),
		filepath.Join(dir, "index.fts"),
		filepath.Join(dir, ".baysets.lock"),
	}

	for _, path := range artifacts {
		if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
	}

	return nil
}
