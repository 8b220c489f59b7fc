package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/errors"
	"github.com/baysets/baysets/internal/rawindex"
)

// Open constructs the PairSource selected by cfg.Ingest.Source.
func Open(ctx context.Context, cfg config.IngestConfig) (PairSource, error) {
	switch cfg.Source {
	case "sqlite":
		return NewSQLiteSource(ctx, cfg.SQLiteDSN, cfg.SQLiteQuery)
	case "flatfile":
		return NewFlatFileSource(cfg.FlatFilePath)
	case "memory":
		return NewMemorySource(nil), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown ingest source %q", cfg.Source), nil)
	}
}

// Drain walks src to completion, feeding every pair into b. It closes src
// when done (on success or failure) but leaves b's lifecycle to the
// caller, since the caller also controls when to Close the builder.
func Drain(ctx context.Context, src PairSource, b *rawindex.Builder, logger *slog.Logger) error {
	defer func() { _ = src.Close() }()
	if logger == nil {
		logger = slog.Default()
	}

	var n int
	for {
		pair, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := b.Add(pair.ItemID, pair.FeatureLabel); err != nil {
			return err
		}
		n++
	}

	logger.Info("ingest drained", "pairs", n)
	return nil
}
