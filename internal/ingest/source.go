// Package ingest defines the PairSource contract the raw-index builder
// walks to populate presence pairs, and the memory, SQLite, and flat-file
// implementations selected by config.IngestConfig.Source (spec.md §9's
// "runtime-flexible iterator ingestion" design note).
package ingest

import "context"

// Pair is a single (item_id, feature_label) presence pair yielded by a
// PairSource.
type Pair struct {
	ItemID       int64
	FeatureLabel string
}

// PairSource is a pull-style iterator over presence pairs. Next returns
// the next pair and true, or the zero Pair and false once the source is
// exhausted. A non-nil error is fatal and aborts the build (spec §7's
// build-error taxonomy); exhaustion is signalled by (Pair{}, false, nil).
type PairSource interface {
	Next(ctx context.Context) (Pair, bool, error)
	Close() error
}
