package baysets

import (
	"context"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/explain"
	"github.com/baysets/baysets/internal/index"
	"github.com/baysets/baysets/internal/query"
)

// Computed is a loaded, read-only Bayesian-Sets index ready to serve
// queries. It embeds internal/index.Computed, so Stats() and direct
// Matrix/Hyper/Rows/Feats access are available too for callers that need
// them; Query and Explain below are the facade's two headline operations.
type Computed struct {
	*index.Computed
	cfg *config.Config
}

// Load reads the four-file computed index rooted at dir, builds the
// canonical CSR matrix, and precomputes hyperparameters using cfg's model
// settings. A nil cfg uses config.NewConfig()'s defaults.
func Load(ctx context.Context, dir string, cfg *config.Config) (*Computed, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	c, err := index.Load(ctx, dir, cfg.Model.SmoothingC, cfg.Model.ParallelRowThreshold)
	if err != nil {
		return nil, err
	}
	return &Computed{Computed: c, cfg: cfg}, nil
}

// Query expands itemIDs into the top-K most similar items. topK <= 0 uses
// cfg.Query.TopKDefault. Unknown item ids are silently dropped; an empty
// resolved query set returns an empty result without scoring.
func (c *Computed) Query(ctx context.Context, itemIDs []int64, topK int) ([]query.Result, error) {
	if topK <= 0 {
		topK = c.cfg.Query.TopKDefault
	}
	return c.NewHandler().Query(ctx, itemIDs, topK)
}

// Explain decomposes rowItemID's score against the query set itemIDs into
// per-feature contributions. maxTerms == 0 uses cfg.Query.MaxExplainTerms;
// mode == "" uses cfg.Query.AttributionMode. The second return value is
// false when rowItemID is not a known item id.
func (c *Computed) Explain(itemIDs []int64, rowItemID int64, maxTerms int, mode config.AttributionMode) (explain.Result, bool) {
	row, ok := c.Rows.Lookup(rowItemID)
	if !ok {
		return explain.Result{}, false
	}
	if mode == "" {
		mode = c.cfg.Query.AttributionMode
	}
	if maxTerms == 0 {
		maxTerms = c.cfg.Query.MaxExplainTerms
	}

	prep := c.NewHandler().Prepare(itemIDs)
	return c.Computed.Explain(prep, row, maxTerms, mode), true
}
