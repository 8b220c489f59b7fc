package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/daemon"
	"github.com/baysets/baysets/internal/tui"
	"github.com/baysets/baysets/pkg/baysets"
)

func newQueryCmd() *cobra.Command {
	var (
		dir      string
		topK     int
		format   string
		local    bool
		interact bool
	)

	cmd := &cobra.Command{
		Use:   "query <item-id> [item-id...]",
		Short: "Expand a query set into the top-K most similar items",
		Long: `Resolve the given item ids to rows, compute the fused per-query
weight vector, and return the top-K candidates ranked by log-score.

A running daemon is preferred (baysets daemon start) and avoids re-reading
the index from disk; pass --local to always load the index directly in
this process instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemIDs, err := parseItemIDs(args)
			if err != nil {
				return err
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}

			cfg, err := config.Load(absDir)
			if err != nil {
				cfg = config.NewConfig()
			}

			rows, err := runQuery(cmd.Context(), absDir, cfg, itemIDs, topK, local)
			if err != nil {
				return err
			}

			return renderQueryResults(cmd, absDir, cfg, itemIDs, rows, format, interact)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Computed index directory")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of results to return (default from config)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&local, "local", false, "Always load the index locally, bypassing the daemon")
	cmd.Flags().BoolVar(&interact, "browse", false, "Open the interactive result browser instead of printing")

	return cmd
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// runQuery tries the daemon first (if it's running and not bypassed with
// --local), falling back to a local load-and-query.
func runQuery(ctx context.Context, dir string, cfg *config.Config, itemIDs []int64, topK int, local bool) ([]tui.ResultRow, error) {
	if !local {
		dCfg := daemon.DefaultConfig()
		client := daemon.NewClient(dCfg)
		if client.IsRunning() {
			results, err := client.Query(ctx, daemon.QueryParams{Dir: dir, ItemIDs: itemIDs, TopK: topK})
			if err == nil {
				return toResultRows(results), nil
			}
		}
	}

	computed, err := baysets.Load(ctx, dir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	results, err := computed.Query(ctx, itemIDs, topK)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	rows := make([]tui.ResultRow, len(results))
	for i, r := range results {
		rows[i] = tui.ResultRow{Rank: i + 1, ItemID: r.ItemID, LogScore: r.LogScore}
	}
	return rows, nil
}

func toResultRows(results []daemon.QueryResultItem) []tui.ResultRow {
	rows := make([]tui.ResultRow, len(results))
	for i, r := range results {
		rows[i] = tui.ResultRow{Rank: i + 1, ItemID: r.ItemID, LogScore: r.LogScore}
	}
	return rows
}

func renderQueryResults(cmd *cobra.Command, dir string, cfg *config.Config, itemIDs []int64, rows []tui.ResultRow, format string, interact bool) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	out := cmd.OutOrStdout()

	if interact {
		explainFn := func(row tui.ResultRow) ([]tui.ExplainTerm, float64, error) {
			computed, err := baysets.Load(cmd.Context(), dir, cfg)
			if err != nil {
				return nil, 0, err
			}
			result, ok := computed.Explain(itemIDs, row.ItemID, cfg.Query.MaxExplainTerms, cfg.Query.AttributionMode)
			if !ok {
				return nil, 0, fmt.Errorf("item %d not found in index", row.ItemID)
			}
			terms := make([]tui.ExplainTerm, len(result.Scores))
			for i, t := range result.Scores {
				terms[i] = tui.ExplainTerm{FeatureLabel: t.FeatureLabel, Contribution: t.Contribution}
			}
			return terms, result.TotalScore, nil
		}

		if f, ok := out.(*os.File); ok {
			return tui.Browse(rows, tui.BrowseOptions{Output: f, Explain: explainFn})
		}
		return tui.RenderPlain(out, rows)
	}

	return tui.RenderPlain(out, rows)
}
