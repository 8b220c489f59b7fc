package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/daemon"
	"github.com/baysets/baysets/pkg/baysets"
)

func newExplainCmd() *cobra.Command {
	var (
		dir      string
		maxTerms int
		mode     string
		format   string
		local    bool
	)

	cmd := &cobra.Command{
		Use:   "explain <row-item-id> -- <query-item-id> [query-item-id...]",
		Short: "Decompose a candidate's log-score into per-feature contributions",
		Long: `Explain why row-item-id scored the way it did against the given
query set: each shared or absent feature's contribution to the fused
log-score, sorted by descending contribution (ties by ascending column)
and optionally truncated to --max-terms.

Separate the row id from the query set with --, matching the root
command's documented usage: baysets explain 42 -- 7 3 9`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, queryIDs, err := splitExplainArgs(args)
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

			attrMode := config.AttributionMode(mode)
			if attrMode == "" {
				attrMode = cfg.Query.AttributionMode
			}

			result, err := runExplain(cmd.Context(), absDir, cfg, queryIDs, rowID, maxTerms, attrMode, local)
			if err != nil {
				return err
			}

			return renderExplainResult(cmd, rowID, result, format)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Computed index directory")
	cmd.Flags().IntVar(&maxTerms, "max-terms", 0, "Maximum number of terms to show (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Attribution mode: present_only or include_absent (default from config)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&local, "local", false, "Always load the index locally, bypassing the daemon")

	return cmd
}

// splitExplainArgs parses "<row-item-id> -- <query-item-id>...", falling
// back to treating the first argument as the row id and the rest as the
// query set when -- is omitted.
func splitExplainArgs(args []string) (int64, []int64, error) {
	sep := -1
	for i, a := range args {
		if a == "--" {
			sep = i
			break
		}
	}

	var rowArg string
	var queryArgs []string
	if sep >= 0 {
		if sep == 0 || sep == len(args)-1 {
			return 0, nil, fmt.Errorf("expected <row-item-id> -- <query-item-id>...")
		}
		rowArg = args[0]
		queryArgs = args[sep+1:]
	} else {
		rowArg = args[0]
		queryArgs = args[1:]
	}

	rowIDs, err := parseItemIDs([]string{rowArg})
	if err != nil {
		return 0, nil, fmt.Errorf("invalid row item id: %w", err)
	}
	queryIDs, err := parseItemIDs(queryArgs)
	if err != nil {
		return 0, nil, err
	}

	return rowIDs[0], queryIDs, nil
}

type explainOutput struct {
	RowItemID  int64                `json:"row_item_id"`
	Terms      []daemon.ExplainTerm `json:"terms"`
	TotalScore float64              `json:"total_score"`
}

func runExplain(ctx context.Context, dir string, cfg *config.Config, itemIDs []int64, rowID int64, maxTerms int, mode config.AttributionMode, local bool) (explainOutput, error) {
	if !local {
		dCfg := daemon.DefaultConfig()
		client := daemon.NewClient(dCfg)
		if client.IsRunning() {
			result, err := client.Explain(ctx, daemon.ExplainParams{
				Dir: dir, ItemIDs: itemIDs, RowID: rowID, MaxTerms: maxTerms, Mode: string(mode),
			})
			if err == nil {
				return explainOutput{RowItemID: rowID, Terms: result.Terms, TotalScore: result.TotalScore}, nil
			}
		}
	}

	computed, err := baysets.Load(ctx, dir, cfg)
	if err != nil {
		return explainOutput{}, fmt.Errorf("failed to load index: %w", err)
	}

	result, ok := computed.Explain(itemIDs, rowID, maxTerms, mode)
	if !ok {
		return explainOutput{}, fmt.Errorf("item %d not found in index", rowID)
	}

	terms := make([]daemon.ExplainTerm, len(result.Scores))
	for i, t := range result.Scores {
		terms[i] = daemon.ExplainTerm{FeatureLabel: t.FeatureLabel, Contribution: t.Contribution}
	}

	return explainOutput{RowItemID: rowID, Terms: terms, TotalScore: result.TotalScore}, nil
}

func renderExplainResult(cmd *cobra.Command, rowID int64, result explainOutput, format string) error {
	out := cmd.OutOrStdout()

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if _, err := fmt.Fprintf(out, "item %d  total=%.6f\n", rowID, result.TotalScore); err != nil {
		return err
	}
	for _, t := range result.Terms {
		if _, err := fmt.Fprintf(out, "  %-32s %+.6f\n", t.FeatureLabel, t.Contribution); err != nil {
			return err
		}
	}
	return nil
}
