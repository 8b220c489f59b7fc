package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/daemon"
	"github.com/baysets/baysets/internal/tui"
	"github.com/baysets/baysets/pkg/baysets"
)

func newStatsCmd() *cobra.Command {
	var (
		dir     string
		asJSON  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "Report size and density statistics for a computed index",
		Long: `Load the four-file computed index rooted at dir and report its row
and feature counts, non-zero entry count, average row density, build time,
on-disk file sizes, and whether a daemon is currently running.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dir
			if len(args) > 0 {
				d = args[0]
			}

			absDir, err := filepath.Abs(d)
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}

			info, err := collectStats(cmd.Context(), absDir)
			if err != nil {
				return err
			}

			renderer := tui.NewStatsRenderer(cmd.OutOrStdout(), noColor || tui.DetectNoColor())
			if asJSON {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Computed index directory (may also be given positionally)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func collectStats(ctx context.Context, dir string) (tui.StatsInfo, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		cfg = config.NewConfig()
	}

	computed, err := baysets.Load(ctx, dir, cfg)
	if err != nil {
		return tui.StatsInfo{}, fmt.Errorf("failed to load index: %w", err)
	}
	st := computed.Stats()

	idsSize := fileSize(filepath.Join(dir, "index.ids"))
	ftsSize := fileSize(filepath.Join(dir, "index.fts"))
	xcoSize := fileSize(filepath.Join(dir, "index.xco"))
	ycoSize := fileSize(filepath.Join(dir, "index.yco"))

	daemonStatus := "n/a"
	client := daemon.NewClient(daemon.DefaultConfig())
	if client.IsRunning() {
		daemonStatus = "running"
	} else {
		daemonStatus = "stopped"
	}

	return tui.StatsInfo{
		IndexDir:          dir,
		Rows:              st.N,
		Features:          st.M,
		NNZ:               st.NNZ,
		AverageRowDensity: st.AverageRowDensity,
		BuiltAt:           st.BuiltAt,
		IDsSize:           idsSize,
		FeatsSize:         ftsSize,
		XCOSize:           xcoSize,
		YCOSize:           ycoSize,
		TotalSize:         idsSize + ftsSize + xcoSize + ycoSize,
		DaemonStatus:      daemonStatus,
	}, nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
