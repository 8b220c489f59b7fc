package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatsInfo summarizes a computed index for the `stats` CLI command, mirroring
// index.Computed.Stats() plus on-disk sizes and daemon status.
type StatsInfo struct {
	IndexDir string `json:"index_dir"`

	Rows              int       `json:"rows"` // N: number of item rows
	Features          int       `json:"features"` // M: number of distinct features
	NNZ               int       `json:"nnz"`
	AverageRowDensity float64   `json:"average_row_density"`
	BuiltAt           time.Time `json:"built_at"`

	// On-disk sizes of the four-file computed index, in bytes.
	IDsSize   int64 `json:"ids_size"`
	FeatsSize int64 `json:"feats_size"`
	XCOSize   int64 `json:"xco_size"`
	YCOSize   int64 `json:"yco_size"`
	TotalSize int64 `json:"total_size"`

	DaemonStatus string `json:"daemon_status"` // "running", "stopped", "n/a"
}

// StatsRenderer displays index statistics.
type StatsRenderer struct {
	out     io.Writer
	styles  Styles
	noColor bool
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{
		out:     out,
		styles:  GetStyles(noColor),
		noColor: noColor,
	}
}

// Render displays stats info to terminal.
func (r *StatsRenderer) Render(info StatsInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Stats: "+info.IndexDir))

	_, _ = fmt.Fprintf(r.out, "  Rows:     %d\n", info.Rows)
	_, _ = fmt.Fprintf(r.out, "  Features: %d\n", info.Features)
	_, _ = fmt.Fprintf(r.out, "  NNZ:      %d\n", info.NNZ)
	_, _ = fmt.Fprintf(r.out, "  Density:  %.2f features/row\n", info.AverageRowDensity)
	if !info.BuiltAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Built:    %s\n", formatTime(info.BuiltAt))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    index.ids: %s\n", FormatBytes(info.IDsSize))
	_, _ = fmt.Fprintf(r.out, "    index.fts: %s\n", FormatBytes(info.FeatsSize))
	_, _ = fmt.Fprintf(r.out, "    index.xco: %s\n", FormatBytes(info.XCOSize))
	_, _ = fmt.Fprintf(r.out, "    index.yco: %s\n", FormatBytes(info.YCOSize))
	_, _ = fmt.Fprintf(r.out, "    Total:     %s\n", FormatBytes(info.TotalSize))
	_, _ = fmt.Fprintln(r.out)

	if info.DaemonStatus != "" && info.DaemonStatus != "n/a" {
		_, _ = fmt.Fprintf(r.out, "  Daemon: %s\n", r.renderStatus(info.DaemonStatus))
	}

	return nil
}

// RenderJSON outputs stats as JSON.
func (r *StatsRenderer) RenderJSON(info StatsInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatsRenderer) renderStatus(status string) string {
	switch status {
	case "ready", "running":
		return r.styles.Success.Render(status)
	case "offline", "stopped":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
