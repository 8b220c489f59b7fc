package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/logging"
)

// newLogsCmd creates the logs command.
func newLogsCmd() *cobra.Command {
	var (
		follow  bool
		lines   int
		level   string
		filter  string
		noColor bool
		logFile string
		source  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View baysets daemon and build logs",
		Long: `View and tail baysets logs from the daemon and build commands.

By default, shows the last 50 lines of the daemon log. Use -f to follow new
log entries in real-time (like 'tail -f').

Log Sources:
  daemon  query-serving daemon logs (~/.baysets/logs/daemon.log)
  build   'baysets build' logs (~/.baysets/logs/build.log)
  all     both sources merged by timestamp

Examples:
  baysets logs                     # Show last 50 lines (daemon)
  baysets logs --source build      # Show build logs
  baysets logs --source all -f     # Follow all logs in real-time
  baysets logs -n 100              # Show last 100 lines
  baysets logs --level error       # Show only error logs
  baysets logs --filter "timeout"  # Filter by pattern`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, logsOptions{
				follow:  follow,
				lines:   lines,
				level:   level,
				filter:  filter,
				noColor: noColor,
				logFile: logFile,
				source:  source,
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&logFile, "file", "", "Path to log file (overrides --source)")
	cmd.Flags().StringVar(&source, "source", "daemon", "Log source: daemon, build, or all")

	return cmd
}

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
	source  string
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	logSource := logging.ParseLogSource(opts.source)

	paths, err := logging.FindLogFileBySource(logSource, opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	showSource := logSource == logging.LogSourceAll || len(paths) > 1

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:      opts.level,
		Pattern:    pattern,
		NoColor:    opts.noColor,
		ShowSource: showSource,
	}, cmd.OutOrStdout())

	errOut := cmd.ErrOrStderr()
	if len(paths) == 1 {
		fmt.Fprintf(errOut, "Log file: %s\n", paths[0])
	} else {
		fmt.Fprintf(errOut, "Log files: %s\n", strings.Join(paths, ", "))
	}
	if opts.follow {
		fmt.Fprintf(errOut, "Following... (Ctrl+C to stop)\n")
	}
	fmt.Fprintln(errOut, "---")

	if opts.follow {
		if len(paths) == 1 {
			return runLogsFollow(cmd, viewer, paths[0])
		}
		return runLogsFollowMultiple(cmd, viewer, paths)
	}

	var entries []logging.LogEntry
	if len(paths) == 1 {
		entries, err = viewer.Tail(paths[0], opts.lines)
	} else {
		entries, err = viewer.TailMultiple(paths, opts.lines)
	}
	if err != nil {
		return err
	}

	viewer.Print(entries)
	return nil
}

func runLogsFollow(cmd *cobra.Command, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	return drainLogs(cmd, ctx, viewer, entries, errCh)
}

func runLogsFollowMultiple(cmd *cobra.Command, viewer *logging.Viewer, paths []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.FollowMultiple(ctx, paths, entries)
	}()

	return drainLogs(cmd, ctx, viewer, entries, errCh)
}

func drainLogs(cmd *cobra.Command, ctx context.Context, viewer *logging.Viewer, entries <-chan logging.LogEntry, errCh <-chan error) error {
	out := cmd.OutOrStdout()
	for {
		select {
		case entry := <-entries:
			fmt.Fprintln(out, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "\n---\nStopped.")
			return nil
		}
	}
}
