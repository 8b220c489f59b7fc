package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/daemon"
	"github.com/baysets/baysets/internal/logging"
	"github.com/baysets/baysets/internal/mcpserver"
	"github.com/baysets/baysets/internal/reload"
	"github.com/baysets/baysets/pkg/baysets"
)

func newServeCmd() *cobra.Command {
	var (
		dir       string
		transport string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built index over the daemon's Unix socket or an MCP transport",
		Long: `Run one of two server transports over a computed index:

  --transport unix   start the long-running daemon (internal/daemon), the
                      same process "baysets daemon start" manages, keeping
                      an LRU of computed indexes warm across CLI calls.

  --transport stdio   start an MCP server (internal/mcpserver) exposing
                      query/explain/stats tools to an MCP client speaking
                      over standard input/output.

With --watch, a filesystem watcher (internal/reload) invalidates the
in-memory index whenever the on-disk four-file index is replaced by a
fresh build, so a long-running server picks up a rebuilt index without
restarting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}

			switch transport {
			case "unix":
				return runServeDaemon(ctx, absDir, watch)
			case "stdio":
				return runServeMCP(ctx, absDir, watch)
			default:
				return fmt.Errorf("unknown transport %q (supported: unix, stdio)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Computed index directory")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: unix (daemon) or stdio (MCP)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the index when its directory is replaced by a fresh build")

	return cmd
}

func runServeDaemon(ctx context.Context, dir string, watch bool) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	dCfg := daemon.DefaultConfig()
	d, err := daemon.NewDaemon(dCfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if watch {
		w, err := reload.New(dir, reload.DefaultDebounce, slog.Default())
		if err != nil {
			slog.Warn("serve: failed to start reload watcher", slog.String("error", err.Error()))
		} else {
			defer func() { _ = w.Close() }()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-w.Changed():
						slog.Info("serve: index directory changed, invalidating cache", slog.String("dir", dir))
						d.InvalidateIndex(dir)
					case err := <-w.Errors():
						slog.Warn("serve: reload watcher error", slog.String("error", err.Error()))
					}
				}
			}()
		}
	}

	return d.Start(ctx)
}

func runServeMCP(ctx context.Context, dir string, watch bool) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = true
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		cfg = config.NewConfig()
	}

	computed, err := baysets.Load(ctx, dir, cfg)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	srv, err := mcpserver.NewServer(computed.Computed, cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if watch {
		w, err := reload.New(dir, reload.DefaultDebounce, slog.Default())
		if err != nil {
			slog.Warn("serve: failed to start reload watcher", slog.String("error", err.Error()))
		} else {
			defer func() { _ = w.Close() }()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-w.Changed():
						reloaded, err := baysets.Load(ctx, dir, cfg)
						if err != nil {
							slog.Warn("serve: failed to reload index", slog.String("error", err.Error()))
							continue
						}
						slog.Info("serve: index directory changed, swapping in reloaded index", slog.String("dir", dir))
						srv.SetIndex(reloaded.Computed)
					case err := <-w.Errors():
						slog.Warn("serve: reload watcher error", slog.String("error", err.Error()))
					}
				}
			}()
		}
	}

	return srv.Serve(ctx, "stdio")
}
