package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbonfort/be-big-data/internal/cliconfig"
	"github.com/tbonfort/be-big-data/internal/ports"
	"github.com/tbonfort/be-big-data/internal/server"
)

func newServeCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve composite requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgFile, changed, err := st.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.close()
			log := deps.logger

			log.Info("configuration",
				ports.String("listen", cfg.ListenAddr),
				ports.Int("pool_size", cfg.PoolSize),
				ports.String("method", cfg.Method),
				ports.String("driver", cfg.Driver),
				ports.Bool("cog", cfg.COG),
				ports.Int("preview_size", cfg.PreviewSize),
			)

			if cfg.WatchConfig && cliconfig.FileExists(cfgFile) {
				w := cliconfig.NewWatcher(cfgFile, cliconfig.DefaultDebounce, func() {
					next, err := cliconfig.Load(st.cfg, cfgFile, changed)
					if err != nil {
						log.Warn("config reload rejected", ports.Err(err))
						return
					}
					if err := log.SetLevel(next.LogLevel); err != nil {
						log.Warn("config reload: log level", ports.Err(err))
					}
					deps.service.SetEncoding(next.Encoding())
					log.Info("config reloaded", ports.String("path", cfgFile))
				}, log)
				go func() {
					if err := w.Run(ctx); err != nil {
						log.Warn("config watcher stopped", ports.Err(err))
					}
				}()
			}

			// Detached from ctx: Stop runs after the listener has closed.
			if err := deps.service.Start(context.Background()); err != nil {
				return err
			}

			serveErr := server.Serve(ctx, cfg.ListenAddr, deps.service.Handler(), cfg.ShutdownTimeout, log)
			log.Info("stopping")
			stopErr := deps.service.Stop()
			return errors.Join(serveErr, stopErr)
		},
	}
}
