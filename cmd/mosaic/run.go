package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pubsubAdapter "github.com/tbonfort/be-big-data/internal/adapters/pubsub"
	"github.com/tbonfort/be-big-data/internal/ports"
)

func newRunCmd(st *cliState) *cobra.Command {
	var requestPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a single request read from a JSON file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := st.load(cmd)
			if err != nil {
				return err
			}
			body, err := readRequest(requestPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req, _, err := pubsubAdapter.DecodeRequest(body)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()
			}

			deps, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.close()

			if err := deps.service.Start(context.Background()); err != nil {
				return err
			}
			start := time.Now()
			procErr := deps.service.Process(ctx, req)
			if procErr == nil {
				deps.logger.Info("tile written",
					ports.Destination(req.Destination),
					ports.Duration("elapsed", time.Since(start)),
				)
			}
			return errors.Join(procErr, deps.service.Stop())
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "-", "request JSON file, bare or Pub/Sub push envelope (- for stdin)")
	return cmd
}

func readRequest(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return b, nil
}
