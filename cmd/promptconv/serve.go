package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/skosovsky/promptsdk/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve prompt conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Address
			}
			reg, closer, err := a.registry()
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			srv := server.New(server.WithRegistry(reg), server.WithLogger(a.slog))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()
			a.log.WithField("addr", addr).WithField("source", string(a.cfg.Source())).Info("promptconv server started")

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			a.log.Info("promptconv server stopped")
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default ADDRESS)")
	return cmd
}
