package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"climate-server/internal/app"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the climate API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.String("http-addr", "", "listen address (HTTP_ADDR)")
	flags.Bool("strict-dates", false, "reject start/end values that are not YYYY-MM-DD (STRICT_DATES)")
	_ = c.v.BindPFlag("http_addr", flags.Lookup("http-addr"))
	_ = c.v.BindPFlag("strict_dates", flags.Lookup("strict-dates"))
	return cmd
}

func (c *cli) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, c.cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("shutting down")
	return nil
}
