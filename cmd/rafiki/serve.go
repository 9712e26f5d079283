package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rafiki-assist/rafiki/pkg/httpserver"
	"github.com/rafiki-assist/rafiki/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API and the ops listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.log)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "failed to assemble service", logger.Error(err))
		return err
	}
	defer a.Close()

	api := httpserver.NewFromConfig(cfg.http,
		httpserver.WithName("api"),
		httpserver.WithLogger(log),
	)
	ops := httpserver.NewFromConfig(cfg.http,
		httpserver.WithAddr(cfg.app.MetricsAddr),
		httpserver.WithName("ops"),
		httpserver.WithLogger(log),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(ctx, a.api) })
	g.Go(func() error { return ops.Run(ctx, a.ops) })
	return g.Wait()
}
