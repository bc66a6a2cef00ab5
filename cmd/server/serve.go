package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(getConfig func() config.Config) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the cleanup scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			displayAppname(cfg.GetAppName())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if migrateFirst {
				if err := migrateDatabase(cfg, "up"); err != nil {
					return err
				}
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadSigningKey(); err != nil {
		return err
	}
	authService, err := a.newAuthService()
	if err != nil {
		return err
	}
	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, server.Deps{
		Auth:    authService,
		Engines: a.engines,
		Users:   a.repos.Users,
		DB:      a.pool,
		Metrics: metricsHandler,
	})
	if err != nil {
		return err
	}
	sched, err := a.newScheduler()
	if err != nil {
		return err
	}

	log.Info().
		Str("env", cfg.GetEnv()).
		Str("issuer", a.engines.Issuer.Issuer()).
		Str("kid", a.engines.Issuer.KeyID()).
		Msg("starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return sched.Run(ctx) })
	return g.Wait()
}
