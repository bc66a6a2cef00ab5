package main

import (
	"fmt"

	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/store/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCommand(getConfig func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the embedded database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateDatabase(getConfig(), args[0])
		},
	}
}

func migrateDatabase(cfg config.Config, direction string) error {
	if err := postgres.Migrate(cfg.GetDatabaseURL(), direction); err != nil {
		return fmt.Errorf("[migrate %s] %w", direction, err)
	}
	log.Info().Str("direction", direction).Msg("migrations applied")
	return nil
}
