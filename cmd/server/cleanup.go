package main

import (
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCleanupCommand(getConfig func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run every cleanup task once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), getConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.newScheduler()
			if err != nil {
				return err
			}
			counts, err := sched.RunOnce(cmd.Context())
			for task, n := range counts {
				log.Info().Str("task", task).Int64("deleted", n).Msg("cleanup")
			}
			return err
		},
	}
}
