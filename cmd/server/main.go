package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "sso-server",
		Short:         "Multi-tenant single sign-on identity provider",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.New()
			logging.Init(cfg.GetEnv(), cfg.GetLogLevel())
		},
	}

	// Subcommands read cfg lazily; it is only populated once PersistentPreRun has run.
	getConfig := func() config.Config { return cfg }

	root.AddCommand(
		newServeCommand(getConfig),
		newMigrateCommand(getConfig),
		newCleanupCommand(getConfig),
		newKeygenCommand(getConfig),
		newBootstrapCommand(getConfig),
	)
	return root
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
