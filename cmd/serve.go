package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/goharvest/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduler",
		Long:  `Starts the HTTP API server and, when enabled in config, the cron scheduler that sweeps due sources.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.RunServer(cmd.Context())
		},
	}
}
