// Package cmd implements the command-line interface for goharvest.
// It provides the root command and subcommands for running scraping
// executions, promoting documents, and managing sources.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "goharvest",
	Short: "Regulatory document harvester",
	Long:  `Scrapes regulatory sources, stores deduplicated documents, and promotes them into change records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yml or CONFIG_PATH)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("goharvest version 1.0.0")
		},
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newPromoteCommand())
	rootCmd.AddCommand(newSourcesCommand())
}
