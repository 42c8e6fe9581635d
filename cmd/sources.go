package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/goharvest/internal/bootstrap"
)

func newSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage scraping sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSourcesListCommand())
	cmd.AddCommand(newSourcesImportCommand())

	return cmd
}

func newSourcesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			sources, err := app.Sources.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sources: %w", err)
			}

			if len(sources) == 0 {
				fmt.Println("No sources configured")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)

			t.AppendHeader(table.Row{"ID", "Name", "Type", "URL", "Enabled", "Interval (min)", "Next Run"})
			for _, s := range sources {
				nextRun := ""
				if s.NextRunAt != nil {
					nextRun = s.NextRunAt.Format("2006-01-02 15:04")
				}
				t.AppendRow(table.Row{s.ID, s.Name, s.Type, s.URL, s.Enabled, s.IntervalMinutes, nextRun})
			}

			t.Render()
			return nil
		},
	}
}

func newSourcesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import sources from an Excel spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Importer.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("created=%d updated=%d skipped=%d\n", result.Created, result.Updated, result.Skipped)
			for _, importErr := range result.Errors {
				fmt.Printf("row %d: %s\n", importErr.Row, importErr.Error)
			}
			return nil
		},
	}
}
