package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/goharvest/internal/bootstrap"
	"github.com/jonesrussell/goharvest/internal/orchestrator"
)

const triggeredByCLI = "cli"

func newRunCommand() *cobra.Command {
	var sourceID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scraping executions",
		Long:  `Runs one execution for the given source, or sweeps every due source when no source is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			var results []*orchestrator.Result
			if sourceID != "" {
				result := app.Orchestrator.RunExecution(cmd.Context(), sourceID, triggeredByCLI)
				if result.ExecutionID == "" {
					return fmt.Errorf("execution did not start: %w", result.Err)
				}
				results = append(results, result)
			} else {
				results, err = app.Orchestrator.RunAllDue(cmd.Context(), triggeredByCLI)
				if err != nil {
					return err
				}
			}

			renderResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source", "", "source id to run (empty runs all due sources)")

	return cmd
}

func renderResults(results []*orchestrator.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Execution", "Source", "Status", "Found", "New", "Duplicates", "Errors"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.ExecutionID,
			r.SourceID,
			r.Status,
			r.Found,
			r.New,
			r.Duplicates,
			r.Errors,
		})
	}

	t.Render()
}
