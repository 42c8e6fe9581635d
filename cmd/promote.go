package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/goharvest/internal/bootstrap"
	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/promoter"
)

func newPromoteCommand() *cobra.Command {
	var (
		documentID  string
		executionID string
		code        string
		priority    string
		validators  []string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote documents into change records",
		Long:  `Promotes one document by id, or every pending document when no document is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cfgFile)
			if err != nil {
				return err
			}
			defer app.Close()

			if documentID != "" {
				result, promoteErr := app.Promoter.PromoteDocument(cmd.Context(), promoter.Request{
					DocumentID: documentID,
					Code:       code,
					Priority:   domain.Priority(priority),
					Validators: validators,
					PromotedBy: triggeredByCLI,
				})
				if promoteErr != nil {
					return promoteErr
				}
				renderPromotions([]promoter.DocumentResult{*result})
				return nil
			}

			batch, batchErr := app.Promoter.PromoteAllPending(cmd.Context(), executionID, triggeredByCLI)
			if batchErr != nil {
				return batchErr
			}

			renderPromotions(batch.Results)
			fmt.Printf("promoted=%d ignored=%d errors=%d\n", batch.Promoted, batch.Ignored, batch.Errors)
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "document id to promote (empty promotes all pending)")
	cmd.Flags().StringVar(&executionID, "execution", "", "limit batch promotion to one execution")
	cmd.Flags().StringVar(&code, "code", "", "change code override")
	cmd.Flags().StringVar(&priority, "priority", "", "priority override (low, medium, high)")
	cmd.Flags().StringSliceVar(&validators, "validators", nil, "affected validator tags override")

	return cmd
}

func renderPromotions(results []promoter.DocumentResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Document", "Outcome", "Change", "Code", "Note"})
	for _, r := range results {
		t.AppendRow(table.Row{r.DocumentID, r.Outcome, r.ChangeID, r.Code, r.Note})
	}

	t.Render()
}
