package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"visamatch/internal/eligibility/handler"
)

func newVisasCmd(root *rootOptions) *cobra.Command {
	var codes []string
	cmd := &cobra.Command{
		Use:   "visas <job-id>",
		Short: "List which visas may take one posting",
		Example: `  # Every catalog visa against a posting
  visamatch visas job-factory-line

  # Selected visas only
  visamatch visas job-club-host --codes F-5,H-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := root.newService(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			matches, err := svc.ListMatchingVisas(cmd.Context(), args[0], codes)
			if err != nil {
				return err
			}
			if root.output == formatJSON {
				return writeJSON(cmd.OutOrStdout(), handler.FromVisaMatches(matches))
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s at %s (%s)\n", matches.Job.Title, matches.Job.Employer, matches.Job.ID)
			t := newTable(w)
			t.AppendHeader(table.Row{"Visa", "Status", "Why", "Documents"})
			for _, row := range matches.Items {
				status, why, docs := verdictCells(row.Result, row.Err)
				t.AppendRow(table.Row{row.Code, status, why, docs})
			}
			t.Render()
			renderSummary(w, matches.Summary)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "visa codes to evaluate (default: every catalog visa)")
	return cmd
}
