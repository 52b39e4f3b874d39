package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"visamatch/internal/eligibility/handler"
	"visamatch/internal/eligibility/service"
)

func newJobsCmd(root *rootOptions) *cobra.Command {
	req := service.ListJobsRequest{}
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List postings with the verdict for one visa",
		Example: `  # Every demo posting for a permanent resident
  visamatch jobs --visa F-5

  # Part-time postings a verified student can take
  visamatch jobs --worker worker-student --board PART_TIME --hide-blocked`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := root.newService(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			page, err := svc.ListEligibleJobs(cmd.Context(), req)
			if err != nil {
				return err
			}
			if root.output == formatJSON {
				return writeJSON(cmd.OutOrStdout(), handler.FromJobPage(page))
			}

			w := cmd.OutOrStdout()
			t := newTable(w)
			t.AppendHeader(table.Row{"Job", "Title", "Board", "Industry", "Status", "Why", "Documents"})
			for _, row := range page.Items {
				status, why, docs := verdictCells(row.Result, row.Err)
				t.AppendRow(table.Row{row.Job.ID, row.Job.Title, row.Job.Constraints.BoardType, row.Job.Constraints.IndustryCategory, status, why, docs})
			}
			t.SetCaption("visa %s, page %d of %d rows", page.VisaCode, page.Page, page.Total)
			t.Render()
			renderSummary(w, page.Summary)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.VisaCode, "visa", "", "visa code, e.g. F-5")
	f.StringVar(&req.WorkerID, "worker", "", "worker id whose verified visa record to use")
	f.StringVar(&req.BoardType, "board", "", "filter by board: PART_TIME or FULL_TIME")
	f.StringVar(&req.Industry, "industry", "", "filter by industry category")
	f.BoolVar(&req.HideBlocked, "hide-blocked", false, "omit postings the visa cannot take")
	f.IntVar(&req.Page, "page", 1, "page number")
	f.IntVar(&req.PageSize, "page-size", 20, "rows per page")
	return cmd
}
