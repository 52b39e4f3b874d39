package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/handler"
	"visamatch/internal/eligibility/service"
)

type evaluateOptions struct {
	visa        string
	worker      string
	board       string
	hours       int
	industry    string
	allowed     []string
	sponsorship string
	maxHours    int
	industries  []string
	permit      bool
	sponsored   bool
	nationality string
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate [job-id]",
		Short: "Decide whether one visa may take one job",
		Long: `Evaluate a stored posting by id, or ad-hoc job constraints given by flags.

With --worker the worker's verified visa record is used. With only --visa the
code is evaluated without attributes, so rules that need verified facts come
back CONDITIONAL. Attribute flags (--max-hours, --industries, ...) build a
verified-style profile for ad-hoc evaluations.`,
		Example: `  # Stored posting, bare visa code
  visamatch evaluate job-cafe-weekend --visa D-2

  # Stored posting, verified worker
  visamatch evaluate job-factory-line --worker worker-factory

  # Ad-hoc posting and profile
  visamatch evaluate --visa E-9 --board FULL_TIME --hours 40 --industry MANUFACTURING \
    --max-hours 52 --industries MANUFACTURING`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := root.newService(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				ev, err := svc.Evaluate(cmd.Context(), service.EvaluateRequest{
					VisaCode: opts.visa,
					WorkerID: opts.worker,
					JobID:    args[0],
				})
				if err != nil {
					return err
				}
				if root.output == formatJSON {
					return writeJSON(cmd.OutOrStdout(), handler.FromEvaluation(ev))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s at %s (%s)\n", ev.Job.Title, ev.Job.Employer, ev.Job.ID)
				renderResult(cmd, ev.Result, ev.Verified)
				return nil
			}

			if opts.worker != "" {
				return fmt.Errorf("--worker needs a stored job id")
			}
			profile, job, err := opts.direct(cmd)
			if err != nil {
				return err
			}
			result, err := svc.EvaluateDirect(cmd.Context(), profile, job)
			if err != nil {
				return err
			}
			if root.output == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderResult(cmd, result, !profile.IsSynthesized())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.visa, "visa", "", "visa code, e.g. D-2")
	f.StringVar(&opts.worker, "worker", "", "worker id whose verified visa record to use")
	f.StringVar(&opts.board, "board", "", "ad-hoc posting board: PART_TIME or FULL_TIME")
	f.IntVar(&opts.hours, "hours", -1, "ad-hoc posting weekly hours (omit when unstated)")
	f.StringVar(&opts.industry, "industry", "", "ad-hoc posting industry category")
	f.StringSliceVar(&opts.allowed, "allowed", nil, "ad-hoc posting allowed visa codes")
	f.StringVar(&opts.sponsorship, "sponsorship", "", "ad-hoc posting sponsorship: true, false, or empty for unknown")
	f.IntVar(&opts.maxHours, "max-hours", -1, "profile weekly hour cap")
	f.StringSliceVar(&opts.industries, "industries", nil, "profile permitted industries")
	f.BoolVar(&opts.permit, "requires-permit", false, "profile requires a work permit")
	f.BoolVar(&opts.sponsored, "requires-sponsorship", false, "profile requires employer sponsorship")
	f.StringVar(&opts.nationality, "nationality", "", "profile nationality")
	return cmd
}

// direct builds the profile and constraints for an ad-hoc evaluation.
func (o *evaluateOptions) direct(cmd *cobra.Command) (eligibility.VisaProfile, eligibility.JobConstraints, error) {
	if o.visa == "" {
		return eligibility.VisaProfile{}, eligibility.JobConstraints{}, fmt.Errorf("--visa is required")
	}

	var attrs *eligibility.VisaAttributes
	f := cmd.Flags()
	if f.Changed("max-hours") || f.Changed("industries") || f.Changed("requires-permit") ||
		f.Changed("requires-sponsorship") || f.Changed("nationality") {
		attrs = &eligibility.VisaAttributes{
			PermittedIndustries: o.industries,
			RequiresWorkPermit:  o.permit,
			RequiresSponsorship: o.sponsored,
			Nationality:         o.nationality,
		}
		if o.maxHours >= 0 {
			hours := o.maxHours
			attrs.MaxWeeklyHours = &hours
		}
	}
	profile, err := eligibility.NewVisaProfile(o.visa, attrs)
	if err != nil {
		return eligibility.VisaProfile{}, eligibility.JobConstraints{}, err
	}

	job := eligibility.JobConstraints{
		BoardType:        eligibility.BoardType(o.board),
		IndustryCategory: o.industry,
	}
	if f.Changed("hours") {
		hours := o.hours
		job.WeeklyHours = &hours
	}
	for _, code := range o.allowed {
		job.AllowedVisaCodes = append(job.AllowedVisaCodes, eligibility.VisaCode(code))
	}
	switch strings.ToLower(o.sponsorship) {
	case "":
	case "true", "yes":
		v := true
		job.RequiresSponsorship = &v
	case "false", "no":
		v := false
		job.RequiresSponsorship = &v
	default:
		return eligibility.VisaProfile{}, eligibility.JobConstraints{}, fmt.Errorf("--sponsorship must be true, false, or empty")
	}
	return profile, job.Normalized(), nil
}

func renderResult(cmd *cobra.Command, r *eligibility.Result, verified bool) {
	w := cmd.OutOrStdout()
	t := newTable(w)
	t.AppendRow(table.Row{"Visa", r.VisaCode})
	t.AppendRow(table.Row{"Verified", yesNo(verified)})
	t.AppendRow(table.Row{"Status", r.Status})
	if r.BlockedBy != nil {
		t.AppendRow(table.Row{"Blocked by", fmt.Sprintf("%s: %s", r.BlockedBy.RuleID, r.BlockedBy.Reason)})
	}
	for _, s := range r.Restrictions {
		t.AppendRow(table.Row{"Restriction", s})
	}
	for _, d := range r.DocumentsRequired {
		t.AppendRow(table.Row{"Document", d})
	}
	for _, n := range r.Notes {
		t.AppendRow(table.Row{"Note", n})
	}
	t.AppendRow(table.Row{"Rule set", r.RuleSetVersion})
	t.Render()
}
