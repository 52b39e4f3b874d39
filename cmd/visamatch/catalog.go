package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"visamatch/internal/eligibility/catalog"
	"visamatch/internal/eligibility/rules"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate visa catalogs",
	}
	cmd.AddCommand(newCatalogValidateCmd(opts), newCatalogShowCmd(opts))
	return cmd
}

type catalogSummary struct {
	Path           string `json:"path"`
	CatalogVersion string `json:"catalogVersion"`
	RuleSetVersion string `json:"ruleSetVersion"`
	Visas          int    `json:"visas"`
	Industries     int    `json:"industries"`
	Rules          int    `json:"rules"`
}

func newCatalogValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check that a catalog loads and compiles",
		Long: `Load a catalog, validate its visa classes, industries, and declarative
rules, and compile it into a rule set. Exits non-zero on the first problem.`,
		Example: `  # Validate the embedded catalog
  visamatch catalog validate

  # Validate a catalog file before deploying it
  visamatch catalog validate ./catalog.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.catalogPath
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := catalog.LoadOrDefault(path)
			if err != nil {
				return err
			}
			reg, err := cat.Registry()
			if err != nil {
				return err
			}
			version, err := reg.Freeze()
			if err != nil {
				return err
			}
			summary := catalogSummary{
				Path:           path,
				CatalogVersion: cat.Version,
				RuleSetVersion: version,
				Visas:          len(cat.Visas),
				Industries:     len(cat.Industries),
				Rules:          len(reg.Rules()),
			}
			if summary.Path == "" {
				summary.Path = "(embedded)"
			}
			if opts.output == formatJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "catalog %s is valid: rule set %s (%d visas, %d industries, %d rules)\n",
				summary.Path, summary.RuleSetVersion, summary.Visas, summary.Industries, summary.Rules)
			return err
		},
	}
}

type catalogView struct {
	RuleSetVersion string                       `json:"ruleSetVersion"`
	Visas          []rules.VisaClass            `json:"visas"`
	Industries     []catalog.IndustryDefinition `json:"industries"`
	Rules          []ruleView                   `json:"rules"`
}

type ruleView struct {
	ID    string      `json:"id"`
	Layer rules.Layer `json:"layer"`
}

func newCatalogShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the visa classes and rules of the active catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, ev, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			reg := ev.Registry()
			view := catalogView{
				RuleSetVersion: ev.Version(),
				Visas:          reg.Classes(),
				Industries:     cat.Industries,
			}
			for _, r := range reg.Rules() {
				view.Rules = append(view.Rules, ruleView{ID: r.ID(), Layer: r.Layer()})
			}
			if opts.output == formatJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Rule set %s\n\n", view.RuleSetVersion)

			visas := newTable(w)
			visas.AppendHeader(table.Row{"Code", "Name", "Hour cap", "Part-time only", "Industry restricted", "Track"})
			for _, v := range view.Visas {
				visas.AppendRow(table.Row{v.Code, v.Name, yesNo(v.HourCapped), yesNo(v.PartTimeOnly), yesNo(v.IndustryRestricted), track(v)})
			}
			visas.Render()

			industries := newTable(w)
			industries.AppendHeader(table.Row{"Industry", "Outcome", "Reason", "Exempt"})
			for _, ind := range view.Industries {
				industries.AppendRow(table.Row{ind.Category, ind.Outcome, ind.Reason, strings.Join(ind.Exempt, ", ")})
			}
			industries.Render()

			ruleTable := newTable(w)
			ruleTable.AppendHeader(table.Row{"#", "Rule", "Layer"})
			for i, r := range view.Rules {
				ruleTable.AppendRow(table.Row{i + 1, r.ID, r.Layer})
			}
			ruleTable.Render()
			return nil
		},
	}
}

func track(v rules.VisaClass) string {
	var parts []string
	if v.PermitTrack {
		parts = append(parts, "permit")
	}
	if v.SponsorshipTrack {
		parts = append(parts, "sponsorship")
	}
	return strings.Join(parts, ", ")
}
