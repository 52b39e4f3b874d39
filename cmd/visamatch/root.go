package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"visamatch/internal/eligibility/catalog"
	"visamatch/internal/eligibility/evaluator"
	"visamatch/internal/eligibility/matcher"
	"visamatch/internal/eligibility/service"
	"visamatch/internal/eligibility/store"
	"visamatch/internal/platform/config"
	"visamatch/internal/platform/logger"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	catalogPath  string
	fixturesPath string
	demo         bool
	output       string
	concurrency  int
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "visamatch",
		Short: "Visa and job eligibility engine",
		Long: `visamatch decides whether a foreign worker holding a given visa may take a
given job posting, and explains the verdict.

Postings and worker verifications come from a YAML fixtures file, or from the
embedded demo data when none is given.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case formatTable, formatJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q: use table or json", opts.output)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.catalogPath, "catalog", "", "path to a visa catalog YAML file (default: embedded catalog)")
	pf.StringVar(&opts.fixturesPath, "fixtures", "", "YAML file with job postings and worker verifications")
	pf.BoolVar(&opts.demo, "demo", true, "use the embedded demo data when --fixtures is not set")
	pf.StringVarP(&opts.output, "output", "o", formatTable, "output format: table, json")
	pf.IntVar(&opts.concurrency, "concurrency", 8, "maximum pairs evaluated at once")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	cmd.AddCommand(
		newCatalogCmd(opts),
		newEvaluateCmd(opts),
		newJobsCmd(opts),
		newVisasCmd(opts),
	)
	return cmd
}

// loadCatalog reads the selected catalog and builds its evaluator.
func (o *rootOptions) loadCatalog() (*catalog.Catalog, *evaluator.Evaluator, error) {
	cat, err := catalog.LoadOrDefault(o.catalogPath)
	if err != nil {
		return nil, nil, err
	}
	ev, err := cat.Evaluator()
	if err != nil {
		return nil, nil, err
	}
	return cat, ev, nil
}

// newService builds the eligibility service over seeded in-memory stores.
func (o *rootOptions) newService(ctx context.Context, cmd *cobra.Command) (*service.Service, error) {
	_, ev, err := o.loadCatalog()
	if err != nil {
		return nil, err
	}

	var fixtures *store.Fixtures
	switch {
	case o.fixturesPath != "":
		fixtures, err = store.LoadFixtures(o.fixturesPath)
	case o.demo:
		fixtures, err = store.DemoFixtures()
	}
	if err != nil {
		return nil, err
	}

	jobs := store.NewInMemoryJobStore()
	verifications := store.NewInMemoryVerificationStore()
	if fixtures != nil {
		if err := store.Seed(ctx, fixtures, jobs, verifications); err != nil {
			return nil, fmt.Errorf("seed fixtures: %w", err)
		}
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), config.LogConfig{Level: o.logLevel, Format: "text"})
	m := matcher.New(ev, matcher.WithConcurrency(o.concurrency))
	return service.New(ev, m, jobs, verifications, service.WithLogger(log)), nil
}
