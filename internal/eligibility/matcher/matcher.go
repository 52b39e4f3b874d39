// Package matcher answers the two list-shaped eligibility questions, "which of
// these jobs can this visa apply to" and "which visas can apply to this job",
// by fanning each pair out to the same evaluator.
package matcher

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"visamatch/internal/eligibility"
)

const defaultConcurrency = 8

// Evaluator is the per-pair decision both directions route through.
type Evaluator interface {
	EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error)
	KnownVisaCodes() []eligibility.VisaCode
}

// Job is a posting as the matcher sees it.
type Job struct {
	ID          string
	Constraints eligibility.JobConstraints
}

// JobMatch is one row of JobsEligibleFor. Exactly one of Result and Err is set.
type JobMatch struct {
	Job    Job
	Result *eligibility.Result
	Err    error
}

// Verdict returns the row's result or error.
func (m JobMatch) Verdict() (*eligibility.Result, error) {
	return m.Result, m.Err
}

// VisaMatch is one row of VisasMatchingJob. Exactly one of Result and Err is set.
type VisaMatch struct {
	Code   eligibility.VisaCode
	Result *eligibility.Result
	Err    error
}

// Verdict returns the row's result or error.
func (m VisaMatch) Verdict() (*eligibility.Result, error) {
	return m.Result, m.Err
}

// Matcher runs batch evaluations with bounded concurrency.
type Matcher struct {
	evaluator   Evaluator
	concurrency int
	tracer      trace.Tracer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithConcurrency bounds the number of pairs evaluated at once.
func WithConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(m *Matcher) {
		m.tracer = t
	}
}

// New creates a Matcher over ev.
func New(ev Evaluator, opts ...Option) *Matcher {
	m := &Matcher{
		evaluator:   ev,
		concurrency: defaultConcurrency,
		tracer:      otel.Tracer("visamatch/matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// JobsEligibleFor evaluates visa against every job. Rows come back in input
// order and are never filtered; hiding blocked rows is the caller's choice.
// A per-pair failure becomes that row's Err; only cancellation fails the
// whole batch.
func (m *Matcher) JobsEligibleFor(ctx context.Context, visa eligibility.VisaProfile, jobs []Job) ([]JobMatch, error) {
	ctx, span := m.tracer.Start(ctx, "matcher.JobsEligibleFor", trace.WithAttributes(
		attribute.String("visa_code", string(visa.Code)),
		attribute.Bool("visa_verified", !visa.IsSynthesized()),
		attribute.Int("jobs", len(jobs)),
	))
	defer span.End()

	out := make([]JobMatch, len(jobs))
	err := m.fanOut(ctx, len(jobs), func(ctx context.Context, i int) error {
		res, err := m.evaluator.EvaluateContext(ctx, visa, jobs[i].Constraints)
		if isCancellation(ctx, err) {
			return err
		}
		out[i] = JobMatch{Job: jobs[i], Result: res, Err: err}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch cancelled")
		return nil, err
	}
	return out, nil
}

// VisasMatchingJob evaluates job against each code using attribute-less
// profiles. Nil codes means every catalog code. Rules that need an attribute
// resolve to CONDITIONAL, so a row may be less certain than the verdict for
// a verified worker holding the same code, never contradictory.
func (m *Matcher) VisasMatchingJob(ctx context.Context, job eligibility.JobConstraints, visaCodes []eligibility.VisaCode) ([]VisaMatch, error) {
	if visaCodes == nil {
		visaCodes = m.evaluator.KnownVisaCodes()
	}
	ctx, span := m.tracer.Start(ctx, "matcher.VisasMatchingJob", trace.WithAttributes(
		attribute.String("board_type", string(job.BoardType)),
		attribute.Int("visa_codes", len(visaCodes)),
	))
	defer span.End()

	out := make([]VisaMatch, len(visaCodes))
	err := m.fanOut(ctx, len(visaCodes), func(ctx context.Context, i int) error {
		res, err := m.evaluator.EvaluateContext(ctx, eligibility.SynthesizedProfile(visaCodes[i]), job)
		if isCancellation(ctx, err) {
			return err
		}
		out[i] = VisaMatch{Code: visaCodes[i], Result: res, Err: err}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch cancelled")
		return nil, err
	}
	return out, nil
}

// fanOut runs fn for indexes [0, n). Each call writes only its own slot.
func (m *Matcher) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func isCancellation(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// Summarize counts rows by status. Failed rows count only toward TotalErrors.
func Summarize[R interface {
	Verdict() (*eligibility.Result, error)
}](rows []R) eligibility.MatchSummary {
	var s eligibility.MatchSummary
	for _, r := range rows {
		s.Add(r.Verdict())
	}
	return s
}
