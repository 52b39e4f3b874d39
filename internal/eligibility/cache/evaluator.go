package cache

import (
	"context"
	"log/slog"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/evaluator"
)

// Store persists verdicts by key.
type Store interface {
	Get(ctx context.Context, key string) (*eligibility.Result, bool, error)
	Set(ctx context.Context, key string, result *eligibility.Result) error
}

// Source yields the evaluator to use for one call. Both *evaluator.Evaluator
// and *evaluator.Holder satisfy it.
type Source interface {
	Current() *evaluator.Evaluator
}

// Metrics records cache lookups.
type Metrics interface {
	CacheHit()
	CacheMiss()
	CacheError()
}

// Evaluator serves verdicts from a Store and falls back to the wrapped
// evaluator on a miss. Errors are never cached, and a failing store only
// costs the lookup.
type Evaluator struct {
	source  Source
	store   Store
	logger  *slog.Logger
	metrics Metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithMetrics sets the lookup metrics.
func WithMetrics(m Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// New wraps source with store.
func New(source Source, store Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		source: source,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KnownVisaCodes delegates to the current evaluator.
func (e *Evaluator) KnownVisaCodes() []eligibility.VisaCode {
	return e.source.Current().KnownVisaCodes()
}

// Version is the current rule-set version.
func (e *Evaluator) Version() string {
	return e.source.Current().Version()
}

// EvaluateContext returns the cached verdict or computes and stores it. The
// evaluator is resolved once so the key and the verdict share a version.
func (e *Evaluator) EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error) {
	ev := e.source.Current()

	key, err := Key(ev.Version(), visa, job)
	if err != nil {
		e.logger.WarnContext(ctx, "verdict cache key failed", "visa_code", visa.Code, "error", err)
		return ev.EvaluateContext(ctx, visa, job)
	}

	cached, ok, err := e.store.Get(ctx, key)
	switch {
	case err != nil:
		e.recordError()
		e.logger.WarnContext(ctx, "verdict cache read failed", "visa_code", visa.Code, "error", err)
	case ok:
		e.recordHit()
		return cached, nil
	default:
		e.recordMiss()
	}

	res, err := ev.EvaluateContext(ctx, visa, job)
	if err != nil {
		return nil, err
	}
	if e.source.Current().Version() != ev.Version() {
		return res, nil
	}
	if err := e.store.Set(ctx, key, res); err != nil {
		e.recordError()
		e.logger.WarnContext(ctx, "verdict cache write failed", "visa_code", visa.Code, "error", err)
	}
	return res, nil
}

func (e *Evaluator) recordHit() {
	if e.metrics != nil {
		e.metrics.CacheHit()
	}
}

func (e *Evaluator) recordMiss() {
	if e.metrics != nil {
		e.metrics.CacheMiss()
	}
}

func (e *Evaluator) recordError() {
	if e.metrics != nil {
		e.metrics.CacheError()
	}
}
