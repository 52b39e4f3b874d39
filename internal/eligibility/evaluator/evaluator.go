// Package evaluator turns a (visa profile, job constraints) pair into an
// explainable eligibility Result. It is the only place BLOCK / CONDITIONAL /
// PASS precedence is implemented; both batch query directions route through it.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/rules"
	strs "visamatch/pkg/platform/strings"
)

// Observer receives evaluation telemetry. Implementations must not block.
type Observer interface {
	RuleOutcome(ruleID string, kind eligibility.OutcomeKind)
	Evaluated(status eligibility.Status, d time.Duration)
}

// Evaluator is safe for concurrent use once constructed.
type Evaluator struct {
	registry *rules.Registry
	version  string
	observer Observer
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithObserver installs an evaluation observer.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		e.observer = o
	}
}

// New freezes registry and builds an evaluator over it. Freezing is the init
// barrier: no rule can be registered once evaluation may start.
func New(registry *rules.Registry, opts ...Option) (*Evaluator, error) {
	if registry == nil {
		return nil, errors.New("rule registry is required")
	}
	version, err := registry.Freeze()
	if err != nil {
		return nil, err
	}
	e := &Evaluator{registry: registry, version: version}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Version is the rule-set version stamped on every result.
func (e *Evaluator) Version() string {
	return e.version
}

// Registry exposes the frozen registry.
func (e *Evaluator) Registry() *rules.Registry {
	return e.registry
}

// KnownVisaCodes returns the catalog codes in catalog order.
func (e *Evaluator) KnownVisaCodes() []eligibility.VisaCode {
	return e.registry.KnownVisaCodes()
}

// Current returns e; it lets a fixed evaluator stand in wherever a swappable
// one is accepted.
func (e *Evaluator) Current() *Evaluator {
	return e
}

// EvaluateContext is Evaluate with a cancellation check up front. Evaluation
// itself does no I/O.
func (e *Evaluator) EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.Evaluate(visa, job)
}

// Evaluate runs every applicable rule and aggregates the outcomes.
//
// Errors: *eligibility.UnknownVisaCodeError when the code is outside the
// catalog, *eligibility.MalformedJobConstraintsError when the job cannot be
// interpreted. An ineligible pair is a normal result, never an error.
func (e *Evaluator) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error) {
	start := time.Now()
	if !e.registry.IsKnown(visa.Code) {
		return nil, &eligibility.UnknownVisaCodeError{Code: visa.Code}
	}
	job = job.Normalized()
	if err := job.Validate(); err != nil {
		return nil, err
	}

	var blockers, conditionals []eligibility.Outcome
	var notes []string
	// Every rule runs, even after a blocker, so notes are complete and the
	// rule pass has no order-dependent short circuit.
	for _, rule := range e.registry.RulesFor(visa.Code, job.BoardType, job.IndustryCategory) {
		outcome := run(rule, visa, job)
		if e.observer != nil {
			e.observer.RuleOutcome(outcome.RuleID, outcome.Kind)
		}
		switch outcome.Kind {
		case eligibility.OutcomeBlock:
			blockers = append(blockers, outcome)
		case eligibility.OutcomeConditional:
			conditionals = append(conditionals, outcome)
		case eligibility.OutcomeNote:
			notes = append(notes, outcome.Reason)
		}
	}

	result := aggregate(visa.Code, e.version, blockers, conditionals, notes)
	if e.observer != nil {
		e.observer.Evaluated(result.Status, time.Since(start))
	}
	return result, nil
}

// run evaluates one rule, resolving it to CONDITIONAL without calling it when
// the profile lacks an attribute the rule reads.
func run(rule rules.Rule, visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	for _, attr := range rule.Requires() {
		if !visa.HasAttribute(attr) {
			out := eligibility.Conditional(fmt.Sprintf("confirm %s for visa %s", describe(attr), visa.Code))
			out.RuleID = rule.ID()
			return out
		}
	}

	out := rule.Evaluate(visa, job)
	out.RuleID = rule.ID()
	switch out.Kind {
	case eligibility.OutcomePass:
	case eligibility.OutcomeBlock, eligibility.OutcomeConditional, eligibility.OutcomeNote:
		if out.Reason == "" {
			out.Reason = "restricted by " + rule.ID()
		}
	default:
		out = eligibility.Conditional(fmt.Sprintf("manual review required (%s)", rule.ID()))
		out.RuleID = rule.ID()
	}
	return out
}

// aggregate applies precedence: any blocker makes the pair ineligible and
// suppresses restrictions and documents so a blocked row never implies a path
// to eligibility.
func aggregate(code eligibility.VisaCode, version string, blockers, conditionals []eligibility.Outcome, notes []string) *eligibility.Result {
	result := &eligibility.Result{
		VisaCode:          code,
		RuleSetVersion:    version,
		Restrictions:      []string{},
		Notes:             strs.Union(notes),
		DocumentsRequired: []string{},
	}

	if len(blockers) > 0 {
		result.Eligible = false
		result.Status = eligibility.StatusBlocked
		result.BlockedBy = &eligibility.BlockReason{
			RuleID: blockers[0].RuleID,
			Reason: blockers[0].Reason,
		}
		return result
	}

	result.Eligible = true
	if len(conditionals) == 0 {
		result.Status = eligibility.StatusEligible
		return result
	}

	reasons := make([]string, 0, len(conditionals))
	documents := make([][]string, 0, len(conditionals))
	for _, c := range conditionals {
		reasons = append(reasons, c.Reason)
		documents = append(documents, c.Documents)
	}
	result.Status = eligibility.StatusConditional
	result.Restrictions = strs.Union(reasons)
	result.DocumentsRequired = strs.Union(documents...)
	return result
}

func describe(attr eligibility.Attribute) string {
	switch attr {
	case eligibility.AttrMaxWeeklyHours:
		return "weekly hour limit"
	case eligibility.AttrPermittedIndustries:
		return "permitted industries"
	case eligibility.AttrRequiresSponsorship:
		return "sponsorship requirement"
	case eligibility.AttrRequiresWorkPermit:
		return "work permit requirement"
	case eligibility.AttrNationality:
		return "nationality"
	default:
		return string(attr)
	}
}
