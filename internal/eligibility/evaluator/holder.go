package evaluator

import (
	"context"
	"sync/atomic"

	"visamatch/internal/eligibility"
)

// Holder publishes the current evaluator and lets a catalog reload replace it
// atomically. Calls already running keep the evaluator they started with.
type Holder struct {
	current atomic.Pointer[Evaluator]
}

// NewHolder returns a holder publishing initial.
func NewHolder(initial *Evaluator) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Current returns the published evaluator.
func (h *Holder) Current() *Evaluator {
	return h.current.Load()
}

// Swap publishes next and returns the previous evaluator.
func (h *Holder) Swap(next *Evaluator) *Evaluator {
	return h.current.Swap(next)
}

// Version is the published rule-set version.
func (h *Holder) Version() string {
	return h.Current().Version()
}

// KnownVisaCodes delegates to the published evaluator.
func (h *Holder) KnownVisaCodes() []eligibility.VisaCode {
	return h.Current().KnownVisaCodes()
}

// EvaluateContext delegates to the published evaluator.
func (h *Holder) EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error) {
	return h.Current().EvaluateContext(ctx, visa, job)
}
