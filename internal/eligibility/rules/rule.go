// Package rules holds the eligibility Rule contract, the built-in rule kinds,
// CEL-declared rules, and the Registry that selects rules for a (visa, job) pair.
//
// Rules compose only through the evaluator's aggregation. A rule never sees
// another rule's outcome and never has side effects.
package rules

import (
	"slices"

	"visamatch/internal/eligibility"
)

// Layer groups rules by what they key on.
type Layer string

const (
	LayerUniversal   Layer = "universal"
	LayerVisaClass   Layer = "visa_class"
	LayerJobCategory Layer = "job_category"
)

// ParseLayer validates a layer name.
func ParseLayer(raw string) (Layer, bool) {
	switch Layer(raw) {
	case LayerUniversal, LayerVisaClass, LayerJobCategory:
		return Layer(raw), true
	default:
		return "", false
	}
}

// Scope is what the registry matches rules against.
type Scope struct {
	VisaCode         eligibility.VisaCode
	BoardType        eligibility.BoardType
	IndustryCategory string
}

// Rule is one unit of eligibility policy.
type Rule interface {
	// ID is unique within a registry.
	ID() string
	Layer() Layer
	// AppliesTo selects when the rule is considered.
	AppliesTo(scope Scope) bool
	// Requires lists the profile attributes Evaluate reads. The evaluator
	// never calls Evaluate for a profile missing any of them.
	Requires() []eligibility.Attribute
	Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome
	// Definition is a JSON-encodable description that changes whenever the
	// rule's behavior changes. It feeds the rule-set version.
	Definition() any
}

// Selector matches a Scope. Empty fields match anything.
type Selector struct {
	VisaCodes  []eligibility.VisaCode  `json:"visaCodes,omitempty"`
	BoardTypes []eligibility.BoardType `json:"boardTypes,omitempty"`
	Industries []string                `json:"industries,omitempty"`
	// ExceptVisaCodes excludes codes even when VisaCodes is empty.
	ExceptVisaCodes []eligibility.VisaCode `json:"exceptVisaCodes,omitempty"`
}

// Matches reports whether scope falls inside the selector.
func (s Selector) Matches(scope Scope) bool {
	if len(s.VisaCodes) > 0 && !slices.Contains(s.VisaCodes, scope.VisaCode) {
		return false
	}
	if slices.Contains(s.ExceptVisaCodes, scope.VisaCode) {
		return false
	}
	if len(s.BoardTypes) > 0 && !slices.Contains(s.BoardTypes, scope.BoardType) {
		return false
	}
	if len(s.Industries) > 0 && !slices.Contains(s.Industries, eligibility.NormalizeIndustry(scope.IndustryCategory)) {
		return false
	}
	return true
}

// Func adapts plain functions into a Rule. Tests use it for fixture rules.
type Func struct {
	RuleID    string
	RuleLayer Layer
	Select    Selector
	Needs     []eligibility.Attribute
	Fn        func(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome
}

func (f Func) ID() string { return f.RuleID }
func (f Func) Layer() Layer { return f.RuleLayer }
func (f Func) AppliesTo(scope Scope) bool { return f.Select.Matches(scope) }
func (f Func) Requires() []eligibility.Attribute { return f.Needs }
func (f Func) Definition() any { return map[string]any{"id": f.RuleID, "selector": f.Select} }
func (f Func) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	return f.Fn(visa, job)
}
