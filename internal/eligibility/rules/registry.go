package rules

import (
	"errors"
	"fmt"
	"sync"

	"visamatch/internal/eligibility"
	"visamatch/pkg/platform/canonical"
)

// ErrFrozen is returned by Register once the registry has been frozen.
var ErrFrozen = errors.New("registry is frozen")

// VisaClass is one catalog entry: a visa code plus the class-level facts that
// decide which visa-class rules apply to it.
type VisaClass struct {
	Code               eligibility.VisaCode `json:"code" koanf:"code"`
	Name               string               `json:"name" koanf:"name"`
	HourCapped         bool                 `json:"hourCapped" koanf:"hour_capped"`
	HourCapNoteMargin  int                  `json:"hourCapNoteMargin" koanf:"hour_cap_note_margin"`
	PartTimeOnly       bool                 `json:"partTimeOnly" koanf:"part_time_only"`
	IndustryRestricted bool                 `json:"industryRestricted" koanf:"industry_restricted"`
	SponsorshipTrack   bool                 `json:"sponsorshipTrack" koanf:"sponsorship_track"`
	PermitTrack        bool                 `json:"permitTrack" koanf:"permit_track"`
	PermitDocument     string               `json:"permitDocument,omitempty" koanf:"permit_document"`
}

// Registry owns the visa catalog and the ordered rule table. It is built once
// at startup, frozen, and read-only afterwards.
type Registry struct {
	mu             sync.RWMutex
	catalogVersion string
	classes        []VisaClass
	byCode         map[eligibility.VisaCode]VisaClass
	rules          []Rule
	ids            map[string]struct{}
	frozen         bool
	version        string
}

// New constructs an empty registry for the given catalog. Codes must be
// unique and well-formed.
func New(catalogVersion string, classes ...VisaClass) (*Registry, error) {
	r := &Registry{
		catalogVersion: catalogVersion,
		byCode:         make(map[eligibility.VisaCode]VisaClass, len(classes)),
		ids:            make(map[string]struct{}),
	}
	for _, c := range classes {
		code, ok := eligibility.ParseVisaCode(string(c.Code))
		if !ok {
			return nil, fmt.Errorf("catalog visa code %q is malformed", c.Code)
		}
		if _, dup := r.byCode[code]; dup {
			return nil, fmt.Errorf("catalog visa code %s is listed twice", code)
		}
		c.Code = code
		r.byCode[code] = c
		r.classes = append(r.classes, c)
	}
	return r, nil
}

// Register appends rule to the table. Rule ids must be unique so every
// outcome stays attributable to one rule.
func (r *Registry) Register(rule Rule) error {
	if rule == nil || rule.ID() == "" {
		return errors.New("rule id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %s: %w", rule.ID(), ErrFrozen)
	}
	if _, dup := r.ids[rule.ID()]; dup {
		return &eligibility.DuplicateRuleIDError{RuleID: rule.ID()}
	}
	r.ids[rule.ID()] = struct{}{}
	r.rules = append(r.rules, rule)
	return nil
}

// MustRegister panics on registration errors. For startup wiring and tests.
func (r *Registry) MustRegister(rules ...Rule) {
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
}

// Freeze ends registration and computes the rule-set version. Calling it
// again returns the same version.
func (r *Registry) Freeze() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return r.version, nil
	}
	defs := make([]any, 0, len(r.rules))
	for _, rule := range r.rules {
		defs = append(defs, map[string]any{
			"id":         rule.ID(),
			"layer":      rule.Layer(),
			"requires":   rule.Requires(),
			"definition": rule.Definition(),
		})
	}
	digest, err := canonical.Hash(map[string]any{
		"catalog": r.catalogVersion,
		"classes": r.classes,
		"rules":   defs,
	})
	if err != nil {
		return "", fmt.Errorf("compute rule-set version: %w", err)
	}
	r.version = r.catalogVersion + "+" + digest[:12]
	r.frozen = true
	return r.version, nil
}

// Frozen reports whether registration has ended.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Version is the rule-set version, empty until frozen.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// RulesFor returns the applicable rules in registration order.
func (r *Registry) RulesFor(code eligibility.VisaCode, board eligibility.BoardType, industry string) []Rule {
	scope := Scope{VisaCode: code, BoardType: board, IndustryCategory: eligibility.NormalizeIndustry(industry)}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.AppliesTo(scope) {
			out = append(out, rule)
		}
	}
	return out
}

// Rules returns every registered rule in registration order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// KnownVisaCodes returns the catalog codes in catalog order.
func (r *Registry) KnownVisaCodes() []eligibility.VisaCode {
	out := make([]eligibility.VisaCode, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c.Code)
	}
	return out
}

// IsKnown reports catalog membership.
func (r *Registry) IsKnown(code eligibility.VisaCode) bool {
	_, ok := r.byCode[code]
	return ok
}

// VisaClass returns the catalog entry for code.
func (r *Registry) VisaClass(code eligibility.VisaCode) (VisaClass, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// Classes returns the catalog in order.
func (r *Registry) Classes() []VisaClass {
	return append([]VisaClass(nil), r.classes...)
}

// CatalogVersion is the declared catalog version without the content digest.
func (r *Registry) CatalogVersion() string {
	return r.catalogVersion
}
