package rules

import (
	"fmt"
	"strings"

	"visamatch/internal/eligibility"
)

// Built-in rule IDs.
const (
	IDAllowedVisaCodes    = "universal.allowed-visa-codes"
	IDWeeklyHourCap       = "visa.weekly-hour-cap"
	IDPartTimeOnly        = "visa.part-time-only"
	IDIndustryRestriction = "visa.industry-restriction"
	IDEmployerSponsorship = "visa.employer-sponsorship"
	IDWorkPermit          = "visa.work-permit"
	industryIDPrefix      = "industry."
)

// DefaultWorkPermitDocument is required when a class does not name its own.
const DefaultWorkPermitDocument = "part-time employment permit"

// SponsorshipDocument is required while a posting's sponsorship is unconfirmed.
const SponsorshipDocument = "employer sponsorship letter"

// -----------------------------------------------------------------------------
// Universal
// -----------------------------------------------------------------------------

// AllowedVisaCodes blocks a visa the posting does not list. A posting with an
// empty allow-list accepts every catalog code.
type AllowedVisaCodes struct{}

func (AllowedVisaCodes) ID() string { return IDAllowedVisaCodes }
func (AllowedVisaCodes) Layer() Layer { return LayerUniversal }
func (AllowedVisaCodes) AppliesTo(Scope) bool { return true }
func (AllowedVisaCodes) Requires() []eligibility.Attribute { return nil }
func (AllowedVisaCodes) Definition() any {
	return map[string]any{"id": IDAllowedVisaCodes, "emptyAllowList": "unrestricted"}
}

func (AllowedVisaCodes) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	if job.Allows(visa.Code) {
		return eligibility.Pass()
	}
	return eligibility.Block("visa not accepted by this posting")
}

// -----------------------------------------------------------------------------
// Visa class
// -----------------------------------------------------------------------------

// WeeklyHourCap enforces the profile's weekly hour cap on part-time postings.
type WeeklyHourCap struct {
	Codes []eligibility.VisaCode
	// NoteMargins adds an advisory note when the posting's hours are within
	// that many hours of the cap. Codes without a margin get no note.
	NoteMargins map[eligibility.VisaCode]int
}

func (r WeeklyHourCap) ID() string { return IDWeeklyHourCap }
func (r WeeklyHourCap) Layer() Layer { return LayerVisaClass }
func (r WeeklyHourCap) Requires() []eligibility.Attribute {
	return []eligibility.Attribute{eligibility.AttrMaxWeeklyHours}
}

func (r WeeklyHourCap) AppliesTo(scope Scope) bool {
	return Selector{VisaCodes: r.Codes, BoardTypes: []eligibility.BoardType{eligibility.BoardPartTime}}.Matches(scope)
}

func (r WeeklyHourCap) Definition() any {
	return map[string]any{"id": IDWeeklyHourCap, "codes": r.Codes, "noteMargins": r.NoteMargins}
}

func (r WeeklyHourCap) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	limit := visa.Attributes.MaxWeeklyHours
	if limit == nil {
		return eligibility.Pass()
	}
	if job.WeeklyHours == nil {
		return eligibility.Conditional(fmt.Sprintf("confirm weekly hours do not exceed %d", *limit))
	}
	hours := *job.WeeklyHours
	if hours > *limit {
		return eligibility.Block(fmt.Sprintf("weekly hours %d exceed the visa cap of %d", hours, *limit))
	}
	if margin := r.NoteMargins[visa.Code]; margin > 0 && *limit-hours <= margin {
		return eligibility.Note(fmt.Sprintf("weekly hours are within %d of the visa cap of %d", margin, *limit))
	}
	return eligibility.Pass()
}

// PartTimeOnly blocks full-time postings for classes limited to part-time work.
type PartTimeOnly struct {
	Codes []eligibility.VisaCode
}

func (r PartTimeOnly) ID() string { return IDPartTimeOnly }
func (r PartTimeOnly) Layer() Layer { return LayerVisaClass }
func (r PartTimeOnly) Requires() []eligibility.Attribute { return nil }

func (r PartTimeOnly) AppliesTo(scope Scope) bool {
	return Selector{VisaCodes: r.Codes, BoardTypes: []eligibility.BoardType{eligibility.BoardFullTime}}.Matches(scope)
}

func (r PartTimeOnly) Definition() any {
	return map[string]any{"id": IDPartTimeOnly, "codes": r.Codes}
}

func (r PartTimeOnly) Evaluate(eligibility.VisaProfile, eligibility.JobConstraints) eligibility.Outcome {
	return eligibility.Block("visa permits part-time employment only")
}

// IndustryRestriction blocks industries outside the profile's permitted set.
type IndustryRestriction struct {
	Codes []eligibility.VisaCode
}

func (r IndustryRestriction) ID() string { return IDIndustryRestriction }
func (r IndustryRestriction) Layer() Layer { return LayerVisaClass }
func (r IndustryRestriction) Requires() []eligibility.Attribute {
	return []eligibility.Attribute{eligibility.AttrPermittedIndustries}
}

func (r IndustryRestriction) AppliesTo(scope Scope) bool {
	return Selector{VisaCodes: r.Codes}.Matches(scope)
}

func (r IndustryRestriction) Definition() any {
	return map[string]any{"id": IDIndustryRestriction, "codes": r.Codes}
}

func (r IndustryRestriction) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	if visa.Attributes.PermittedIndustries == nil {
		return eligibility.Pass()
	}
	if job.IndustryCategory == "" {
		return eligibility.Conditional("confirm the posting's industry is permitted for this visa")
	}
	if !visa.Attributes.PermitsIndustry(job.IndustryCategory) {
		return eligibility.Block(fmt.Sprintf("industry %s is not permitted for this visa", job.IndustryCategory))
	}
	return eligibility.Pass()
}

// EmployerSponsorship requires a sponsored posting for profiles that need one.
type EmployerSponsorship struct {
	Codes []eligibility.VisaCode
}

func (r EmployerSponsorship) ID() string { return IDEmployerSponsorship }
func (r EmployerSponsorship) Layer() Layer { return LayerVisaClass }
func (r EmployerSponsorship) Requires() []eligibility.Attribute {
	return []eligibility.Attribute{eligibility.AttrRequiresSponsorship}
}

func (r EmployerSponsorship) AppliesTo(scope Scope) bool {
	return Selector{VisaCodes: r.Codes}.Matches(scope)
}

func (r EmployerSponsorship) Definition() any {
	return map[string]any{"id": IDEmployerSponsorship, "codes": r.Codes}
}

func (r EmployerSponsorship) Evaluate(visa eligibility.VisaProfile, job eligibility.JobConstraints) eligibility.Outcome {
	if !visa.Attributes.RequiresSponsorship {
		return eligibility.Pass()
	}
	switch {
	case job.RequiresSponsorship == nil:
		return eligibility.Conditional("confirm the employer will sponsor the visa", SponsorshipDocument)
	case !*job.RequiresSponsorship:
		return eligibility.Block("posting does not offer visa sponsorship")
	default:
		return eligibility.Pass()
	}
}

// WorkPermit adds the immigration-office permit condition for profiles that
// must obtain one before starting work.
type WorkPermit struct {
	Codes []eligibility.VisaCode
	// Documents overrides DefaultWorkPermitDocument per code.
	Documents map[eligibility.VisaCode]string
}

func (r WorkPermit) ID() string { return IDWorkPermit }
func (r WorkPermit) Layer() Layer { return LayerVisaClass }
func (r WorkPermit) Requires() []eligibility.Attribute {
	return []eligibility.Attribute{eligibility.AttrRequiresWorkPermit}
}

func (r WorkPermit) AppliesTo(scope Scope) bool {
	return Selector{VisaCodes: r.Codes}.Matches(scope)
}

func (r WorkPermit) Definition() any {
	return map[string]any{"id": IDWorkPermit, "codes": r.Codes, "documents": r.Documents}
}

func (r WorkPermit) Evaluate(visa eligibility.VisaProfile, _ eligibility.JobConstraints) eligibility.Outcome {
	if !visa.Attributes.RequiresWorkPermit {
		return eligibility.Pass()
	}
	doc := r.Documents[visa.Code]
	if doc == "" {
		doc = DefaultWorkPermitDocument
	}
	return eligibility.Conditional("work permit from the immigration office required before starting", doc)
}

// -----------------------------------------------------------------------------
// Job category
// -----------------------------------------------------------------------------

// Industry attaches a fixed outcome to every posting in one industry
// category, regardless of visa, except for exempt codes.
type Industry struct {
	Category  string
	Kind      eligibility.OutcomeKind
	Reason    string
	Documents []string
	Exempt    []eligibility.VisaCode
}

// IndustryRuleID returns the rule id for a category.
func IndustryRuleID(category string) string {
	return industryIDPrefix + strings.ToLower(eligibility.NormalizeIndustry(category))
}

func (r Industry) ID() string { return IndustryRuleID(r.Category) }
func (r Industry) Layer() Layer { return LayerJobCategory }
func (r Industry) Requires() []eligibility.Attribute { return nil }

func (r Industry) AppliesTo(scope Scope) bool {
	return Selector{
		Industries:      []string{eligibility.NormalizeIndustry(r.Category)},
		ExceptVisaCodes: r.Exempt,
	}.Matches(scope)
}

func (r Industry) Definition() any {
	return map[string]any{
		"id":        r.ID(),
		"kind":      r.Kind,
		"reason":    r.Reason,
		"documents": r.Documents,
		"exempt":    r.Exempt,
	}
}

func (r Industry) Evaluate(eligibility.VisaProfile, eligibility.JobConstraints) eligibility.Outcome {
	switch r.Kind {
	case eligibility.OutcomeBlock:
		return eligibility.Block(r.Reason)
	case eligibility.OutcomeNote:
		return eligibility.Note(r.Reason)
	case eligibility.OutcomePass:
		return eligibility.Pass()
	default:
		return eligibility.Conditional(r.Reason, r.Documents...)
	}
}
