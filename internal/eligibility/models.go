package eligibility

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// VisaCode identifies an immigration/work-authorization category, e.g. "E-9".
type VisaCode string

func (c VisaCode) String() string {
	return string(c)
}

var visaCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(-[A-Z0-9]+)*$`)

// ParseVisaCode trims and upper-cases raw and checks its shape. It does not
// check catalog membership; that is the registry's concern.
func ParseVisaCode(raw string) (VisaCode, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !visaCodePattern.MatchString(code) {
		return "", false
	}
	return VisaCode(code), true
}

// BoardType selects the job board a posting is listed on.
type BoardType string

const (
	BoardPartTime BoardType = "PART_TIME"
	BoardFullTime BoardType = "FULL_TIME"
)

// ParseBoardType accepts the canonical names case-insensitively.
func ParseBoardType(raw string) (BoardType, bool) {
	switch BoardType(strings.ToUpper(strings.TrimSpace(raw))) {
	case BoardPartTime:
		return BoardPartTime, true
	case BoardFullTime:
		return BoardFullTime, true
	default:
		return "", false
	}
}

// Attribute names a profile fact a rule may depend on.
type Attribute string

const (
	AttrMaxWeeklyHours      Attribute = "maxWeeklyHours"
	AttrPermittedIndustries Attribute = "permittedIndustries"
	AttrRequiresSponsorship Attribute = "requiresSponsorship"
	AttrRequiresWorkPermit  Attribute = "requiresWorkPermit"
	AttrNationality         Attribute = "nationality"
)

// VisaAttributes are the verified facts of a worker's visa that rules consult.
type VisaAttributes struct {
	// MaxWeeklyHours is nil when the visa carries no weekly hour cap.
	MaxWeeklyHours *int `json:"maxWeeklyHours"`
	// PermittedIndustries is nil when any industry is permitted.
	PermittedIndustries []string `json:"permittedIndustries"`
	RequiresSponsorship bool     `json:"requiresSponsorship"`
	RequiresWorkPermit  bool     `json:"requiresWorkPermit"`
	Nationality         string   `json:"nationality,omitempty"`
}

// VisaProfile is a worker's immigration status as relevant to one evaluation.
// A nil Attributes marks an attribute-less profile synthesized from a bare
// code; rules that need a missing attribute resolve to CONDITIONAL.
type VisaProfile struct {
	Code       VisaCode        `json:"visaCode"`
	Attributes *VisaAttributes `json:"attributes,omitempty"`
}

// NewVisaProfile normalizes the code and validates attributes. It does not
// check catalog membership.
func NewVisaProfile(rawCode string, attrs *VisaAttributes) (VisaProfile, error) {
	code, ok := ParseVisaCode(rawCode)
	if !ok {
		return VisaProfile{}, &UnknownVisaCodeError{Code: VisaCode(strings.TrimSpace(rawCode))}
	}
	if attrs != nil {
		if attrs.MaxWeeklyHours != nil && *attrs.MaxWeeklyHours < 0 {
			return VisaProfile{}, &MalformedVisaProfileError{Code: code, Reason: "maxWeeklyHours must not be negative"}
		}
		cp := *attrs
		cp.PermittedIndustries = normalizeIndustries(attrs.PermittedIndustries)
		cp.Nationality = strings.ToUpper(strings.TrimSpace(attrs.Nationality))
		attrs = &cp
	}
	return VisaProfile{Code: code, Attributes: attrs}, nil
}

// SynthesizedProfile returns the attribute-less profile used when only a code
// is known.
func SynthesizedProfile(code VisaCode) VisaProfile {
	return VisaProfile{Code: code}
}

// IsSynthesized reports whether the profile carries no verified attributes.
func (p VisaProfile) IsSynthesized() bool {
	return p.Attributes == nil
}

// HasAttribute reports whether the profile can answer questions about attr.
func (p VisaProfile) HasAttribute(attr Attribute) bool {
	if p.Attributes == nil {
		return false
	}
	if attr == AttrNationality {
		return p.Attributes.Nationality != ""
	}
	return true
}

// PermitsIndustry reports whether category is within the permitted set.
func (a *VisaAttributes) PermitsIndustry(category string) bool {
	if a == nil || a.PermittedIndustries == nil {
		return true
	}
	return slices.Contains(a.PermittedIndustries, NormalizeIndustry(category))
}

// JobConstraints are the employment-side facts a posting exposes to the engine.
type JobConstraints struct {
	// AllowedVisaCodes lists the codes the posting accepts; empty means the
	// posting does not restrict visas.
	AllowedVisaCodes []VisaCode `json:"allowedVisaCodes"`
	BoardType        BoardType  `json:"boardType"`
	// WeeklyHours is nil when the posting does not state its hours.
	WeeklyHours      *int   `json:"weeklyHours"`
	IndustryCategory string `json:"industryCategory,omitempty"`
	// RequiresSponsorship reports whether the posting is a sponsored position,
	// i.e. the employer files the work-permit paperwork. Nil means unknown.
	RequiresSponsorship *bool `json:"requiresSponsorship"`
}

// maxWeeklyHours is the number of hours in a week.
const maxWeeklyHours = 168

// Validate reports a MalformedJobConstraintsError for data a rule cannot
// safely interpret. It never coerces values.
func (j JobConstraints) Validate() error {
	if j.BoardType != BoardPartTime && j.BoardType != BoardFullTime {
		return &MalformedJobConstraintsError{Field: "boardType", Reason: "must be PART_TIME or FULL_TIME"}
	}
	if j.WeeklyHours != nil {
		if *j.WeeklyHours < 0 {
			return &MalformedJobConstraintsError{Field: "weeklyHours", Reason: "must not be negative"}
		}
		if *j.WeeklyHours > maxWeeklyHours {
			return &MalformedJobConstraintsError{Field: "weeklyHours", Reason: "exceeds hours in a week"}
		}
	}
	for _, code := range j.AllowedVisaCodes {
		parsed, ok := ParseVisaCode(string(code))
		if !ok || parsed != code {
			return &MalformedJobConstraintsError{Field: "allowedVisaCodes", Reason: "unparseable visa code " + strconv.Quote(string(code))}
		}
	}
	return nil
}

// Normalized returns a copy with board type, industry, and visa codes in
// canonical form. Codes that fail to parse are kept as-is so Validate can
// still reject them.
func (j JobConstraints) Normalized() JobConstraints {
	out := j
	if bt, ok := ParseBoardType(string(j.BoardType)); ok {
		out.BoardType = bt
	}
	out.IndustryCategory = NormalizeIndustry(j.IndustryCategory)
	if j.AllowedVisaCodes != nil {
		out.AllowedVisaCodes = make([]VisaCode, 0, len(j.AllowedVisaCodes))
		for _, code := range j.AllowedVisaCodes {
			if parsed, ok := ParseVisaCode(string(code)); ok {
				code = parsed
			}
			if !slices.Contains(out.AllowedVisaCodes, code) {
				out.AllowedVisaCodes = append(out.AllowedVisaCodes, code)
			}
		}
	}
	return out
}

// Allows reports whether the posting accepts code. An empty allow-list
// accepts every code.
func (j JobConstraints) Allows(code VisaCode) bool {
	return len(j.AllowedVisaCodes) == 0 || slices.Contains(j.AllowedVisaCodes, code)
}

// NormalizeIndustry canonicalizes an industry category name.
func NormalizeIndustry(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

func normalizeIndustries(categories []string) []string {
	if categories == nil {
		return nil
	}
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = NormalizeIndustry(c)
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
