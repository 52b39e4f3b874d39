package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/rules"
)

var fixtureClasses = []rules.VisaClass{
	{Code: "D-2", Name: "Student", HourCapped: true, HourCapNoteMargin: 2, PermitTrack: true},
	{Code: "D-4", Name: "General training", HourCapped: true, PartTimeOnly: true, PermitTrack: true, PermitDocument: "training permit"},
	{Code: "E-7", Name: "Specially designated activities", IndustryRestricted: true, SponsorshipTrack: true},
	{Code: "E-9", Name: "Non-professional employment", HourCapped: true, IndustryRestricted: true},
	{Code: "F-4", Name: "Overseas Korean"},
	{Code: "F-5", Name: "Permanent resident"},
	{Code: "H-2", Name: "Visit and employment", IndustryRestricted: true},
}

var fixtureIndustries = []rules.Rule{
	rules.Industry{
		Category:  "SPECIAL_PERMIT_REQUIRED",
		Kind:      eligibility.OutcomeConditional,
		Reason:    "permit required",
		Documents: []string{"employer permit"},
		Exempt:    []eligibility.VisaCode{"F-5"},
	},
	rules.Industry{
		Category: "NIGHTLIFE",
		Kind:     eligibility.OutcomeBlock,
		Reason:   "industry closed to visa holders",
	},
	rules.Industry{
		Category:  "CONSTRUCTION",
		Kind:      eligibility.OutcomeConditional,
		Reason:    "construction safety training required",
		Documents: []string{"construction safety certificate", "employer permit"},
	},
}

func fixtureEvaluator(t testing.TB, opts ...Option) *Evaluator {
	t.Helper()
	reg, err := rules.New("1.0.0", fixtureClasses...)
	require.NoError(t, err)
	reg.MustRegister(rules.StandardRules(reg.Classes())...)
	reg.MustRegister(fixtureIndustries...)
	ev, err := New(reg, opts...)
	require.NoError(t, err)
	return ev
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func verified(code eligibility.VisaCode, attrs eligibility.VisaAttributes) eligibility.VisaProfile {
	return eligibility.VisaProfile{Code: code, Attributes: &attrs}
}
