package eligibility

// OutcomeKind is the verdict of a single rule.
type OutcomeKind string

const (
	OutcomePass        OutcomeKind = "PASS"
	OutcomeConditional OutcomeKind = "CONDITIONAL"
	OutcomeBlock       OutcomeKind = "BLOCK"
	// OutcomeNote is advisory only; it never changes eligibility or restrictions.
	OutcomeNote OutcomeKind = "NOTE"
)

// Outcome is what one rule returned for one (visa, job) pair.
type Outcome struct {
	Kind      OutcomeKind
	Reason    string
	Documents []string
	RuleID    string
}

// Pass returns a PASS outcome.
func Pass() Outcome {
	return Outcome{Kind: OutcomePass}
}

// Conditional returns a CONDITIONAL outcome with optional required documents.
func Conditional(reason string, documents ...string) Outcome {
	return Outcome{Kind: OutcomeConditional, Reason: reason, Documents: documents}
}

// Block returns a BLOCK outcome.
func Block(reason string) Outcome {
	return Outcome{Kind: OutcomeBlock, Reason: reason}
}

// Note returns an advisory-only outcome.
func Note(text string) Outcome {
	return Outcome{Kind: OutcomeNote, Reason: text}
}

// Status is the three-way badge state derived from a Result.
type Status string

const (
	StatusEligible    Status = "eligible"
	StatusConditional Status = "conditional"
	StatusBlocked     Status = "blocked"
)

// BlockReason names the first rule, in registry order, that blocked a pair.
type BlockReason struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
}

// Result is the explainable verdict of one evaluation.
//
// Eligible is false iff at least one applicable rule blocked. Restrictions and
// DocumentsRequired are empty whenever the pair is blocked.
type Result struct {
	Eligible          bool         `json:"eligible"`
	Status            Status       `json:"status"`
	VisaCode          VisaCode     `json:"visaCode"`
	Restrictions      []string     `json:"restrictions"`
	Notes             []string     `json:"notes"`
	DocumentsRequired []string     `json:"documentsRequired"`
	BlockedBy         *BlockReason `json:"blockedBy,omitempty"`
	RuleSetVersion    string       `json:"ruleSetVersion"`
}

// MatchSummary counts batch rows by status. Rows that failed to evaluate are
// counted only in TotalErrors.
type MatchSummary struct {
	Total            int `json:"total"`
	TotalEligible    int `json:"totalEligible"`
	TotalConditional int `json:"totalConditional"`
	TotalBlocked     int `json:"totalBlocked"`
	TotalErrors      int `json:"totalErrors"`
}

// Add counts one row.
func (s *MatchSummary) Add(result *Result, err error) {
	s.Total++
	switch {
	case err != nil || result == nil:
		s.TotalErrors++
	case result.Status == StatusBlocked:
		s.TotalBlocked++
	case result.Status == StatusConditional:
		s.TotalConditional++
	default:
		s.TotalEligible++
	}
}
