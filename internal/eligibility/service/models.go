package service

import (
	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EvaluateRequest asks for one verdict. WorkerID selects a verified profile;
// without it VisaCode is evaluated as an attribute-less profile.
type EvaluateRequest struct {
	VisaCode string
	WorkerID string
	JobID    string
}

// Evaluation is the verdict for one stored posting.
type Evaluation struct {
	Job      *ports.Job
	Verified bool
	Result   *eligibility.Result
}

// ListJobsRequest selects the postings to evaluate for one visa.
type ListJobsRequest struct {
	VisaCode    string
	WorkerID    string
	BoardType   string
	Industry    string
	HideBlocked bool
	Page        int
	PageSize    int
}

// JobRow is one evaluated posting. Exactly one of Result and Err is set.
type JobRow struct {
	Job    *ports.Job
	Result *eligibility.Result
	Err    error
}

// JobPage is one page of evaluated postings. Summary counts every evaluated
// row; Total counts the rows left after blocked ones are hidden.
type JobPage struct {
	VisaCode eligibility.VisaCode
	Verified bool
	Items    []JobRow
	Summary  eligibility.MatchSummary
	Page     int
	PageSize int
	Total    int
}

// VisaRow is one visa evaluated against a posting. Exactly one of Result and
// Err is set.
type VisaRow struct {
	Code   eligibility.VisaCode
	Result *eligibility.Result
	Err    error
}

// VisaMatches lists which visas can apply to one posting.
type VisaMatches struct {
	Job     *ports.Job
	Items   []VisaRow
	Summary eligibility.MatchSummary
}

// normalizePaging applies defaults. Negative values are rejected by the caller.
func normalizePaging(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func pageBounds(total, page, pageSize int) (int, int) {
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
