package handler

import (
	"errors"
	"time"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
	"visamatch/internal/eligibility/service"
	dErrors "visamatch/pkg/domain-errors"
)

// JobResponse is a posting as returned to clients.
type JobResponse struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Employer    string                     `json:"employer"`
	Constraints eligibility.JobConstraints `json:"constraints"`
	PostedAt    time.Time                  `json:"postedAt"`
}

// RowError describes a row that could not be evaluated.
type RowError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// EvaluationResponse is the HTTP response for GET /eligibility/jobs/{jobID}.
type EvaluationResponse struct {
	Job      JobResponse         `json:"job"`
	Verified bool                `json:"verified"`
	Result   *eligibility.Result `json:"result"`
}

// JobRowResponse is one row of a job listing.
type JobRowResponse struct {
	Job    JobResponse         `json:"job"`
	Result *eligibility.Result `json:"result,omitempty"`
	Error  *RowError           `json:"error,omitempty"`
}

// JobPageResponse is the HTTP response for GET /eligibility/jobs.
type JobPageResponse struct {
	VisaCode eligibility.VisaCode     `json:"visaCode"`
	Verified bool                     `json:"verified"`
	Items    []JobRowResponse         `json:"items"`
	Summary  eligibility.MatchSummary `json:"summary"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
	Total    int                      `json:"total"`
}

// VisaRowResponse is one row of a visa listing.
type VisaRowResponse struct {
	VisaCode eligibility.VisaCode `json:"visaCode"`
	Result   *eligibility.Result  `json:"result,omitempty"`
	Error    *RowError            `json:"error,omitempty"`
}

// VisaMatchesResponse is the HTTP response for GET /eligibility/jobs/{jobID}/visas.
type VisaMatchesResponse struct {
	Job     JobResponse              `json:"job"`
	Items   []VisaRowResponse        `json:"items"`
	Summary eligibility.MatchSummary `json:"summary"`
}

func FromJob(job *ports.Job) JobResponse {
	return JobResponse{
		ID:          job.ID,
		Title:       job.Title,
		Employer:    job.Employer,
		Constraints: job.Constraints,
		PostedAt:    job.PostedAt,
	}
}

func FromEvaluation(ev *service.Evaluation) *EvaluationResponse {
	return &EvaluationResponse{
		Job:      FromJob(ev.Job),
		Verified: ev.Verified,
		Result:   ev.Result,
	}
}

func FromJobPage(page *service.JobPage) *JobPageResponse {
	items := make([]JobRowResponse, len(page.Items))
	for i, row := range page.Items {
		items[i] = JobRowResponse{Job: FromJob(row.Job), Result: row.Result, Error: fromRowError(row.Err)}
	}
	return &JobPageResponse{
		VisaCode: page.VisaCode,
		Verified: page.Verified,
		Items:    items,
		Summary:  page.Summary,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
	}
}

func FromVisaMatches(m *service.VisaMatches) *VisaMatchesResponse {
	items := make([]VisaRowResponse, len(m.Items))
	for i, row := range m.Items {
		items[i] = VisaRowResponse{VisaCode: row.Code, Result: row.Result, Error: fromRowError(row.Err)}
	}
	return &VisaMatchesResponse{
		Job:     FromJob(m.Job),
		Items:   items,
		Summary: m.Summary,
	}
}

// fromRowError mirrors httputil.WriteError: internal errors carry no description.
func fromRowError(err error) *RowError {
	if err == nil {
		return nil
	}
	code := dErrors.CodeOf(err)
	out := &RowError{Code: string(code)}
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		out.Description = de.Message
	}
	return out
}
