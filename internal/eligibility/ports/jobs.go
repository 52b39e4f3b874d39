package ports

import (
	"context"
	"time"

	"visamatch/internal/eligibility"
)

// Job is a posting as the eligibility service reads it from a job board.
type Job struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Employer    string                     `json:"employer"`
	Constraints eligibility.JobConstraints `json:"constraints"`
	PostedAt    time.Time                  `json:"postedAt"`
}

// JobFilter narrows a listing. Zero values match everything.
type JobFilter struct {
	BoardType eligibility.BoardType
	Industry  string
}

// Matches reports whether job passes the filter.
func (f JobFilter) Matches(job *Job) bool {
	if f.BoardType != "" && job.Constraints.BoardType != f.BoardType {
		return false
	}
	if f.Industry != "" && eligibility.NormalizeIndustry(job.Constraints.IndustryCategory) != eligibility.NormalizeIndustry(f.Industry) {
		return false
	}
	return true
}

// JobSource defines the interface for job posting lookups.
// This port keeps the eligibility service independent of where postings live.
type JobSource interface {
	// Get returns sentinel.ErrNotFound if no posting has id.
	Get(ctx context.Context, id string) (*Job, error)
	// List returns postings newest first. An empty result is not an error.
	List(ctx context.Context, filter JobFilter) ([]*Job, error)
}
