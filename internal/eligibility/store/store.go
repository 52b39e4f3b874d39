// Package store holds job postings and visa verification records behind the
// eligibility ports.
package store

import (
	"context"
	"errors"
	"strings"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
	"visamatch/pkg/platform/sentinel"
)

// ErrNotFound is returned when a job or verification record does not exist.
var ErrNotFound = sentinel.ErrNotFound

// JobWriter persists postings. Both job stores implement it.
type JobWriter interface {
	Save(ctx context.Context, job *ports.Job) error
}

var (
	_ ports.JobSource          = (*InMemoryJobStore)(nil)
	_ ports.JobSource          = (*PostgresJobStore)(nil)
	_ ports.VerificationSource = (*InMemoryVerificationStore)(nil)
	_ JobWriter                = (*InMemoryJobStore)(nil)
	_ JobWriter                = (*PostgresJobStore)(nil)
)

// prepareJob validates a posting and returns a normalized copy for storage.
func prepareJob(job *ports.Job) (*ports.Job, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if strings.TrimSpace(job.ID) == "" {
		return nil, errors.New("job id is required")
	}
	constraints := job.Constraints.Normalized()
	if err := constraints.Validate(); err != nil {
		return nil, err
	}
	cp := *job
	cp.ID = strings.TrimSpace(job.ID)
	cp.Constraints = cloneConstraints(constraints)
	return &cp, nil
}

func cloneJob(job *ports.Job) *ports.Job {
	cp := *job
	cp.Constraints = cloneConstraints(job.Constraints)
	return &cp
}

func cloneConstraints(c eligibility.JobConstraints) eligibility.JobConstraints {
	out := c
	if c.AllowedVisaCodes != nil {
		out.AllowedVisaCodes = append([]eligibility.VisaCode(nil), c.AllowedVisaCodes...)
	}
	if c.WeeklyHours != nil {
		h := *c.WeeklyHours
		out.WeeklyHours = &h
	}
	if c.RequiresSponsorship != nil {
		b := *c.RequiresSponsorship
		out.RequiresSponsorship = &b
	}
	return out
}
