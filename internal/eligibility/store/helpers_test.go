package store

import (
	"time"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func newJob(id string, board eligibility.BoardType, industry string, postedAt time.Time) *ports.Job {
	return &ports.Job{
		ID:       id,
		Title:    "Job " + id,
		Employer: "Employer " + id,
		Constraints: eligibility.JobConstraints{
			BoardType:        board,
			WeeklyHours:      intPtr(20),
			IndustryCategory: industry,
		},
		PostedAt: postedAt,
	}
}
