package ports

import (
	"context"
	"time"

	"visamatch/internal/eligibility"
)

// VerificationRecord is the outcome of a worker's visa verification.
type VerificationRecord struct {
	WorkerID   string                      `json:"workerId"`
	VisaCode   eligibility.VisaCode        `json:"visaCode"`
	Verified   bool                        `json:"verified"`
	Attributes *eligibility.VisaAttributes `json:"attributes,omitempty"`
	VerifiedAt time.Time                   `json:"verifiedAt"`
	// ExpiresAt is zero when the verification does not lapse.
	ExpiresAt  time.Time                   `json:"expiresAt"`
}

// ExpiredAt reports whether the record has lapsed at now.
func (r *VerificationRecord) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// VerificationSource defines the interface for verified visa lookups.
type VerificationSource interface {
	// Get returns the worker's latest record, or sentinel.ErrNotFound.
	Get(ctx context.Context, workerID string) (*VerificationRecord, error)
}
