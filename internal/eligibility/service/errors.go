package service

import (
	"context"
	"errors"

	"visamatch/internal/eligibility"
	dErrors "visamatch/pkg/domain-errors"
	"visamatch/pkg/platform/sentinel"
)

// translateEvalError maps evaluator failures onto client-facing codes. An
// unknown visa is a bad request, never an ineligible verdict.
func translateEvalError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, eligibility.ErrUnknownVisaCode):
		return dErrors.Wrap(err, dErrors.CodeValidation, "visa not recognized")
	case errors.Is(err, eligibility.ErrMalformedJobConstraints):
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, "job posting data is malformed")
	case errors.Is(err, eligibility.ErrMalformedVisaProfile):
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, "verified visa attributes are malformed")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "evaluation timed out")
	case errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "evaluation cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate eligibility")
	}
}

func translateStoreError(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
	}
}
