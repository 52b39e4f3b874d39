package eligibility

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	ErrUnknownVisaCode         = errors.New("unknown visa code")
	ErrMalformedJobConstraints = errors.New("malformed job constraints")
	ErrMalformedVisaProfile    = errors.New("malformed visa profile")
	ErrDuplicateRuleID         = errors.New("duplicate rule id")
)

// UnknownVisaCodeError reports a code outside the registry's catalog. Callers
// surface it as "visa not recognized"; it is never mapped to ineligible.
type UnknownVisaCodeError struct {
	Code VisaCode
}

func (e *UnknownVisaCodeError) Error() string {
	return fmt.Sprintf("unknown visa code %q", string(e.Code))
}

func (e *UnknownVisaCodeError) Is(target error) bool {
	return target == ErrUnknownVisaCode
}

// MalformedJobConstraintsError reports posting data the engine cannot
// interpret, e.g. negative weekly hours.
type MalformedJobConstraintsError struct {
	Field  string
	Reason string
}

func (e *MalformedJobConstraintsError) Error() string {
	return fmt.Sprintf("malformed job constraints: %s %s", e.Field, e.Reason)
}

func (e *MalformedJobConstraintsError) Is(target error) bool {
	return target == ErrMalformedJobConstraints
}

// MalformedVisaProfileError reports verified attributes that are internally
// inconsistent.
type MalformedVisaProfileError struct {
	Code   VisaCode
	Reason string
}

func (e *MalformedVisaProfileError) Error() string {
	return fmt.Sprintf("malformed visa profile for %s: %s", string(e.Code), e.Reason)
}

func (e *MalformedVisaProfileError) Is(target error) bool {
	return target == ErrMalformedVisaProfile
}

// DuplicateRuleIDError is a registry misconfiguration, fatal at startup.
type DuplicateRuleIDError struct {
	RuleID string
}

func (e *DuplicateRuleIDError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.RuleID)
}

func (e *DuplicateRuleIDError) Is(target error) bool {
	return target == ErrDuplicateRuleID
}

// IsItemError reports whether err is a per-pair evaluation failure that a
// batch reports alongside its other rows instead of aborting.
func IsItemError(err error) bool {
	return errors.Is(err, ErrUnknownVisaCode) ||
		errors.Is(err, ErrMalformedJobConstraints) ||
		errors.Is(err, ErrMalformedVisaProfile)
}
