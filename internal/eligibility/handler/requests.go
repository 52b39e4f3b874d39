package handler

import (
	"net/url"
	"strconv"
	"strings"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/service"
	dErrors "visamatch/pkg/domain-errors"
)

// maxCodes bounds the codes query parameter.
const maxCodes = 50

// EvaluateRequest is the HTTP request body for POST /eligibility/evaluate.
type EvaluateRequest struct {
	Visa VisaPayload                `json:"visa"`
	Job  eligibility.JobConstraints `json:"job"`

	// Parsed values (populated by Validate)
	profile eligibility.VisaProfile
}

// VisaPayload is a visa profile as sent by clients. Omitting attributes
// requests an attribute-less evaluation.
type VisaPayload struct {
	VisaCode   string                      `json:"visaCode"`
	Attributes *eligibility.VisaAttributes `json:"attributes,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
// Job constraints are checked by the evaluator.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Visa.VisaCode = strings.TrimSpace(r.Visa.VisaCode)
	if r.Visa.VisaCode == "" {
		return dErrors.New(dErrors.CodeValidation, "visa.visaCode is required")
	}
	profile, err := eligibility.NewVisaProfile(r.Visa.VisaCode, r.Visa.Attributes)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	r.profile = profile
	return nil
}

// Profile returns the validated visa profile.
func (r *EvaluateRequest) Profile() eligibility.VisaProfile {
	return r.profile
}

func parseListJobsQuery(q url.Values) (service.ListJobsRequest, error) {
	req := service.ListJobsRequest{
		VisaCode:  q.Get("visa"),
		WorkerID:  q.Get("worker"),
		BoardType: q.Get("board"),
		Industry:  q.Get("industry"),
	}
	var err error
	if req.HideBlocked, err = boolParam(q, "hide_blocked"); err != nil {
		return req, err
	}
	if req.Page, err = intParam(q, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = intParam(q, "page_size"); err != nil {
		return req, err
	}
	return req, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.Newf(dErrors.CodeValidation, "%s must be true or false", name)
	}
	return v, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be an integer", name)
	}
	return v, nil
}

// parseCodes accepts both codes=E-9,F-4 and repeated codes parameters.
func parseCodes(q url.Values) []string {
	var out []string
	for _, v := range q["codes"] {
		for _, code := range strings.Split(v, ",") {
			if code = strings.TrimSpace(code); code != "" {
				out = append(out, code)
			}
			if len(out) == maxCodes {
				return out
			}
		}
	}
	return out
}
