// Package service answers eligibility questions about stored postings and
// verified workers. Handlers and the CLI call it; it owns profile resolution,
// paging, and error translation, while verdicts come from the evaluator.
package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/matcher"
	"visamatch/internal/eligibility/ports"
	dErrors "visamatch/pkg/domain-errors"
	"visamatch/pkg/requestcontext"
)

// Evaluator decides one pair.
type Evaluator interface {
	EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error)
	KnownVisaCodes() []eligibility.VisaCode
}

// Matcher runs the list-shaped questions.
type Matcher interface {
	JobsEligibleFor(ctx context.Context, visa eligibility.VisaProfile, jobs []matcher.Job) ([]matcher.JobMatch, error)
	VisasMatchingJob(ctx context.Context, job eligibility.JobConstraints, visaCodes []eligibility.VisaCode) ([]matcher.VisaMatch, error)
}

// Metrics records batch sizes.
type Metrics interface {
	ObserveBatch(direction string, size int)
}

// Service orchestrates job and verification lookups around the evaluator.
type Service struct {
	evaluator     Evaluator
	matcher       Matcher
	jobs          ports.JobSource
	verifications ports.VerificationSource
	logger        *slog.Logger
	metrics       Metrics
	tracer        trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service. When m is nil a matcher over ev is created.
func New(ev Evaluator, m Matcher, jobs ports.JobSource, verifications ports.VerificationSource, opts ...Option) *Service {
	if m == nil {
		m = matcher.New(ev)
	}
	s := &Service{
		evaluator:     ev,
		matcher:       m,
		jobs:          jobs,
		verifications: verifications,
		logger:        slog.Default(),
		tracer:        otel.Tracer("visamatch/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the verdict for one stored posting.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "service.Evaluate", trace.WithAttributes(
		attribute.String("job_id", req.JobID),
		attribute.Bool("worker", req.WorkerID != ""),
	))
	defer span.End()

	if strings.TrimSpace(req.JobID) == "" {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "job id is required"))
	}
	visa, err := s.resolveProfile(ctx, req.VisaCode, req.WorkerID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "job"))
	}

	result, err := s.evaluator.EvaluateContext(ctx, visa, job.Constraints)
	if err != nil {
		s.logger.WarnContext(ctx, "evaluation failed",
			"request_id", requestcontext.RequestID(ctx),
			"visa_code", string(visa.Code),
			"job_id", job.ID,
			"error", err,
		)
		return nil, s.fail(span, translateEvalError(err))
	}
	span.SetAttributes(attribute.String("status", string(result.Status)))
	return &Evaluation{Job: job, Verified: !visa.IsSynthesized(), Result: result}, nil
}

// EvaluateDirect decides a pair the caller has already resolved.
func (s *Service) EvaluateDirect(ctx context.Context, visa eligibility.VisaProfile, job eligibility.JobConstraints) (*eligibility.Result, error) {
	result, err := s.evaluator.EvaluateContext(ctx, visa, job)
	if err != nil {
		return nil, translateEvalError(err)
	}
	return result, nil
}

// ListEligibleJobs evaluates one visa against every posting the filter
// selects. The summary covers all evaluated rows, before hiding and paging.
func (s *Service) ListEligibleJobs(ctx context.Context, req ListJobsRequest) (*JobPage, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListEligibleJobs", trace.WithAttributes(
		attribute.String("board_type", req.BoardType),
		attribute.String("industry", req.Industry),
		attribute.Bool("hide_blocked", req.HideBlocked),
	))
	defer span.End()

	if req.Page < 0 || req.PageSize < 0 {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "page and page_size must not be negative"))
	}
	filter := ports.JobFilter{Industry: strings.TrimSpace(req.Industry)}
	if strings.TrimSpace(req.BoardType) != "" {
		bt, ok := eligibility.ParseBoardType(req.BoardType)
		if !ok {
			return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "board must be PART_TIME or FULL_TIME"))
		}
		filter.BoardType = bt
	}
	visa, err := s.resolveProfile(ctx, req.VisaCode, req.WorkerID)
	if err != nil {
		return nil, s.fail(span, err)
	}

	postings, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "jobs"))
	}
	batch := make([]matcher.Job, len(postings))
	for i, p := range postings {
		batch[i] = matcher.Job{ID: p.ID, Constraints: p.Constraints}
	}
	s.observeBatch("jobs", len(batch))

	rows, err := s.matcher.JobsEligibleFor(ctx, visa, batch)
	if err != nil {
		return nil, s.fail(span, translateEvalError(err))
	}

	items := make([]JobRow, 0, len(rows))
	for i, row := range rows {
		if row.Err != nil {
			s.logger.WarnContext(ctx, "job evaluation failed",
				"request_id", requestcontext.RequestID(ctx),
				"visa_code", string(visa.Code),
				"job_id", row.Job.ID,
				"error", row.Err,
			)
		}
		if req.HideBlocked && row.Result != nil && !row.Result.Eligible {
			continue
		}
		items = append(items, JobRow{Job: postings[i], Result: row.Result, Err: translateEvalError(row.Err)})
	}

	page, pageSize := normalizePaging(req.Page, req.PageSize)
	start, end := pageBounds(len(items), page, pageSize)
	summary := matcher.Summarize(rows)
	span.SetAttributes(
		attribute.Int("total", summary.Total),
		attribute.Int("eligible", summary.TotalEligible),
	)
	return &JobPage{
		VisaCode: visa.Code,
		Verified: !visa.IsSynthesized(),
		Items:    items[start:end],
		Summary:  summary,
		Page:     page,
		PageSize: pageSize,
		Total:    len(items),
	}, nil
}

// ListMatchingVisas evaluates a stored posting against visaCodes, or against
// every catalog code when visaCodes is empty. Unknown codes become row errors.
func (s *Service) ListMatchingVisas(ctx context.Context, jobID string, visaCodes []string) (*VisaMatches, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListMatchingVisas", trace.WithAttributes(
		attribute.String("job_id", jobID),
	))
	defer span.End()

	var parsed []eligibility.VisaCode
	for _, raw := range visaCodes {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		code, ok := eligibility.ParseVisaCode(raw)
		if !ok {
			return nil, s.fail(span, dErrors.Newf(dErrors.CodeValidation, "visa code %q is malformed", raw))
		}
		if !slices.Contains(parsed, code) {
			parsed = append(parsed, code)
		}
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "job"))
	}
	if len(parsed) == 0 {
		parsed = s.evaluator.KnownVisaCodes()
	}
	s.observeBatch("visas", len(parsed))

	rows, err := s.matcher.VisasMatchingJob(ctx, job.Constraints, parsed)
	if err != nil {
		return nil, s.fail(span, translateEvalError(err))
	}
	items := make([]VisaRow, len(rows))
	for i, row := range rows {
		items[i] = VisaRow{Code: row.Code, Result: row.Result, Err: translateEvalError(row.Err)}
	}
	return &VisaMatches{Job: job, Items: items, Summary: matcher.Summarize(rows)}, nil
}

// KnownVisaCodes lists the catalog codes in registry order.
func (s *Service) KnownVisaCodes() []eligibility.VisaCode {
	return s.evaluator.KnownVisaCodes()
}

// resolveProfile returns the worker's verified profile when workerID is set,
// else an attribute-less profile for visaCode. The code must be in the catalog.
func (s *Service) resolveProfile(ctx context.Context, visaCode, workerID string) (eligibility.VisaProfile, error) {
	if strings.TrimSpace(workerID) != "" {
		return s.verifiedProfile(ctx, visaCode, workerID)
	}
	if strings.TrimSpace(visaCode) == "" {
		return eligibility.VisaProfile{}, dErrors.New(dErrors.CodeValidation, "visa code or worker id is required")
	}
	code, ok := eligibility.ParseVisaCode(visaCode)
	if !ok || !slices.Contains(s.evaluator.KnownVisaCodes(), code) {
		return eligibility.VisaProfile{}, dErrors.Wrap(&eligibility.UnknownVisaCodeError{Code: eligibility.VisaCode(strings.TrimSpace(visaCode))},
			dErrors.CodeValidation, "visa not recognized")
	}
	return eligibility.SynthesizedProfile(code), nil
}

func (s *Service) verifiedProfile(ctx context.Context, visaCode, workerID string) (eligibility.VisaProfile, error) {
	rec, err := s.verifications.Get(ctx, workerID)
	if err != nil {
		return eligibility.VisaProfile{}, translateStoreError(err, "verification record")
	}
	if !rec.Verified {
		return eligibility.VisaProfile{}, dErrors.New(dErrors.CodeUnprocessable, "visa verification is not complete")
	}
	if rec.ExpiredAt(requestcontext.Now(ctx)) {
		return eligibility.VisaProfile{}, dErrors.New(dErrors.CodeUnprocessable, "visa verification has expired")
	}
	if strings.TrimSpace(visaCode) != "" {
		code, ok := eligibility.ParseVisaCode(visaCode)
		if !ok || code != rec.VisaCode {
			return eligibility.VisaProfile{}, dErrors.New(dErrors.CodeValidation, "visa code does not match the worker's verified visa")
		}
	}
	profile, err := eligibility.NewVisaProfile(string(rec.VisaCode), rec.Attributes)
	if err != nil {
		return eligibility.VisaProfile{}, translateEvalError(err)
	}
	if !slices.Contains(s.evaluator.KnownVisaCodes(), profile.Code) {
		return eligibility.VisaProfile{}, translateEvalError(&eligibility.UnknownVisaCodeError{Code: profile.Code})
	}
	return profile, nil
}

func (s *Service) observeBatch(direction string, size int) {
	if s.metrics != nil {
		s.metrics.ObserveBatch(direction, size)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
