package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/catalog"
	"visamatch/internal/eligibility/matcher"
	"visamatch/internal/eligibility/ports"
	"visamatch/internal/eligibility/store"
	dErrors "visamatch/pkg/domain-errors"
	"visamatch/pkg/requestcontext"
)

var testNow = time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

type recordingMetrics struct {
	batches map[string][]int
}

func (m *recordingMetrics) ObserveBatch(direction string, size int) {
	if m.batches == nil {
		m.batches = make(map[string][]int)
	}
	m.batches[direction] = append(m.batches[direction], size)
}

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	jobs          *store.InMemoryJobStore
	verifications *store.InMemoryVerificationStore
	metrics       *recordingMetrics
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testNow)
	cat, err := catalog.Default()
	s.Require().NoError(err)
	ev, err := cat.Evaluator()
	s.Require().NoError(err)

	s.jobs = store.NewInMemoryJobStore()
	s.verifications = store.NewInMemoryVerificationStore()
	s.metrics = &recordingMetrics{}
	s.service = New(ev, nil, s.jobs, s.verifications, WithMetrics(s.metrics))

	hours := func(h int) *int { return &h }
	s.saveJob("cafe", eligibility.JobConstraints{BoardType: eligibility.BoardPartTime, WeeklyHours: hours(16), IndustryCategory: "FOOD"}, 3)
	s.saveJob("club", eligibility.JobConstraints{BoardType: eligibility.BoardPartTime, WeeklyHours: hours(20), IndustryCategory: "NIGHTLIFE"}, 2)
	s.saveJob("factory", eligibility.JobConstraints{
		BoardType:        eligibility.BoardFullTime,
		WeeklyHours:      hours(40),
		IndustryCategory: "MANUFACTURING",
		AllowedVisaCodes: []eligibility.VisaCode{"E-9"},
	}, 1)

	s.saveVerification(&ports.VerificationRecord{WorkerID: "resident", VisaCode: "F-5", Verified: true,
		Attributes: &eligibility.VisaAttributes{Nationality: "PH"}})
	s.saveVerification(&ports.VerificationRecord{WorkerID: "student", VisaCode: "D-2", Verified: true,
		Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: hours(25), RequiresWorkPermit: true}})
	s.saveVerification(&ports.VerificationRecord{WorkerID: "pending", VisaCode: "E-7"})
	s.saveVerification(&ports.VerificationRecord{WorkerID: "lapsed", VisaCode: "F-4", Verified: true,
		Attributes: &eligibility.VisaAttributes{}, ExpiresAt: testNow.Add(-time.Hour)})
}

func (s *ServiceSuite) saveJob(id string, c eligibility.JobConstraints, hoursAgo int) {
	s.Require().NoError(s.jobs.Save(context.Background(), &ports.Job{
		ID:          id,
		Title:       id,
		Constraints: c,
		PostedAt:    testNow.Add(-time.Duration(hoursAgo) * time.Hour),
	}))
}

func (s *ServiceSuite) saveVerification(rec *ports.VerificationRecord) {
	rec.VerifiedAt = testNow.Add(-24 * time.Hour)
	s.Require().NoError(s.verifications.Save(context.Background(), rec))
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *ServiceSuite) TestEvaluate() {
	s.Run("bare visa code is attribute-less", func() {
		ev, err := s.service.Evaluate(s.ctx, EvaluateRequest{VisaCode: "f-4", JobID: "cafe"})
		s.Require().NoError(err)
		s.False(ev.Verified)
		s.Equal("cafe", ev.Job.ID)
		s.True(ev.Result.Eligible)
		s.Equal(eligibility.StatusEligible, ev.Result.Status)
	})

	s.Run("verified worker exempt from industry block", func() {
		ev, err := s.service.Evaluate(s.ctx, EvaluateRequest{WorkerID: "resident", JobID: "club"})
		s.Require().NoError(err)
		s.True(ev.Verified)
		s.True(ev.Result.Eligible)
	})

	s.Run("blocked pair is a verdict, not an error", func() {
		ev, err := s.service.Evaluate(s.ctx, EvaluateRequest{VisaCode: "E-9", JobID: "club"})
		s.Require().NoError(err)
		s.False(ev.Result.Eligible)
		s.Equal(eligibility.StatusBlocked, ev.Result.Status)
		s.Require().NotNil(ev.Result.BlockedBy)
	})

	s.Run("matching code with worker id", func() {
		ev, err := s.service.Evaluate(s.ctx, EvaluateRequest{VisaCode: "D-2", WorkerID: "student", JobID: "cafe"})
		s.Require().NoError(err)
		s.True(ev.Result.Eligible)
		s.Contains(ev.Result.DocumentsRequired, "part-time employment permit")
	})
}

func (s *ServiceSuite) TestEvaluateErrors() {
	tests := []struct {
		name string
		req  EvaluateRequest
		code dErrors.Code
	}{
		{name: "missing job id", req: EvaluateRequest{VisaCode: "F-4"}, code: dErrors.CodeValidation},
		{name: "missing visa and worker", req: EvaluateRequest{JobID: "cafe"}, code: dErrors.CodeValidation},
		{name: "unknown visa code", req: EvaluateRequest{VisaCode: "Z-9", JobID: "cafe"}, code: dErrors.CodeValidation},
		{name: "malformed visa code", req: EvaluateRequest{VisaCode: "e 9", JobID: "cafe"}, code: dErrors.CodeValidation},
		{name: "missing job", req: EvaluateRequest{VisaCode: "F-4", JobID: "ghost"}, code: dErrors.CodeNotFound},
		{name: "missing worker", req: EvaluateRequest{WorkerID: "ghost", JobID: "cafe"}, code: dErrors.CodeNotFound},
		{name: "unverified worker", req: EvaluateRequest{WorkerID: "pending", JobID: "cafe"}, code: dErrors.CodeUnprocessable},
		{name: "lapsed verification", req: EvaluateRequest{WorkerID: "lapsed", JobID: "cafe"}, code: dErrors.CodeUnprocessable},
		{name: "code differs from verified visa", req: EvaluateRequest{VisaCode: "F-4", WorkerID: "student", JobID: "cafe"}, code: dErrors.CodeValidation},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.service.Evaluate(s.ctx, tc.req)
			s.assertCode(err, tc.code)
		})
	}
}

func (s *ServiceSuite) TestUnknownVisaIsNotIneligible() {
	_, err := s.service.Evaluate(s.ctx, EvaluateRequest{VisaCode: "Z-9", JobID: "cafe"})
	s.ErrorIs(err, eligibility.ErrUnknownVisaCode)
}

func (s *ServiceSuite) TestListEligibleJobs() {
	s.Run("every row with summary", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "E-9"})
		s.Require().NoError(err)
		s.Equal([]string{"factory", "club", "cafe"}, jobIDs(page.Items))
		s.Equal(eligibility.MatchSummary{Total: 3, TotalConditional: 2, TotalBlocked: 1}, page.Summary)
		s.Equal(3, page.Total)
		s.Equal(1, page.Page)
		s.Equal(defaultPageSize, page.PageSize)
		s.False(page.Verified)
		s.Equal([]int{3}, s.metrics.batches["jobs"])
	})

	s.Run("hiding blocked rows keeps the full summary", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "E-9", HideBlocked: true})
		s.Require().NoError(err)
		s.Equal([]string{"factory", "cafe"}, jobIDs(page.Items))
		s.Equal(2, page.Total)
		s.Equal(3, page.Summary.Total)
		s.Equal(1, page.Summary.TotalBlocked)
	})

	s.Run("board filter", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "F-4", BoardType: "full_time"})
		s.Require().NoError(err)
		s.Equal([]string{"factory"}, jobIDs(page.Items))
		s.False(page.Items[0].Result.Eligible)
	})

	s.Run("industry filter", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "F-4", Industry: "food"})
		s.Require().NoError(err)
		s.Equal([]string{"cafe"}, jobIDs(page.Items))
	})

	s.Run("paging", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "E-9", Page: 2, PageSize: 1})
		s.Require().NoError(err)
		s.Equal([]string{"club"}, jobIDs(page.Items))
		s.Equal(3, page.Total)

		page, err = s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "E-9", Page: 9, PageSize: 1})
		s.Require().NoError(err)
		s.Empty(page.Items)
		s.Equal(3, page.Summary.Total)
	})

	s.Run("page size is capped", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{VisaCode: "E-9", PageSize: 1000})
		s.Require().NoError(err)
		s.Equal(maxPageSize, page.PageSize)
	})

	s.Run("verified worker", func() {
		page, err := s.service.ListEligibleJobs(s.ctx, ListJobsRequest{WorkerID: "resident"})
		s.Require().NoError(err)
		s.True(page.Verified)
		s.Equal(eligibility.VisaCode("F-5"), page.VisaCode)
		s.Equal(1, page.Summary.TotalBlocked)
	})
}

func (s *ServiceSuite) TestListEligibleJobsErrors() {
	tests := []struct {
		name string
		req  ListJobsRequest
		code dErrors.Code
	}{
		{name: "bad board", req: ListJobsRequest{VisaCode: "E-9", BoardType: "SHIFT"}, code: dErrors.CodeValidation},
		{name: "negative page", req: ListJobsRequest{VisaCode: "E-9", Page: -1}, code: dErrors.CodeValidation},
		{name: "unknown visa", req: ListJobsRequest{VisaCode: "Z-9"}, code: dErrors.CodeValidation},
		{name: "no visa", req: ListJobsRequest{}, code: dErrors.CodeValidation},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.service.ListEligibleJobs(s.ctx, tc.req)
			s.assertCode(err, tc.code)
		})
	}
}

func (s *ServiceSuite) TestListMatchingVisas() {
	s.Run("every catalog code", func() {
		matches, err := s.service.ListMatchingVisas(s.ctx, "factory", nil)
		s.Require().NoError(err)
		known := s.service.KnownVisaCodes()
		s.Require().Len(matches.Items, len(known))
		s.Equal(len(known), matches.Summary.Total)
		s.Equal(len(known)-1, matches.Summary.TotalBlocked)
		for _, row := range matches.Items {
			s.Require().NoError(row.Err)
			s.Equal(row.Code == "E-9", row.Result.Eligible, row.Code)
		}
		s.Equal([]int{len(known)}, s.metrics.batches["visas"])
	})

	s.Run("selected codes keep order and report unknown codes per row", func() {
		matches, err := s.service.ListMatchingVisas(s.ctx, "cafe", []string{"f-4", "Q-1", "F-4", ""})
		s.Require().NoError(err)
		s.Require().Len(matches.Items, 2)
		s.Equal(eligibility.VisaCode("F-4"), matches.Items[0].Code)
		s.True(matches.Items[0].Result.Eligible)
		s.Nil(matches.Items[1].Result)
		s.True(dErrors.HasCode(matches.Items[1].Err, dErrors.CodeValidation))
		s.Equal(1, matches.Summary.TotalErrors)
	})

	s.Run("malformed code", func() {
		_, err := s.service.ListMatchingVisas(s.ctx, "cafe", []string{"!!"})
		s.assertCode(err, dErrors.CodeValidation)
	})

	s.Run("missing job", func() {
		_, err := s.service.ListMatchingVisas(s.ctx, "ghost", nil)
		s.assertCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestEvaluateDirect() {
	res, err := s.service.EvaluateDirect(s.ctx, eligibility.SynthesizedProfile("F-4"),
		eligibility.JobConstraints{BoardType: eligibility.BoardPartTime})
	s.Require().NoError(err)
	s.True(res.Eligible)

	_, err = s.service.EvaluateDirect(s.ctx, eligibility.SynthesizedProfile("F-4"),
		eligibility.JobConstraints{BoardType: "SHIFT"})
	s.assertCode(err, dErrors.CodeUnprocessable)
}

type brokenJobs struct {
	job *ports.Job
	err error
}

func (b brokenJobs) Get(context.Context, string) (*ports.Job, error) { return b.job, b.err }

func (b brokenJobs) List(context.Context, ports.JobFilter) ([]*ports.Job, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []*ports.Job{b.job}, nil
}

type cancelledMatcher struct{}

func (cancelledMatcher) JobsEligibleFor(context.Context, eligibility.VisaProfile, []matcher.Job) ([]matcher.JobMatch, error) {
	return nil, context.Canceled
}

func (cancelledMatcher) VisasMatchingJob(context.Context, eligibility.JobConstraints, []eligibility.VisaCode) ([]matcher.VisaMatch, error) {
	return nil, context.DeadlineExceeded
}

func TestServiceFailures(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	ev, err := cat.Evaluator()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	malformed := &ports.Job{ID: "bad", Constraints: eligibility.JobConstraints{BoardType: "SHIFT"}}
	verifications := store.NewInMemoryVerificationStore()

	t.Run("malformed posting", func(t *testing.T) {
		svc := New(ev, nil, brokenJobs{job: malformed}, verifications)
		_, err := svc.Evaluate(ctx, EvaluateRequest{VisaCode: "F-4", JobID: "bad"})
		if !dErrors.HasCode(err, dErrors.CodeUnprocessable) {
			t.Fatalf("expected unprocessable, got %v", err)
		}

		page, err := svc.ListEligibleJobs(ctx, ListJobsRequest{VisaCode: "F-4"})
		if err != nil {
			t.Fatalf("malformed row must not fail the list: %v", err)
		}
		if page.Summary.TotalErrors != 1 || !dErrors.HasCode(page.Items[0].Err, dErrors.CodeUnprocessable) {
			t.Fatalf("expected one unprocessable row, got %+v", page.Items)
		}
	})

	t.Run("store outage", func(t *testing.T) {
		svc := New(ev, nil, brokenJobs{err: errors.New("connection refused")}, verifications)
		_, err := svc.ListEligibleJobs(ctx, ListJobsRequest{VisaCode: "F-4"})
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal, got %v", err)
		}
	})

	t.Run("cancelled batch", func(t *testing.T) {
		jobs := store.NewInMemoryJobStore()
		if err := jobs.Save(ctx, &ports.Job{ID: "j", Constraints: eligibility.JobConstraints{BoardType: eligibility.BoardPartTime}}); err != nil {
			t.Fatal(err)
		}
		svc := New(ev, cancelledMatcher{}, jobs, verifications)

		_, err := svc.ListEligibleJobs(ctx, ListJobsRequest{VisaCode: "F-4"})
		if !dErrors.HasCode(err, dErrors.CodeTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
		_, err = svc.ListMatchingVisas(ctx, "j", nil)
		if !dErrors.HasCode(err, dErrors.CodeTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
	})
}

func jobIDs(rows []JobRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Job.ID)
	}
	return out
}
