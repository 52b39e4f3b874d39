package matcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/catalog"
	"visamatch/internal/eligibility/evaluator"
	"visamatch/internal/eligibility/rules"
)

func intPtr(v int) *int { return &v }

type MatcherSuite struct {
	suite.Suite
	ev      *evaluator.Evaluator
	matcher *Matcher
}

func TestMatcherSuite(t *testing.T) {
	suite.Run(t, new(MatcherSuite))
}

func (s *MatcherSuite) SetupSuite() {
	cat, err := catalog.Default()
	s.Require().NoError(err)
	s.ev, err = cat.Evaluator()
	s.Require().NoError(err)
}

func (s *MatcherSuite) SetupTest() {
	s.matcher = New(s.ev, WithConcurrency(4))
}

func (s *MatcherSuite) jobs() []Job {
	return []Job{
		{ID: "job-1", Constraints: eligibility.JobConstraints{
			AllowedVisaCodes: []eligibility.VisaCode{"E-9", "H-2"},
			BoardType:        eligibility.BoardPartTime,
			WeeklyHours:      intPtr(20),
		}},
		{ID: "job-2", Constraints: eligibility.JobConstraints{
			AllowedVisaCodes: []eligibility.VisaCode{"D-2"},
			BoardType:        eligibility.BoardPartTime,
		}},
		{ID: "job-3", Constraints: eligibility.JobConstraints{
			BoardType:        eligibility.BoardFullTime,
			IndustryCategory: "SPECIAL_PERMIT_REQUIRED",
		}},
		{ID: "job-4", Constraints: eligibility.JobConstraints{
			BoardType:   eligibility.BoardPartTime,
			WeeklyHours: intPtr(-5),
		}},
	}
}

// =============================================================================
// JobsEligibleFor
// =============================================================================

func (s *MatcherSuite) TestJobsEligibleForKeepsOrderAndReportsItemErrors() {
	visa := eligibility.VisaProfile{Code: "E-9", Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: intPtr(25)}}

	rows, err := s.matcher.JobsEligibleFor(context.Background(), visa, s.jobs())
	s.Require().NoError(err)
	s.Require().Len(rows, 4)

	for i, job := range s.jobs() {
		s.Equal(job.ID, rows[i].Job.ID)
	}
	s.True(rows[0].Result.Eligible)
	s.False(rows[1].Result.Eligible)
	s.Equal(eligibility.StatusConditional, rows[2].Result.Status)
	s.Nil(rows[3].Result)
	s.ErrorIs(rows[3].Err, eligibility.ErrMalformedJobConstraints)

	summary := Summarize(rows)
	s.Equal(eligibility.MatchSummary{
		Total:            4,
		TotalEligible:    1,
		TotalConditional: 1,
		TotalBlocked:     1,
		TotalErrors:      1,
	}, summary)
}

func (s *MatcherSuite) TestUnknownVisaIsReportedPerRow() {
	rows, err := s.matcher.JobsEligibleFor(context.Background(), eligibility.SynthesizedProfile("X-0"), s.jobs()[:2])
	s.Require().NoError(err)
	for _, row := range rows {
		s.Nil(row.Result)
		var unknown *eligibility.UnknownVisaCodeError
		s.ErrorAs(row.Err, &unknown)
	}
	s.Equal(2, Summarize(rows).TotalErrors)
}

func (s *MatcherSuite) TestRowsMatchDirectEvaluation() {
	visa := eligibility.VisaProfile{Code: "D-2", Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: intPtr(25), RequiresWorkPermit: true}}
	for _, job := range s.jobs()[:3] {
		rows, err := s.matcher.JobsEligibleFor(context.Background(), visa, []Job{job})
		s.Require().NoError(err)
		direct, err := s.ev.Evaluate(visa, job.Constraints)
		s.Require().NoError(err)
		s.Equal(direct, rows[0].Result, job.ID)
	}
}

func (s *MatcherSuite) TestEmptyBatch() {
	rows, err := s.matcher.JobsEligibleFor(context.Background(), eligibility.SynthesizedProfile("F-4"), nil)
	s.Require().NoError(err)
	s.Empty(rows)
	s.Equal(eligibility.MatchSummary{}, Summarize(rows))
}

// =============================================================================
// VisasMatchingJob
// =============================================================================

func (s *MatcherSuite) TestVisasMatchingJobDefaultsToCatalog() {
	job := s.jobs()[0].Constraints

	rows, err := s.matcher.VisasMatchingJob(context.Background(), job, nil)
	s.Require().NoError(err)
	s.Require().Len(rows, len(s.ev.KnownVisaCodes()))

	for i, code := range s.ev.KnownVisaCodes() {
		s.Equal(code, rows[i].Code)
		s.Require().NoError(rows[i].Err)
		allowed := code == "E-9" || code == "H-2"
		s.Equal(allowed, rows[i].Result.Eligible, code)
	}

	s.Equal(eligibility.StatusConditional, rows[3].Result.Status, "E-9 hour cap needs a verified record")
}

func (s *MatcherSuite) TestVisasMatchingJobWithExplicitCodes() {
	rows, err := s.matcher.VisasMatchingJob(context.Background(), s.jobs()[2].Constraints, []eligibility.VisaCode{"F-4", "X-0"})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal([]string{"permit required"}, rows[0].Result.Restrictions)
	s.ErrorIs(rows[1].Err, eligibility.ErrUnknownVisaCode)
}

// =============================================================================
// Consistency between directions
// =============================================================================

func (s *MatcherSuite) TestEmptyAllowListIsUnrestrictedInBothDirections() {
	job := eligibility.JobConstraints{BoardType: eligibility.BoardFullTime}

	visaRows, err := s.matcher.VisasMatchingJob(context.Background(), job, nil)
	s.Require().NoError(err)
	for _, row := range visaRows {
		s.Require().NoError(row.Err)
		if row.Result.BlockedBy != nil {
			s.NotEqual(rules.IDAllowedVisaCodes, row.Result.BlockedBy.RuleID, row.Code)
		}
	}

	for _, code := range s.ev.KnownVisaCodes() {
		jobRows, err := s.matcher.JobsEligibleFor(context.Background(), eligibility.SynthesizedProfile(code), []Job{{ID: "open", Constraints: job}})
		s.Require().NoError(err)
		s.Equal(visaRows[indexOf(s.ev.KnownVisaCodes(), code)].Result, jobRows[0].Result, code)
	}
}

func (s *MatcherSuite) TestSynthesizedRowsAreNeverMoreRestrictiveThanVerified() {
	profiles := []eligibility.VisaProfile{
		{Code: "E-9", Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: intPtr(25)}},
		{Code: "D-2", Attributes: &eligibility.VisaAttributes{MaxWeeklyHours: intPtr(25), RequiresWorkPermit: true}},
		{Code: "E-7", Attributes: &eligibility.VisaAttributes{RequiresSponsorship: true, PermittedIndustries: []string{"MANUFACTURING"}}},
		{Code: "H-2", Attributes: &eligibility.VisaAttributes{Nationality: "UZ"}},
		{Code: "F-4", Attributes: &eligibility.VisaAttributes{}},
	}

	for _, job := range s.jobs()[:3] {
		for _, profile := range profiles {
			verified, err := s.matcher.JobsEligibleFor(context.Background(), profile, []Job{job})
			s.Require().NoError(err)
			synthesized, err := s.matcher.VisasMatchingJob(context.Background(), job.Constraints, []eligibility.VisaCode{profile.Code})
			s.Require().NoError(err)

			// A synthesized profile can only be blocked by rules that read no
			// attributes, and those block every holder of the code.
			if !synthesized[0].Result.Eligible {
				s.False(verified[0].Result.Eligible, "%s on %s", profile.Code, job.ID)
				s.Equal(synthesized[0].Result.BlockedBy, verified[0].Result.BlockedBy)
			}
		}
	}
}

func indexOf(codes []eligibility.VisaCode, code eligibility.VisaCode) int {
	for i, c := range codes {
		if c == code {
			return i
		}
	}
	return -1
}

// =============================================================================
// Concurrency and cancellation
// =============================================================================

type slowEvaluator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	delay    time.Duration
}

func (e *slowEvaluator) EvaluateContext(ctx context.Context, visa eligibility.VisaProfile, _ eligibility.JobConstraints) (*eligibility.Result, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	e.mu.Lock()
	if n > e.peak.Load() {
		e.peak.Store(n)
	}
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(e.delay):
	}
	return &eligibility.Result{Eligible: true, Status: eligibility.StatusEligible, VisaCode: visa.Code}, nil
}

func (e *slowEvaluator) KnownVisaCodes() []eligibility.VisaCode {
	return []eligibility.VisaCode{"A-1", "B-1", "C-1"}
}

func TestConcurrencyIsBounded(t *testing.T) {
	ev := &slowEvaluator{delay: 5 * time.Millisecond}
	m := New(ev, WithConcurrency(2))

	jobs := make([]Job, 20)
	rows, err := m.JobsEligibleFor(context.Background(), eligibility.SynthesizedProfile("A-1"), jobs)
	require.NoError(t, err)
	assert.Len(t, rows, 20)
	assert.LessOrEqual(t, ev.peak.Load(), int32(2))
	assert.Equal(t, 20, Summarize(rows).TotalEligible)
}

func TestCancellationDiscardsTheBatch(t *testing.T) {
	t.Run("already cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m := New(&slowEvaluator{delay: time.Millisecond})
		rows, err := m.VisasMatchingJob(ctx, eligibility.JobConstraints{BoardType: eligibility.BoardFullTime}, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, rows)
	})

	t.Run("cancelled mid-flight", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		m := New(&slowEvaluator{delay: time.Second}, WithConcurrency(1))
		rows, err := m.JobsEligibleFor(ctx, eligibility.SynthesizedProfile("A-1"), make([]Job, 5))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, rows)
	})
}
