package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
	"visamatch/pkg/platform/sentinel"
)

type InMemoryJobStoreSuite struct {
	suite.Suite
	store *InMemoryJobStore
	base  time.Time
}

func TestInMemoryJobStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryJobStoreSuite))
}

func (s *InMemoryJobStoreSuite) SetupTest() {
	s.store = NewInMemoryJobStore()
	s.base = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryJobStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	job := newJob("job-1", "part_time", " food_service ", s.base)
	job.Constraints.AllowedVisaCodes = []eligibility.VisaCode{"d-2", "D-2", "f-4"}
	s.Require().NoError(s.store.Save(ctx, job))

	got, err := s.store.Get(ctx, " job-1 ")
	s.Require().NoError(err)
	s.Equal(eligibility.BoardPartTime, got.Constraints.BoardType)
	s.Equal("FOOD_SERVICE", got.Constraints.IndustryCategory)
	s.Equal([]eligibility.VisaCode{"D-2", "F-4"}, got.Constraints.AllowedVisaCodes)
}

func (s *InMemoryJobStoreSuite) TestGetReturnsCopy() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newJob("job-1", eligibility.BoardPartTime, "", s.base)))

	got, err := s.store.Get(ctx, "job-1")
	s.Require().NoError(err)
	*got.Constraints.WeeklyHours = 99

	again, err := s.store.Get(ctx, "job-1")
	s.Require().NoError(err)
	s.Equal(20, *again.Constraints.WeeklyHours)
}

func (s *InMemoryJobStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryJobStoreSuite) TestSaveRejectsInvalidJobs() {
	ctx := context.Background()

	s.Error(s.store.Save(ctx, nil))
	s.Error(s.store.Save(ctx, newJob(" ", eligibility.BoardPartTime, "", s.base)))

	bad := newJob("job-bad", eligibility.BoardPartTime, "", s.base)
	bad.Constraints.WeeklyHours = intPtr(-1)
	s.ErrorIs(s.store.Save(ctx, bad), eligibility.ErrMalformedJobConstraints)
	s.Zero(s.store.Len())
}

func (s *InMemoryJobStoreSuite) TestListOrderAndFilter() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newJob("a", eligibility.BoardPartTime, "FOOD", s.base)))
	s.Require().NoError(s.store.Save(ctx, newJob("b", eligibility.BoardFullTime, "FOOD", s.base.Add(time.Hour))))
	s.Require().NoError(s.store.Save(ctx, newJob("c", eligibility.BoardPartTime, "RETAIL", s.base.Add(2*time.Hour))))
	s.Require().NoError(s.store.Save(ctx, newJob("d", eligibility.BoardPartTime, "FOOD", s.base.Add(time.Hour))))

	tests := []struct {
		name   string
		filter ports.JobFilter
		want   []string
	}{
		{name: "no filter newest first", filter: ports.JobFilter{}, want: []string{"c", "b", "d", "a"}},
		{name: "board", filter: ports.JobFilter{BoardType: eligibility.BoardPartTime}, want: []string{"c", "d", "a"}},
		{name: "industry is normalized", filter: ports.JobFilter{Industry: " food "}, want: []string{"b", "d", "a"}},
		{name: "board and industry", filter: ports.JobFilter{BoardType: eligibility.BoardFullTime, Industry: "FOOD"}, want: []string{"b"}},
		{name: "no match", filter: ports.JobFilter{Industry: "MINING"}, want: []string{}},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			jobs, err := s.store.List(ctx, tc.filter)
			s.Require().NoError(err)
			ids := make([]string, 0, len(jobs))
			for _, j := range jobs {
				ids = append(ids, j.ID)
			}
			s.Equal(tc.want, ids)
		})
	}
}
