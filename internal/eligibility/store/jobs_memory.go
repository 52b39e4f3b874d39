package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"visamatch/internal/eligibility/ports"
)

// InMemoryJobStore keeps postings in a map. Callers get copies.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*ports.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[string]*ports.Job)}
}

// Save inserts or replaces a posting.
func (s *InMemoryJobStore) Save(_ context.Context, job *ports.Job) error {
	prepared, err := prepareJob(job)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[prepared.ID] = prepared
	return nil
}

func (s *InMemoryJobStore) Get(_ context.Context, id string) (*ports.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

// List returns matching postings, newest first, ties broken by id.
func (s *InMemoryJobStore) List(_ context.Context, filter ports.JobFilter) ([]*ports.Job, error) {
	s.mu.RLock()
	out := make([]*ports.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Matches(job) {
			out = append(out, cloneJob(job))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *ports.Job) int {
		if c := b.PostedAt.Compare(a.PostedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Len reports the number of stored postings.
func (s *InMemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
