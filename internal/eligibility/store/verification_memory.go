package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
)

// InMemoryVerificationStore keeps the latest record per worker.
type InMemoryVerificationStore struct {
	mu      sync.RWMutex
	records map[string]*ports.VerificationRecord
}

func NewInMemoryVerificationStore() *InMemoryVerificationStore {
	return &InMemoryVerificationStore{records: make(map[string]*ports.VerificationRecord)}
}

// Save stores rec, replacing any earlier record that is not newer.
func (s *InMemoryVerificationStore) Save(_ context.Context, rec *ports.VerificationRecord) error {
	if rec == nil || strings.TrimSpace(rec.WorkerID) == "" {
		return errors.New("worker id is required")
	}
	profile, err := eligibility.NewVisaProfile(string(rec.VisaCode), rec.Attributes)
	if err != nil {
		return err
	}
	cp := *rec
	cp.WorkerID = strings.TrimSpace(rec.WorkerID)
	cp.VisaCode = profile.Code
	cp.Attributes = profile.Attributes

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[cp.WorkerID]; ok && existing.VerifiedAt.After(cp.VerifiedAt) {
		return nil
	}
	s.records[cp.WorkerID] = &cp
	return nil
}

func (s *InMemoryVerificationStore) Get(_ context.Context, workerID string) (*ports.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[strings.TrimSpace(workerID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Attributes = cloneAttributes(rec.Attributes)
	return &cp, nil
}

func cloneAttributes(a *eligibility.VisaAttributes) *eligibility.VisaAttributes {
	if a == nil {
		return nil
	}
	cp := *a
	cp.PermittedIndustries = slices.Clone(a.PermittedIndustries)
	if a.MaxWeeklyHours != nil {
		h := *a.MaxWeeklyHours
		cp.MaxWeeklyHours = &h
	}
	return &cp
}
