package cache

import (
	"context"
	"log/slog"

	"visamatch/internal/eligibility"
	"visamatch/pkg/platform/circuit"
)

// BreakerStore fronts a remote store with a circuit breaker. While the
// breaker is open reads are misses and writes are dropped, so an outage costs
// no per-request timeouts.
type BreakerStore struct {
	next    Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, breaker *circuit.Breaker, logger *slog.Logger) *BreakerStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerStore{next: next, breaker: breaker, logger: logger}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (*eligibility.Result, bool, error) {
	if !s.breaker.Allow() {
		return nil, false, nil
	}
	res, ok, err := s.next.Get(ctx, key)
	s.record(ctx, err)
	return res, ok, err
}

func (s *BreakerStore) Set(ctx context.Context, key string, result *eligibility.Result) error {
	if !s.breaker.Allow() {
		return nil
	}
	err := s.next.Set(ctx, key, result)
	s.record(ctx, err)
	return err
}

// record feeds the outcome to the breaker. A failure caused by the caller's
// own context ending says nothing about the remote store and is not counted.
func (s *BreakerStore) record(ctx context.Context, err error) {
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "verdict cache circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		return
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "verdict cache circuit closed", "breaker", s.breaker.Name())
	}
}
