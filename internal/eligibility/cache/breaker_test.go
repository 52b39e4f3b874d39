package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamatch/internal/eligibility"
	"visamatch/pkg/platform/circuit"
)

type flakyStore struct {
	err   error
	calls int
	inner *MemoryStore
}

func (f *flakyStore) Get(ctx context.Context, key string) (*eligibility.Result, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, result *eligibility.Result) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return f.inner.Set(ctx, key, result)
}

func TestBreakerStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	flaky := &flakyStore{err: errors.New("connection refused"), inner: NewMemoryStore(time.Minute)}
	breaker := circuit.New("redis",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Second),
		circuit.WithClock(func() time.Time { return now }),
	)
	s := NewBreakerStore(flaky, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, _, err := s.Get(ctx, "elig:v1:a")
	require.Error(t, err)
	require.Error(t, s.Set(ctx, "elig:v1:a", result("F-4")))
	require.True(t, breaker.IsOpen())

	_, ok, err := s.Get(ctx, "elig:v1:a")
	require.NoError(t, err, "open breaker reads as a miss")
	assert.False(t, ok)
	assert.NoError(t, s.Set(ctx, "elig:v1:a", result("F-4")), "open breaker drops writes")
	assert.Equal(t, 2, flaky.calls, "no calls reach the store while open")

	flaky.err = nil
	now = now.Add(time.Second)
	require.NoError(t, s.Set(ctx, "elig:v1:a", result("F-4")))
	assert.False(t, breaker.IsOpen(), "successful probe closes the breaker")

	got, ok, err := s.Get(ctx, "elig:v1:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, eligibility.VisaCode("F-4"), got.VisaCode)
}

func TestBreakerStoreIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	flaky := &flakyStore{err: context.Canceled, inner: NewMemoryStore(time.Minute)}
	breaker := circuit.New("redis", circuit.WithFailureThreshold(2))
	s := NewBreakerStore(flaky, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for range 5 {
		_, _, err := s.Get(ctx, "elig:v1:a")
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.False(t, breaker.IsOpen(), "abandoned requests do not trip the breaker")
	assert.Equal(t, 5, flaky.calls)

	_, _, err := s.Get(context.Background(), "elig:v1:a")
	require.ErrorIs(t, err, context.Canceled)
	_, _, err = s.Get(context.Background(), "elig:v1:a")
	require.Error(t, err)
	assert.True(t, breaker.IsOpen(), "store errors on live requests still count")
}
