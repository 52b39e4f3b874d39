package cache

import (
	"context"
	"sync"
	"time"

	"visamatch/internal/eligibility"
)

const defaultMaxEntries = 10000

type memoryEntry struct {
	result  *eligibility.Result
	expires time.Time
}

// MemoryStore is an in-process verdict store. Entries expire after the TTL;
// when full, the oldest insertion is evicted. The store holds one rule-set
// version at a time: moving to a new version drops every entry of the
// previous one.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	order      []string
	version    string
	current    func() string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the store size.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides time.Now for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithCurrentVersion ties the store to the live rule-set version. Writes
// keyed to any other version are dropped, so requests still finishing on a
// replaced catalog cannot evict verdicts of the new one.
func WithCurrentVersion(current func() string) MemoryOption {
	return func(s *MemoryStore) {
		s.current = current
	}
}

// NewMemoryStore returns a store whose entries live for ttl. A zero ttl
// keeps entries until evicted.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the cached result.
func (s *MemoryStore) Get(_ context.Context, key string) (*eligibility.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return cloneResult(e.result), true, nil
}

// Set stores a copy of result.
func (s *MemoryStore) Set(_ context.Context, key string, result *eligibility.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := versionOf(key)
	if s.current != nil && v != s.current() {
		return nil
	}
	if v != s.version {
		s.entries = make(map[string]memoryEntry)
		s.order = s.order[:0]
		s.version = v
	}

	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	if _, exists := s.entries[key]; !exists {
		s.evictLocked()
		s.order = append(s.order, key)
	}
	s.entries[key] = memoryEntry{result: cloneResult(result), expires: expires}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) evictLocked() {
	for len(s.entries) >= s.maxEntries && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
	// Keys deleted on expiry leave stale order slots; compact when they
	// dominate.
	if len(s.order) > 2*s.maxEntries {
		live := s.order[:0]
		for _, k := range s.order {
			if _, ok := s.entries[k]; ok {
				live = append(live, k)
			}
		}
		s.order = live
	}
}
