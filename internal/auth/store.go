package auth

import (
	"context"
	"sync"
	"time"
)

// TokenStore keeps short-lived auth state (refresh-token handles,
// reset tokens, rate counters) with expiry. Backed by redis in
// multi-instance deployments and by memory otherwise.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the stored value, or "" when absent or expired.
	Get(ctx context.Context, key string) (string, error)

	Del(ctx context.Context, key string) error

	// Incr bumps a counter, starting its expiry window on first use.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type memoryItem struct {
	value     string
	count     int64
	expiresAt time.Time
}

// MemoryTokenStore is a process-local TokenStore for tests and
// single-node deployments running without redis. State does not survive
// a restart, which only forces users to log in again.
type MemoryTokenStore struct {
	mu    sync.Mutex
	items map[string]*memoryItem
	now   func() time.Time
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{items: make(map[string]*memoryItem), now: time.Now}
}

func (s *MemoryTokenStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = &memoryItem{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return "", nil
	}
	if s.now().After(item.expiresAt) {
		delete(s.items, key)
		return "", nil
	}
	return item.value, nil
}

func (s *MemoryTokenStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryTokenStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok || s.now().After(item.expiresAt) {
		s.items[key] = &memoryItem{count: 1, expiresAt: s.now().Add(ttl)}
		return 1, nil
	}
	item.count++
	return item.count, nil
}
