package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/vehicle-catalog/internal/domain"
)

// Store is a purely in-process implementation of domain.Store. There is no
// backing medium and no cross-process notification; use it for tests and
// single-process deployments.
type Store[T any] struct {
	// writeMu serializes write+notify so subscribers see entries in write order.
	writeMu sync.Mutex

	mu    sync.RWMutex
	entry *domain.CacheEntry[T]
	subs  map[string]func(domain.CacheEntry[T])
}

// NewStore creates an empty in-memory store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{subs: make(map[string]func(domain.CacheEntry[T]))}
}

// Read returns the last written entry, or nil if never written.
func (s *Store[T]) Read(ctx context.Context) (*domain.CacheEntry[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry, nil
}

// Write stamps and stores the payload, then notifies subscribers.
func (s *Store[T]) Write(ctx context.Context, payload T) *domain.CacheEntry[T] {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry := domain.CacheEntry[T]{Payload: payload, UpdatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.entry = &entry
	subs := make([]func(domain.CacheEntry[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
	return &entry
}

// Subscribe registers a listener for future writes.
func (s *Store[T]) Subscribe(fn func(domain.CacheEntry[T])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Memory returns the mirror, which for this backend is the store itself.
func (s *Store[T]) Memory() *domain.CacheEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry
}
