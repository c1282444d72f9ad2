package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/vehicle-catalog/internal/domain"
)

// MockStore is a mock implementation of domain.Store for testing. It behaves
// like a working in-process store: writes land in Entry and fan out to
// subscribers, so coordinator tests can drive the full notification path.
type MockStore[T any] struct {
	mu      sync.Mutex
	Entry   *domain.CacheEntry[T]
	ReadErr error
	Written []T
	subs    map[string]func(domain.CacheEntry[T])
}

func (m *MockStore[T]) Read(ctx context.Context) (*domain.CacheEntry[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.Entry, nil
}

func (m *MockStore[T]) Write(ctx context.Context, payload T) *domain.CacheEntry[T] {
	m.mu.Lock()
	entry := domain.CacheEntry[T]{Payload: payload, UpdatedAt: time.Now().UTC()}
	m.Entry = &entry
	m.Written = append(m.Written, payload)
	subs := make([]func(domain.CacheEntry[T]), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
	return &entry
}

func (m *MockStore[T]) Subscribe(fn func(domain.CacheEntry[T])) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[string]func(domain.CacheEntry[T]))
	}
	id := uuid.NewString()
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *MockStore[T]) Memory() *domain.CacheEntry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Entry
}

// Seed places an entry in the store with the given timestamp, bypassing the
// notification path.
func (m *MockStore[T]) Seed(payload T, updatedAt time.Time) *domain.CacheEntry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entry = &domain.CacheEntry[T]{Payload: payload, UpdatedAt: updatedAt}
	return m.Entry
}

// SubscriberCount reports how many listeners are currently attached.
func (m *MockStore[T]) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// MockCatalogGateway is a mock implementation of domain.CatalogGateway.
type MockCatalogGateway struct {
	mu       sync.Mutex
	Pages    map[int]*domain.CatalogPage
	PageErrs map[int]error
	Calls    []int
}

func (m *MockCatalogGateway) FetchPage(ctx context.Context, query domain.CatalogQuery, page int) (*domain.CatalogPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, page)
	if err, ok := m.PageErrs[page]; ok {
		return nil, err
	}
	if p, ok := m.Pages[page]; ok {
		return p, nil
	}
	return &domain.CatalogPage{}, nil
}

// CallCount reports the total number of page requests made.
func (m *MockCatalogGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockStrategy is a mock implementation of domain.AggregationStrategy that
// records invocations and returns a canned result.
type MockStrategy struct {
	mu     sync.Mutex
	Result []domain.BucketMeta
	Err    error
	calls  int
}

func (m *MockStrategy) Aggregate(ctx context.Context, vehicles []domain.VehicleRecord) ([]domain.BucketMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockStrategy) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
