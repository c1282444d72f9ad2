package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/vehicle-catalog/internal/domain"
)

const writeTimeout = 5 * time.Second

// Store implements domain.Store on a shared Redis instance. The entry lives
// under a single key; cross-process convergence rides on a Pub/Sub channel
// next to it. Backend failures degrade to "no cache": reads come back nil and
// writes keep the in-process mirror while skipping persistence.
type Store[T any] struct {
	client  *redis.Client
	key     string
	channel string
	logger  *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	mirror *domain.CacheEntry[T]
	subs   map[string]func(domain.CacheEntry[T])
}

// NewStore creates a Redis-backed store for the given cache key and starts
// listening for writes from other processes until ctx is done.
func NewStore[T any](ctx context.Context, client *redis.Client, key string, logger *slog.Logger) *Store[T] {
	s := &Store[T]{
		client:  client,
		key:     key,
		channel: key + ":events",
		logger:  logger.With("component", "redis_store", "key", key),
		subs:    make(map[string]func(domain.CacheEntry[T])),
	}
	go s.listen(ctx)
	return s
}

// Read fetches the entry from Redis. Absent keys, connection failures, and
// corrupt payloads all read as "no cache".
func (s *Store[T]) Read(ctx context.Context) (*domain.CacheEntry[T], error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("cache read failed, treating as empty", "error", err)
		return nil, nil
	}

	var entry domain.CacheEntry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("corrupt cache payload, treating as empty", "error", err)
		return nil, nil
	}

	s.mu.Lock()
	s.mirror = &entry
	s.mu.Unlock()
	return &entry, nil
}

// Write stamps the payload, notifies in-process subscribers synchronously,
// then best-effort persists and publishes so other processes converge.
func (s *Store[T]) Write(ctx context.Context, payload T) *domain.CacheEntry[T] {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry := domain.CacheEntry[T]{Payload: payload, UpdatedAt: time.Now().UTC()}
	s.apply(entry)

	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache write skipped, payload not serializable", "error", err)
		return &entry
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.client.Set(persistCtx, s.key, raw, 0).Err(); err != nil {
		s.logger.Warn("cache write failed, keeping in-process state only", "error", err)
		return &entry
	}
	if err := s.client.Publish(persistCtx, s.channel, raw).Err(); err != nil {
		s.logger.Warn("cross-process notify failed", "error", err)
	}
	return &entry
}

// Subscribe registers a listener for future entries, including ones written
// by other processes.
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

// Memory returns the in-process mirror without touching Redis.
func (s *Store[T]) Memory() *domain.CacheEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

// apply sets the mirror and fans the entry out to in-process subscribers.
func (s *Store[T]) apply(entry domain.CacheEntry[T]) {
	s.mu.Lock()
	s.mirror = &entry
	subs := make([]func(domain.CacheEntry[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}

// listen delivers entries published by other processes. Delivery is
// best-effort with no cross-process ordering guarantee; our own publishes
// echo back here and are dropped by timestamp equality with the mirror.
func (s *Store[T]) listen(ctx context.Context) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var entry domain.CacheEntry[T]
			if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
				s.logger.Warn("dropping malformed cross-process event", "error", err)
				continue
			}

			s.mu.RLock()
			echo := s.mirror != nil && s.mirror.UpdatedAt.Equal(entry.UpdatedAt)
			s.mu.RUnlock()
			if echo {
				continue
			}
			s.apply(entry)
		}
	}
}
