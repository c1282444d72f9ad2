package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/user/vehicle-catalog/internal/domain"
)

const (
	notifyChannel = "catalog_cache_events"
	writeTimeout  = 5 * time.Second

	minReconnect = time.Second
	maxReconnect = 30 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_cache (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the catalog_cache table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Store implements domain.Store on a shared Postgres database. Each entry is
// one row in catalog_cache; writes raise pg_notify so other processes pick up
// the change without polling. Backend failures degrade to "no cache".
type Store[T any] struct {
	db     *sql.DB
	key    string
	logger *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	mirror *domain.CacheEntry[T]
	subs   map[string]func(domain.CacheEntry[T])
}

// NewStore creates a Postgres-backed store for the given cache key and starts
// a LISTEN loop on connStr until ctx is done.
func NewStore[T any](ctx context.Context, db *sql.DB, connStr, key string, logger *slog.Logger) *Store[T] {
	s := &Store[T]{
		db:     db,
		key:    key,
		logger: logger.With("component", "postgres_store", "key", key),
		subs:   make(map[string]func(domain.CacheEntry[T])),
	}
	go s.listen(ctx, connStr)
	return s
}

// Read fetches the entry row. A missing row, connection failure, or corrupt
// payload all read as "no cache".
func (s *Store[T]) Read(ctx context.Context) (*domain.CacheEntry[T], error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM catalog_cache WHERE key = $1`, s.key)
	if err := row.Scan(&raw, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Warn("cache read failed, treating as empty", "error", err)
		return nil, nil
	}

	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn("corrupt cache payload, treating as empty", "error", err)
		return nil, nil
	}

	entry := domain.CacheEntry[T]{Payload: payload, UpdatedAt: updatedAt}
	s.mu.Lock()
	s.mirror = &entry
	s.mu.Unlock()
	return &entry, nil
}

// Write stamps the payload, notifies in-process subscribers synchronously,
// then best-effort upserts the row. The upsert raises pg_notify so other
// processes converge. The stamp is truncated to microseconds, the precision
// of TIMESTAMPTZ, so the mirror compares equal to the column value after a
// round trip.
func (s *Store[T]) Write(ctx context.Context, payload T) *domain.CacheEntry[T] {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry := domain.CacheEntry[T]{Payload: payload, UpdatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	s.apply(entry)

	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("cache write skipped, payload not serializable", "error", err)
		return &entry
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	_, err = s.db.ExecContext(persistCtx, `
		INSERT INTO catalog_cache (key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		s.key, raw, entry.UpdatedAt)
	if err != nil {
		s.logger.Warn("cache write failed, keeping in-process state only", "error", err)
		return &entry
	}
	if _, err := s.db.ExecContext(persistCtx,
		`SELECT pg_notify($1, $2)`, notifyChannel, s.key); err != nil {
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

// Memory returns the in-process mirror without touching the database.
func (s *Store[T]) Memory() *domain.CacheEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

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

// listen re-reads the row whenever another process notifies on our key. Our
// own writes echo back here too; the re-read is dropped when the row's
// timestamp matches the mirror.
func (s *Store[T]) listen(ctx context.Context, connStr string) {
	listener := pq.NewListener(connStr, minReconnect, maxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("listener connection event", "event", ev, "error", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(notifyChannel); err != nil {
		s.logger.Warn("cross-process notifications unavailable", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// n is nil after a reconnect; re-read to catch missed writes.
			if n != nil && n.Extra != s.key {
				continue
			}
			s.refresh(ctx)
		case <-time.After(90 * time.Second):
			if err := listener.Ping(); err != nil {
				s.logger.Warn("listener ping failed", "error", err)
			}
		}
	}
}

func (s *Store[T]) refresh(ctx context.Context) {
	s.mu.RLock()
	prev := s.mirror
	s.mu.RUnlock()

	entry, err := s.Read(ctx)
	if err != nil || entry == nil {
		return
	}
	if prev != nil && prev.UpdatedAt.Equal(entry.UpdatedAt) {
		return
	}

	s.mu.RLock()
	subs := make([]func(domain.CacheEntry[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(*entry)
	}
}
