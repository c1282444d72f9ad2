package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/vehicle-catalog/internal/domain"
)

const defaultPollInterval = 2 * time.Second

// Store implements domain.Store on a single JSON file, for deployments that
// share a disk instead of a Redis or Postgres instance. Writes go through a
// temp file and rename so readers never observe a partial entry. Other
// processes are picked up by polling the file's mtime; there is no push
// channel on plain files.
type Store[T any] struct {
	path   string
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	mirror  *domain.CacheEntry[T]
	lastMod time.Time
	subs    map[string]func(domain.CacheEntry[T])
}

// NewStore creates a file-backed store at path and starts polling for writes
// by other processes until ctx is done.
func NewStore[T any](ctx context.Context, path string, poll time.Duration, logger *slog.Logger) *Store[T] {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	s := &Store[T]{
		path:   path,
		logger: logger.With("component", "file_store", "path", path),
		subs:   make(map[string]func(domain.CacheEntry[T])),
	}
	go s.watch(ctx, poll)
	return s
}

// Read loads the entry from disk. A missing file, read failure, or corrupt
// payload all read as "no cache".
func (s *Store[T]) Read(ctx context.Context) (*domain.CacheEntry[T], error) {
	entry, mod, err := s.load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache read failed, treating as empty", "error", err)
		}
		return nil, nil
	}

	s.mu.Lock()
	s.mirror = entry
	s.lastMod = mod
	s.mu.Unlock()
	return entry, nil
}

// Write stamps the payload, notifies in-process subscribers synchronously,
// then best-effort persists via temp file and rename.
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
	if err := s.persist(raw); err != nil {
		s.logger.Warn("cache write failed, keeping in-process state only", "error", err)
		return &entry
	}

	if info, err := os.Stat(s.path); err == nil {
		s.mu.Lock()
		s.lastMod = info.ModTime()
		s.mu.Unlock()
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

// Memory returns the in-process mirror without touching the disk.
func (s *Store[T]) Memory() *domain.CacheEntry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror
}

func (s *Store[T]) load() (*domain.CacheEntry[T], time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	var entry domain.CacheEntry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, time.Time{}, err
	}
	return &entry, info.ModTime(), nil
}

func (s *Store[T]) persist(raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
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

// watch reloads the file when its mtime moves past the last one we saw. Our
// own writes advance lastMod inside Write, so they do not echo back.
func (s *Store[T]) watch(ctx context.Context, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(s.path)
		if err != nil {
			continue
		}

		s.mu.RLock()
		seen := s.lastMod
		prev := s.mirror
		s.mu.RUnlock()
		if !info.ModTime().After(seen) {
			continue
		}

		entry, mod, err := s.load()
		if err != nil {
			s.logger.Warn("reload after external write failed", "error", err)
			continue
		}
		if prev != nil && prev.UpdatedAt.Equal(entry.UpdatedAt) {
			s.mu.Lock()
			s.lastMod = mod
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.lastMod = mod
		s.mu.Unlock()
		s.apply(*entry)
	}
}
