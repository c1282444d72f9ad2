package domain

import "time"

// CacheEntry wraps a cached payload together with the timestamp it was written.
// Entries compare via timestamp equality to decide whether derived data still
// reflects a given snapshot; deep content comparison is deliberately avoided.
type CacheEntry[T any] struct {
	Payload   T         `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStale reports whether an entry written at updatedAt has outlived ttl.
func IsStale(updatedAt time.Time, ttl time.Duration) bool {
	return time.Since(updatedAt) > ttl
}
