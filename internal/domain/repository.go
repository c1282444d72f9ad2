package domain

import "context"

// Store is the keyed persistent cache contract, instantiated once per data
// kind (vehicle set, bucket set). Implementations are expected to degrade
// rather than fail: a broken backend reads as "no cache" and writes no-op,
// so the system falls back to refetching instead of crashing.
type Store[T any] interface {
	// Read returns the last written entry, or nil if never written, cleared,
	// or the backend is unavailable/corrupt.
	Read(ctx context.Context) (*CacheEntry[T], error)

	// Write stamps the payload with the current time, updates the in-process
	// memory mirror, synchronously notifies in-process subscribers in write
	// order, then best-effort persists and notifies other processes sharing
	// the backend. The stamped entry is returned.
	Write(ctx context.Context, payload T) *CacheEntry[T]

	// Subscribe registers a listener for every future entry, including ones
	// written by other processes. The returned function removes the listener.
	// A listener attached after a write does not retroactively receive it;
	// callers read once on attach to pick up the latest state.
	Subscribe(fn func(CacheEntry[T])) (unsubscribe func())

	// Memory returns the in-process mirror of the last known entry without
	// touching the backend, for synchronous first-paint reads.
	Memory() *CacheEntry[T]
}

// VehicleStore and BucketStore are the two shared cache instances any number
// of coordinators concurrently read and write.
type (
	VehicleStore = Store[VehicleSet]
	BucketStore  = Store[BucketSet]
)

// CatalogGateway fetches single pages from the remote catalog endpoint.
// The fetcher use case is its sole caller.
type CatalogGateway interface {
	FetchPage(ctx context.Context, query CatalogQuery, page int) (*CatalogPage, error)
}

// AggregationStrategy maps a vehicle list to its bucket summaries. The two
// implementations (chunked, worker-offloaded) are interchangeable; callers
// never learn which one actually ran.
type AggregationStrategy interface {
	Aggregate(ctx context.Context, vehicles []VehicleRecord) ([]BucketMeta, error)
}
