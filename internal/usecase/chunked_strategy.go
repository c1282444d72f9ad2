package usecase

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/user/vehicle-catalog/internal/domain"
)

const defaultChunkSize = 200

// ChunkedStrategy aggregates the vehicle list in fixed-size chunks, yielding
// control between chunks so long aggregations never monopolize the calling
// goroutine's scheduling slot. It is the default strategy for small and medium
// catalogs and the fallback when worker offload fails.
type ChunkedStrategy struct {
	chunkSize    int
	vehicleIDCap int
	logger       *slog.Logger

	// yield is the cooperative scheduling point between chunks.
	yield func()
}

// NewChunkedStrategy creates a chunked aggregation strategy. Non-positive
// sizes fall back to defaults.
func NewChunkedStrategy(chunkSize, vehicleIDCap int, logger *slog.Logger) *ChunkedStrategy {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &ChunkedStrategy{
		chunkSize:    chunkSize,
		vehicleIDCap: vehicleIDCap,
		logger:       logger.With("component", "chunked_strategy"),
		yield:        runtime.Gosched,
	}
}

// Aggregate processes vehicles chunk by chunk, checking for cancellation at
// each chunk boundary. The accumulator carries state across chunks, so each
// chunk costs O(chunk) regardless of how much of the list came before.
func (s *ChunkedStrategy) Aggregate(ctx context.Context, vehicles []domain.VehicleRecord) ([]domain.BucketMeta, error) {
	acc := NewBucketAccumulator(s.vehicleIDCap)

	for start := 0; start < len(vehicles); start += s.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.chunkSize, len(vehicles))
		for _, v := range vehicles[start:end] {
			acc.Add(v)
		}
		if end < len(vehicles) {
			s.yield()
		}
	}

	buckets := acc.Buckets()
	s.logger.Debug("chunked aggregation complete", "vehicles", len(vehicles), "buckets", len(buckets))
	return buckets, nil
}
