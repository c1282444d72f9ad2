package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/vehicle-catalog/internal/domain"
)

// OffloadStrategy runs the aggregation on a dedicated worker goroutine,
// shipping only the minimized bucketFacet projection across the boundary.
// Any worker failure (including a panic) falls back to the wrapped strategy,
// so callers never observe which one actually ran.
type OffloadStrategy struct {
	fallback     domain.AggregationStrategy
	vehicleIDCap int
	logger       *slog.Logger

	// run dispatches the projected facets to the worker. Tests replace it to
	// simulate worker spawn failure.
	run func(ctx context.Context, facets []bucketFacet, vehicleIDCap int) ([]domain.BucketMeta, error)
}

// NewOffloadStrategy creates a worker-offloaded aggregation strategy that
// falls back to the given strategy on any worker error.
func NewOffloadStrategy(fallback domain.AggregationStrategy, vehicleIDCap int, logger *slog.Logger) *OffloadStrategy {
	return &OffloadStrategy{
		fallback:     fallback,
		vehicleIDCap: vehicleIDCap,
		logger:       logger.With("component", "offload_strategy"),
		run:          runWorker,
	}
}

// Aggregate projects the vehicle list into facets, hands them to the worker,
// and awaits its single result message. On any worker error the fallback
// strategy computes the same result on the calling goroutine.
func (s *OffloadStrategy) Aggregate(ctx context.Context, vehicles []domain.VehicleRecord) ([]domain.BucketMeta, error) {
	facets := make([]bucketFacet, len(vehicles))
	for i, v := range vehicles {
		facets[i] = facetOf(v)
	}

	buckets, err := s.run(ctx, facets, s.vehicleIDCap)
	if err != nil {
		s.logger.Warn("worker aggregation failed, falling back to chunked strategy", "error", err, "vehicles", len(vehicles))
		return s.fallback.Aggregate(ctx, vehicles)
	}
	return buckets, nil
}

type workerResult struct {
	buckets []domain.BucketMeta
	err     error
}

func runWorker(ctx context.Context, facets []bucketFacet, vehicleIDCap int) ([]domain.BucketMeta, error) {
	results := make(chan workerResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- workerResult{err: fmt.Errorf("aggregation worker panic: %v", r)}
			}
		}()
		acc := NewBucketAccumulator(vehicleIDCap)
		for _, f := range facets {
			acc.add(f)
		}
		results <- workerResult{buckets: acc.Buckets()}
	}()

	select {
	case res := <-results:
		return res.buckets, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
