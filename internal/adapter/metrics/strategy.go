package metrics

import (
	"context"
	"time"

	"github.com/user/vehicle-catalog/internal/domain"
)

// InstrumentedStrategy wraps an aggregation strategy and records how long
// each successful aggregation takes.
type InstrumentedStrategy struct {
	inner   domain.AggregationStrategy
	name    string
	metrics *CatalogMetrics
}

// NewInstrumentedStrategy decorates inner with timing under the given
// strategy label.
func NewInstrumentedStrategy(inner domain.AggregationStrategy, name string, m *CatalogMetrics) *InstrumentedStrategy {
	return &InstrumentedStrategy{inner: inner, name: name, metrics: m}
}

func (s *InstrumentedStrategy) Aggregate(ctx context.Context, vehicles []domain.VehicleRecord) ([]domain.BucketMeta, error) {
	start := time.Now()
	buckets, err := s.inner.Aggregate(ctx, vehicles)
	if err == nil && s.metrics != nil {
		s.metrics.AggregationSeconds.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	}
	return buckets, err
}
