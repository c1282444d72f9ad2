package metrics

import (
	"context"

	"github.com/user/vehicle-catalog/internal/domain"
	"github.com/user/vehicle-catalog/internal/usecase"
)

// InstrumentedFetcher wraps a catalog fetcher and counts every refresh by
// outcome, wherever it was triggered from: forced, on mount, or by the
// staleness gate.
type InstrumentedFetcher struct {
	inner   usecase.CatalogFetcher
	metrics *CatalogMetrics
}

// NewInstrumentedFetcher decorates inner with refresh outcome counting.
func NewInstrumentedFetcher(inner usecase.CatalogFetcher, m *CatalogMetrics) *InstrumentedFetcher {
	return &InstrumentedFetcher{inner: inner, metrics: m}
}

func (f *InstrumentedFetcher) FetchAll(ctx context.Context, query domain.CatalogQuery) (*usecase.FetchResult, error) {
	res, err := f.inner.FetchAll(ctx, query)
	if f.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		f.metrics.RefreshesTotal.WithLabelValues(outcome).Inc()
	}
	return res, err
}
