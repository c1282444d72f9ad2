package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CatalogMetrics holds all Prometheus metrics for the catalog service.
type CatalogMetrics struct {
	RefreshesTotal     *prometheus.CounterVec
	PagesFetchedTotal  prometheus.Counter
	VehiclesCached     prometheus.Gauge
	BucketsComputed    prometheus.Gauge
	AggregationSeconds *prometheus.HistogramVec
	StreamSubscribers  prometheus.Gauge
}

// NewCatalogMetrics initializes and registers the Prometheus metrics.
func NewCatalogMetrics() *CatalogMetrics {
	return &CatalogMetrics{
		RefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "refresh",
			Name:      "refreshes_total",
			Help:      "Total number of catalog refreshes by outcome.",
		}, []string{"outcome"}), // outcome: success, error
		PagesFetchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "refresh",
			Name:      "pages_fetched_total",
			Help:      "Total number of upstream catalog pages fetched.",
		}),
		VehiclesCached: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "cache",
			Name:      "vehicles_cached",
			Help:      "Number of vehicle listings in the current cache entry.",
		}),
		BucketsComputed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "cache",
			Name:      "buckets_computed",
			Help:      "Number of buckets in the current aggregation.",
		}),
		AggregationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "aggregate",
			Name:      "duration_seconds",
			Help:      "Time spent aggregating vehicles into buckets, by strategy.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}), // strategy: chunked, offload
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "vehicle_catalog",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of connected view stream subscribers.",
		}),
	}
}
