package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/vehicle-catalog/internal/usecase"
)

// NewAdminRouter creates the HTTP router for the operational surface: metrics
// scraping, liveness, and a cache status snapshot. It stays on a separate
// listener so the service port never exposes it.
func NewAdminRouter(coordinator *usecase.Coordinator) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /admin/cache/status", func(w http.ResponseWriter, r *http.Request) {
		view := coordinator.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"vehicle_count": len(view.Vehicles),
			"bucket_count":  len(view.Buckets),
			"total_items":   view.TotalItems,
			"loading":       view.Loading,
		})
	})

	return mux
}
