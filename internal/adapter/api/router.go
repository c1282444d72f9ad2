package api

import (
	"log/slog"
	"net/http"

	"github.com/user/vehicle-catalog/internal/adapter/api/handler"
	"github.com/user/vehicle-catalog/internal/adapter/api/middleware"
	"github.com/user/vehicle-catalog/internal/adapter/metrics"
	"github.com/user/vehicle-catalog/internal/usecase"
)

// NewRouter creates and configures the main HTTP router for the catalog
// service. The returned ViewStream must be closed on shutdown.
func NewRouter(
	coordinator *usecase.Coordinator,
	logger *slog.Logger,
	m *metrics.CatalogMetrics,
) (http.Handler, *handler.ViewStream) {
	mux := http.NewServeMux()

	catalogHandler := handler.NewCatalogHandler(coordinator, logger)
	stream := handler.NewViewStream(coordinator, logger, m)

	mux.HandleFunc("GET /v1/catalog/vehicles", catalogHandler.GetVehicles)
	mux.HandleFunc("GET /v1/catalog/buckets", catalogHandler.GetBuckets)
	mux.HandleFunc("GET /v1/catalog/summary", catalogHandler.GetSummary)
	mux.HandleFunc("POST /v1/catalog/refresh", catalogHandler.Refresh)
	mux.Handle("GET /v1/catalog/stream", stream)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	chain := middleware.RequestID(middleware.Logging(logger)(mux))
	return chain, stream
}
