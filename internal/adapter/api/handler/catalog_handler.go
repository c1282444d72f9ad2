package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/vehicle-catalog/internal/usecase"
)

// CatalogHandler serves the cached catalog view over HTTP.
type CatalogHandler struct {
	coordinator *usecase.Coordinator
	logger      *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(c *usecase.Coordinator, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{coordinator: c, logger: logger}
}

// GetVehicles returns the cached vehicle listings.
func (h *CatalogHandler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	view := h.coordinator.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"vehicles":    view.Vehicles,
		"total_items": view.TotalItems,
		"loading":     view.Loading,
	})
}

// GetBuckets returns the cached bucket aggregation.
func (h *CatalogHandler) GetBuckets(w http.ResponseWriter, r *http.Request) {
	view := h.coordinator.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"buckets": view.Buckets,
		"loading": view.Loading,
	})
}

// GetSummary returns counts only, for dashboards that do not need payloads.
func (h *CatalogHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	view := h.coordinator.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"vehicle_count": len(view.Vehicles),
		"bucket_count":  len(view.Buckets),
		"total_items":   view.TotalItems,
		"loading":       view.Loading,
	})
}

// Refresh forces a full catalog pull. The response carries the refreshed view;
// on upstream failure the previously cached snapshot is returned with a 502.
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Refresh(r.Context()); err != nil {
		h.logger.Error("forced refresh failed", "error", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "catalog refresh failed, serving cached snapshot",
		})
		return
	}

	view := h.coordinator.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"vehicle_count": len(view.Vehicles),
		"bucket_count":  len(view.Buckets),
		"total_items":   view.TotalItems,
	})
}

func (h *CatalogHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
