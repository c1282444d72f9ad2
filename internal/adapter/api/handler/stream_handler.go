package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/user/vehicle-catalog/internal/adapter/metrics"
	"github.com/user/vehicle-catalog/internal/usecase"
)

// ViewStream broadcasts catalog view changes to connected clients over
// Server-Sent Events. Each event is a summary of the new view; clients pull
// the full payload from the REST endpoints when they care.
type ViewStream struct {
	logger  *slog.Logger
	metrics *metrics.CatalogMetrics

	mu      sync.RWMutex
	clients map[chan []byte]struct{}

	unsubscribe func()
}

// StreamEvent is the message sent to the frontend on every view change.
type StreamEvent struct {
	VehicleCount int  `json:"vehicle_count"`
	BucketCount  int  `json:"bucket_count"`
	TotalItems   int  `json:"total_items"`
	Loading      bool `json:"loading"`
}

// NewViewStream creates a ViewStream fed by the coordinator's view changes.
// Metrics may be nil. Call Close when shutting down.
func NewViewStream(c *usecase.Coordinator, logger *slog.Logger, m *metrics.CatalogMetrics) *ViewStream {
	s := &ViewStream{
		logger:  logger.With("component", "view_stream"),
		metrics: m,
		clients: make(map[chan []byte]struct{}),
	}
	s.unsubscribe = c.Subscribe(func(view usecase.View) {
		s.publish(view)
	})
	return s
}

// ServeHTTP handles new client connections for the SSE stream.
func (s *ViewStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	messageChan := make(chan []byte, 8)
	s.addClient(messageChan)
	defer s.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Close detaches the stream from the coordinator and drops all clients.
func (s *ViewStream) Close() {
	s.unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		close(client)
		delete(s.clients, client)
		if s.metrics != nil {
			s.metrics.StreamSubscribers.Dec()
		}
	}
}

func (s *ViewStream) publish(view usecase.View) {
	event := StreamEvent{
		VehicleCount: len(view.Vehicles),
		BucketCount:  len(view.Buckets),
		TotalItems:   view.TotalItems,
		Loading:      view.Loading,
	}
	msg, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal stream event", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client <- msg:
		default:
			// Slow client; drop this event rather than block the broadcast.
		}
	}
}

func (s *ViewStream) addClient(client chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = struct{}{}
	if s.metrics != nil {
		s.metrics.StreamSubscribers.Inc()
	}
	s.logger.Info("stream client connected")
}

func (s *ViewStream) removeClient(client chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client)
		if s.metrics != nil {
			s.metrics.StreamSubscribers.Dec()
		}
		s.logger.Info("stream client disconnected")
	}
}
