package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/vehicle-catalog/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientFetchPage(t *testing.T) {
	t.Run("Decodes Page Envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("page"); got != "3" {
				t.Errorf("expected page=3, got %q", got)
			}
			if got := r.URL.Query().Get("size"); got != "50" {
				t.Errorf("expected size=50, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"content": [
					{"id": "v1", "brand": "Toyota", "model": "Corolla", "price": 21000.0},
					{"id": "v2", "brand": "Honda", "model": "Civic", "price": 23000.0}
				],
				"total_pages": 9,
				"total_items": 412
			}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, discardLogger(), nil)
		page, err := client.FetchPage(context.Background(), domain.CatalogQuery{PageSize: 50}, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Content) != 2 {
			t.Fatalf("expected 2 vehicles, got %d", len(page.Content))
		}
		if page.Content[0].ID != "v1" || page.Content[0].Brand != "Toyota" {
			t.Fatalf("unexpected first vehicle: %+v", page.Content[0])
		}
		if page.TotalPages != 9 || page.TotalItems != 412 {
			t.Fatalf("unexpected envelope totals: %+v", page)
		}
	})

	t.Run("Forwards Filter And Sort", func(t *testing.T) {
		var gotFilter, gotSort string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotFilter = r.URL.Query().Get("filter")
			gotSort = r.URL.Query().Get("sort")
			fmt.Fprint(w, `{"content": [], "total_pages": 0, "total_items": 0}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, discardLogger(), nil)
		_, err := client.FetchPage(context.Background(), domain.CatalogQuery{Filter: "condition:new", Sort: "price,asc"}, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotFilter != "condition:new" || gotSort != "price,asc" {
			t.Fatalf("expected query params forwarded, got filter=%q sort=%q", gotFilter, gotSort)
		}
	})

	t.Run("Non 200 Is An Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, discardLogger(), nil)
		if _, err := client.FetchPage(context.Background(), domain.CatalogQuery{}, 1); err == nil {
			t.Fatal("expected an error for status 502")
		}
	})

	t.Run("Malformed Body Is An Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"content": [`)
		}))
		defer server.Close()

		client := NewClient(server.URL, discardLogger(), nil)
		if _, err := client.FetchPage(context.Background(), domain.CatalogQuery{}, 1); err == nil {
			t.Fatal("expected an error for malformed body")
		}
	})

	t.Run("Cancelled Context Aborts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"content": [], "total_pages": 0, "total_items": 0}`)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(server.URL, discardLogger(), nil)
		if _, err := client.FetchPage(ctx, domain.CatalogQuery{}, 1); err == nil {
			t.Fatal("expected an error for cancelled context")
		}
	})
}
