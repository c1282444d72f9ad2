package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/vehicle-catalog/internal/domain"
	"github.com/user/vehicle-catalog/internal/domain/mocks"
)

func newTestCoordinator(
	vehicles *mocks.MockStore[domain.VehicleSet],
	buckets *mocks.MockStore[domain.BucketSet],
	gateway *mocks.MockCatalogGateway,
	chunked, offload domain.AggregationStrategy,
	opts CoordinatorOptions,
) *Coordinator {
	logger := discardLogger()
	fetcher := NewFetchCatalogUseCase(gateway, logger)
	return NewCoordinator(vehicles, buckets, fetcher, chunked, offload, logger, opts)
}

func TestCoordinator(t *testing.T) {
	t.Run("Hydrates From Cache Without Fetching", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		gateway := &mocks.MockCatalogGateway{}

		entry := vehicles.Seed(domain.VehicleSet{
			Vehicles:   []domain.VehicleRecord{corolla("v1", 50000)},
			TotalItems: 1,
		}, time.Now().UTC())
		buckets.Seed(domain.BucketSet{
			Buckets:                 ToBucketMeta(entry.Payload.Vehicles, 30),
			SourceVehiclesUpdatedAt: entry.UpdatedAt,
		}, entry.UpdatedAt)

		chunked := &mocks.MockStrategy{}
		offload := &mocks.MockStrategy{}
		c := newTestCoordinator(vehicles, buckets, gateway, chunked, offload, CoordinatorOptions{RefreshOnMount: true})
		c.Start(context.Background())
		defer c.Close()

		if gateway.CallCount() != 0 {
			t.Errorf("fresh cache must not trigger a fetch, got %d page requests", gateway.CallCount())
		}
		view := c.Snapshot()
		if len(view.Vehicles) != 1 || len(view.Buckets) != 1 {
			t.Errorf("expected hydrated view, got %d vehicles %d buckets", len(view.Vehicles), len(view.Buckets))
		}
	})

	t.Run("Skips Recompute When Source Timestamps Match", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}

		entry := vehicles.Seed(domain.VehicleSet{
			Vehicles: []domain.VehicleRecord{corolla("v1", 50000)},
		}, time.Now().UTC())
		buckets.Seed(domain.BucketSet{
			Buckets:                 ToBucketMeta(entry.Payload.Vehicles, 30),
			SourceVehiclesUpdatedAt: entry.UpdatedAt,
		}, entry.UpdatedAt)

		chunked := &mocks.MockStrategy{}
		offload := &mocks.MockStrategy{}
		c := newTestCoordinator(vehicles, buckets, &mocks.MockCatalogGateway{}, chunked, offload, CoordinatorOptions{})
		c.Start(context.Background())
		defer c.Close()

		if chunked.Calls() != 0 || offload.Calls() != 0 {
			t.Errorf("expected no aggregation, got chunked=%d offload=%d", chunked.Calls(), offload.Calls())
		}
	})

	t.Run("Recomputes When Bucket Cache Is Behind", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}

		entry := vehicles.Seed(domain.VehicleSet{
			Vehicles: []domain.VehicleRecord{corolla("v1", 50000)},
		}, time.Now().UTC())
		buckets.Seed(domain.BucketSet{
			SourceVehiclesUpdatedAt: entry.UpdatedAt.Add(-time.Minute),
		}, entry.UpdatedAt.Add(-time.Minute))

		chunked := &mocks.MockStrategy{Result: []domain.BucketMeta{{BucketKey: "k", Count: 1}}}
		offload := &mocks.MockStrategy{}
		c := newTestCoordinator(vehicles, buckets, &mocks.MockCatalogGateway{}, chunked, offload, CoordinatorOptions{})
		c.Start(context.Background())
		defer c.Close()

		if chunked.Calls() != 1 {
			t.Fatalf("expected 1 chunked aggregation, got %d", chunked.Calls())
		}
		written := buckets.Memory()
		if written == nil {
			t.Fatal("expected bucket store write")
		}
		if !written.Payload.SourceVehiclesUpdatedAt.Equal(entry.UpdatedAt) {
			t.Error("bucket set must record the vehicle snapshot it was computed from")
		}
		if len(c.Snapshot().Buckets) != 1 {
			t.Errorf("expected view to carry the recomputed buckets")
		}
	})

	t.Run("Selects Offload Strategy Above Threshold", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		vehicles.Seed(domain.VehicleSet{Vehicles: fleet(301)}, time.Now().UTC())

		chunked := &mocks.MockStrategy{}
		offload := &mocks.MockStrategy{}
		c := newTestCoordinator(vehicles, buckets, &mocks.MockCatalogGateway{}, chunked, offload, CoordinatorOptions{OffloadThreshold: 300})
		c.Start(context.Background())
		defer c.Close()

		if offload.Calls() != 1 || chunked.Calls() != 0 {
			t.Errorf("expected offload strategy, got chunked=%d offload=%d", chunked.Calls(), offload.Calls())
		}
	})

	t.Run("Fetches When Empty", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		gateway := &mocks.MockCatalogGateway{
			Pages: map[int]*domain.CatalogPage{1: page(1, 2, "v1", "v2")},
		}

		chunked := &mocks.MockStrategy{}
		c := newTestCoordinator(vehicles, buckets, gateway, chunked, &mocks.MockStrategy{}, CoordinatorOptions{FetchIfEmpty: true})
		c.Start(context.Background())
		defer c.Close()

		if gateway.CallCount() == 0 {
			t.Fatal("expected a fetch on empty cache")
		}
		if len(vehicles.Written) != 1 {
			t.Fatalf("expected 1 vehicle store write, got %d", len(vehicles.Written))
		}
		if chunked.Calls() != 1 {
			t.Errorf("expected buckets recomputed after the write, got %d", chunked.Calls())
		}
		if c.Snapshot().Loading {
			t.Error("loading flag must clear after refresh")
		}
	})

	t.Run("Refreshes Stale Cache On Mount", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		gateway := &mocks.MockCatalogGateway{
			Pages: map[int]*domain.CatalogPage{1: page(1, 1, "v9")},
		}

		vehicles.Seed(domain.VehicleSet{Vehicles: []domain.VehicleRecord{corolla("v1", 50000)}}, time.Now().UTC().Add(-10*time.Minute))

		c := newTestCoordinator(vehicles, buckets, gateway, &mocks.MockStrategy{}, &mocks.MockStrategy{}, CoordinatorOptions{
			RefreshOnMount: true,
			StaleTTL:       5 * time.Minute,
		})
		c.Start(context.Background())
		defer c.Close()

		if gateway.CallCount() == 0 {
			t.Fatal("expected stale cache to trigger a fetch")
		}
		view := c.Snapshot()
		if len(view.Vehicles) != 1 || view.Vehicles[0].ID != "v9" {
			t.Errorf("expected refreshed snapshot in view, got %+v", view.Vehicles)
		}
	})

	t.Run("Failed Refresh Keeps Prior Cache", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		gateway := &mocks.MockCatalogGateway{
			PageErrs: map[int]error{1: errors.New("upstream down")},
		}

		vehicles.Seed(domain.VehicleSet{Vehicles: []domain.VehicleRecord{corolla("v1", 50000)}}, time.Now().UTC().Add(-10*time.Minute))

		c := newTestCoordinator(vehicles, buckets, gateway, &mocks.MockStrategy{}, &mocks.MockStrategy{}, CoordinatorOptions{RefreshOnMount: true})
		c.Start(context.Background())
		defer c.Close()

		if len(vehicles.Written) != 0 {
			t.Errorf("failed refresh must not write the vehicle store, got %d writes", len(vehicles.Written))
		}
		view := c.Snapshot()
		if len(view.Vehicles) != 1 || view.Vehicles[0].ID != "v1" {
			t.Errorf("expected prior snapshot retained, got %+v", view.Vehicles)
		}
		if view.Loading {
			t.Error("loading flag must clear after a failed refresh")
		}
	})

	t.Run("Notifies Subscribers And Unsubscribes On Close", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}
		gateway := &mocks.MockCatalogGateway{
			Pages: map[int]*domain.CatalogPage{1: page(1, 1, "v1")},
		}

		c := newTestCoordinator(vehicles, buckets, gateway, &mocks.MockStrategy{}, &mocks.MockStrategy{}, CoordinatorOptions{FetchIfEmpty: true})

		var views []View
		unsub := c.Subscribe(func(v View) { views = append(views, v) })
		defer unsub()

		c.Start(context.Background())
		if len(views) == 0 {
			t.Fatal("expected view notifications during refresh")
		}
		sawLoading := false
		for _, v := range views {
			if v.Loading {
				sawLoading = true
			}
		}
		if !sawLoading {
			t.Error("expected at least one notification with the loading flag set")
		}

		c.Close()
		if vehicles.SubscriberCount() != 0 || buckets.SubscriberCount() != 0 {
			t.Errorf("close must detach store listeners, got %d/%d", vehicles.SubscriberCount(), buckets.SubscriberCount())
		}

		// Writes after Close no longer reach this instance.
		before := len(views)
		vehicles.Write(context.Background(), domain.VehicleSet{Vehicles: []domain.VehicleRecord{corolla("v2", 1)}})
		if len(views) != before {
			t.Error("expected no notifications after Close")
		}
	})

	t.Run("External Write Converges This Instance", func(t *testing.T) {
		vehicles := &mocks.MockStore[domain.VehicleSet]{}
		buckets := &mocks.MockStore[domain.BucketSet]{}

		chunked := &mocks.MockStrategy{Result: []domain.BucketMeta{{BucketKey: "k", Count: 2}}}
		c := newTestCoordinator(vehicles, buckets, &mocks.MockCatalogGateway{}, chunked, &mocks.MockStrategy{}, CoordinatorOptions{})
		c.Start(context.Background())
		defer c.Close()

		// Simulate another coordinator (or process) replacing the snapshot.
		vehicles.Write(context.Background(), domain.VehicleSet{
			Vehicles:   []domain.VehicleRecord{corolla("v1", 50000), corolla("v2", 52000)},
			TotalItems: 2,
		})

		view := c.Snapshot()
		if len(view.Vehicles) != 2 {
			t.Errorf("expected converged vehicle view, got %d", len(view.Vehicles))
		}
		if chunked.Calls() != 1 {
			t.Errorf("expected recompute for the external snapshot, got %d", chunked.Calls())
		}
		if len(view.Buckets) != 1 {
			t.Errorf("expected bucket view updated, got %d", len(view.Buckets))
		}
	})
}
