package usecase

import (
	"reflect"
	"testing"

	"github.com/user/vehicle-catalog/internal/domain"
)

func corolla(id string, price float64) domain.VehicleRecord {
	return domain.VehicleRecord{
		ID:           id,
		SellerID:     "seller-1",
		SellerName:   "City Motors",
		Brand:        "Toyota",
		Model:        "Corolla",
		Variant:      "LE",
		Color:        "White",
		Year:         2022,
		Condition:    "used",
		BodyType:     "sedan",
		Price:        price,
		Currency:     "USD",
		MainImageURL: "https://img.example/corolla.jpg",
	}
}

func TestToBucketMeta(t *testing.T) {
	t.Run("Empty Input", func(t *testing.T) {
		buckets := ToBucketMeta(nil, 30)
		if len(buckets) != 0 {
			t.Fatalf("expected no buckets, got %d", len(buckets))
		}
	})

	t.Run("Two Listings One Bucket", func(t *testing.T) {
		buckets := ToBucketMeta([]domain.VehicleRecord{corolla("v1", 50000), corolla("v2", 52000)}, 30)

		if len(buckets) != 1 {
			t.Fatalf("expected 1 bucket, got %d", len(buckets))
		}
		b := buckets[0]
		if b.Count != 2 {
			t.Errorf("expected count 2, got %d", b.Count)
		}
		if b.MinPrice != 50000 || b.MaxPrice != 52000 {
			t.Errorf("expected price range [50000, 52000], got [%v, %v]", b.MinPrice, b.MaxPrice)
		}
		if b.Currency != "USD" {
			t.Errorf("expected currency USD, got %q", b.Currency)
		}
		if b.RepresentativeID != "v1" {
			t.Errorf("expected representative v1, got %q", b.RepresentativeID)
		}
		if b.BucketKey != "toyota|corolla|le|white|2022|used|sedan" {
			t.Errorf("unexpected bucket key %q", b.BucketKey)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		vehicles := []domain.VehicleRecord{
			corolla("v1", 50000),
			{ID: "v2", Brand: "Honda", Model: "Civic", Year: 2021, Price: 41000, Currency: "USD"},
			corolla("v3", 48000),
			{ID: "v4", Brand: "Honda", Model: "Civic", Year: 2021, Price: 39000, Currency: "USD"},
		}
		first := ToBucketMeta(vehicles, 30)
		second := ToBucketMeta(vehicles, 30)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("two runs over the same input diverged:\n%+v\n%+v", first, second)
		}
	})

	t.Run("Sorted By Count Descending", func(t *testing.T) {
		vehicles := []domain.VehicleRecord{
			{ID: "a1", Brand: "Audi", Model: "A4", Price: 60000},
			corolla("v1", 50000),
			corolla("v2", 52000),
			corolla("v3", 51000),
		}
		buckets := ToBucketMeta(vehicles, 30)
		if len(buckets) != 2 {
			t.Fatalf("expected 2 buckets, got %d", len(buckets))
		}
		if buckets[0].Count < buckets[1].Count {
			t.Errorf("buckets not sorted by count: %d before %d", buckets[0].Count, buckets[1].Count)
		}
		if buckets[0].Brand != "Toyota" {
			t.Errorf("expected largest bucket first, got %q", buckets[0].Brand)
		}
	})

	t.Run("Incremental Fold Matches Single Pass", func(t *testing.T) {
		a := []domain.VehicleRecord{
			corolla("v1", 50000),
			{ID: "v2", Brand: "Honda", Model: "Civic", Year: 2021, Price: 41000},
		}
		b := []domain.VehicleRecord{
			corolla("v3", 47000),
			{ID: "v4", Brand: "Honda", Model: "Civic", Year: 2021, Price: 45000},
			{ID: "v5", Brand: "Mazda", Model: "3", Year: 2020, Price: 30000},
		}

		single := ToBucketMeta(append(append([]domain.VehicleRecord{}, a...), b...), 30)

		acc := NewBucketAccumulator(30)
		for _, v := range a {
			acc.Add(v)
		}
		for _, v := range b {
			acc.Add(v)
		}
		folded := acc.Buckets()

		if !reflect.DeepEqual(single, folded) {
			t.Errorf("incremental fold diverged from single pass:\n%+v\n%+v", single, folded)
		}
	})

	t.Run("Vehicle ID Cap", func(t *testing.T) {
		const idCap = 3
		var vehicles []domain.VehicleRecord
		for i := 0; i < 10; i++ {
			vehicles = append(vehicles, corolla(string(rune('a'+i)), 50000+float64(i)))
		}
		buckets := ToBucketMeta(vehicles, idCap)
		if len(buckets) != 1 {
			t.Fatalf("expected 1 bucket, got %d", len(buckets))
		}
		b := buckets[0]
		if b.Count != 10 {
			t.Errorf("expected count 10, got %d", b.Count)
		}
		if len(b.VehicleIDs) != idCap {
			t.Errorf("expected %d member ids, got %d", idCap, len(b.VehicleIDs))
		}
	})

	t.Run("Min Max Within Member Prices", func(t *testing.T) {
		vehicles := []domain.VehicleRecord{
			corolla("v1", 52000),
			corolla("v2", 48000),
			corolla("v3", 50000),
		}
		buckets := ToBucketMeta(vehicles, 30)
		b := buckets[0]
		if b.MinPrice > b.MaxPrice {
			t.Errorf("min %v exceeds max %v", b.MinPrice, b.MaxPrice)
		}
		if b.MinPrice != 48000 || b.MaxPrice != 52000 {
			t.Errorf("expected [48000, 52000], got [%v, %v]", b.MinPrice, b.MaxPrice)
		}
	})

	t.Run("Backfills Currency And Hero Image", func(t *testing.T) {
		vehicles := []domain.VehicleRecord{
			{ID: "v1", Brand: "Kia", Model: "Rio", Price: 15000},
			{ID: "v2", Brand: "Kia", Model: "Rio", Price: 16000, Currency: "EUR", MainImageURL: "https://img.example/rio.jpg"},
		}
		buckets := ToBucketMeta(vehicles, 30)
		b := buckets[0]
		if b.Currency != "EUR" {
			t.Errorf("expected first non-empty currency EUR, got %q", b.Currency)
		}
		if b.HeroImageURL != "https://img.example/rio.jpg" {
			t.Errorf("expected hero image backfilled, got %q", b.HeroImageURL)
		}
		if b.RepresentativeID != "v1" {
			t.Errorf("representative must stay first-seen, got %q", b.RepresentativeID)
		}
	})

	t.Run("Blank Attributes Still Bucket", func(t *testing.T) {
		vehicles := []domain.VehicleRecord{
			{ID: "v1", Price: 100},
			{ID: "v2", Price: 200},
		}
		buckets := ToBucketMeta(vehicles, 30)
		if len(buckets) != 1 {
			t.Fatalf("expected blank records to share one bucket, got %d", len(buckets))
		}
		if buckets[0].BucketKey != "||||||" {
			t.Errorf("unexpected key for blank record %q", buckets[0].BucketKey)
		}
	})
}

func TestBucketKeyFor(t *testing.T) {
	v := corolla("v1", 50000)
	if got := domain.BucketKeyFor(v); got != "toyota|corolla|le|white|2022|used|sedan" {
		t.Errorf("unexpected key %q", got)
	}

	v.Year = 0
	if got := domain.BucketKeyFor(v); got != "toyota|corolla|le|white||used|sedan" {
		t.Errorf("zero year must normalize to empty component, got %q", got)
	}
}
