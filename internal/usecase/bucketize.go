package usecase

import (
	"sort"

	"github.com/user/vehicle-catalog/internal/domain"
)

// bucketFacet is the minimized per-vehicle projection the aggregation actually
// consumes. Strategies that cross an execution boundary ship facets instead of
// full records to bound the payload size.
type bucketFacet struct {
	ID           string  `json:"id"`
	SellerID     string  `json:"seller_id,omitempty"`
	SellerName   string  `json:"seller_name,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	Model        string  `json:"model,omitempty"`
	Variant      string  `json:"variant,omitempty"`
	Color        string  `json:"color,omitempty"`
	Year         int     `json:"year,omitempty"`
	Condition    string  `json:"condition,omitempty"`
	BodyType     string  `json:"body_type,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	MainImageURL string  `json:"main_image_url,omitempty"`
}

func facetOf(v domain.VehicleRecord) bucketFacet {
	return bucketFacet{
		ID:           v.ID,
		SellerID:     v.SellerID,
		SellerName:   v.SellerName,
		Brand:        v.Brand,
		Model:        v.Model,
		Variant:      v.Variant,
		Color:        v.Color,
		Year:         v.Year,
		Condition:    v.Condition,
		BodyType:     v.BodyType,
		Price:        v.Price,
		Currency:     v.Currency,
		MainImageURL: v.MainImageURL,
	}
}

func (f bucketFacet) record() domain.VehicleRecord {
	return domain.VehicleRecord{
		ID:         f.ID,
		SellerID:   f.SellerID,
		SellerName: f.SellerName,
		Brand:      f.Brand,
		Model:      f.Model,
		Variant:    f.Variant,
		Color:      f.Color,
		Year:       f.Year,
		Condition:  f.Condition,
		BodyType:   f.BodyType,
	}
}

// BucketAccumulator builds bucket summaries one vehicle at a time. Feeding it
// a list element by element yields the same result as a single ToBucketMeta
// call over the whole list, which is what lets the chunked strategy resume
// between chunks without recomputing earlier ones.
type BucketAccumulator struct {
	cap     int
	buckets map[string]*domain.BucketMeta
	order   []string
}

// NewBucketAccumulator creates an accumulator with the given per-bucket member
// id cap. A non-positive cap falls back to domain.DefaultVehicleIDCap.
func NewBucketAccumulator(vehicleIDCap int) *BucketAccumulator {
	if vehicleIDCap <= 0 {
		vehicleIDCap = domain.DefaultVehicleIDCap
	}
	return &BucketAccumulator{
		cap:     vehicleIDCap,
		buckets: make(map[string]*domain.BucketMeta),
	}
}

// Add folds one vehicle into its bucket.
func (a *BucketAccumulator) Add(v domain.VehicleRecord) {
	a.add(facetOf(v))
}

func (a *BucketAccumulator) add(f bucketFacet) {
	key := domain.BucketKeyFor(f.record())
	b, ok := a.buckets[key]
	if !ok {
		b = &domain.BucketMeta{
			BucketKey:        key,
			RepresentativeID: f.ID,
			SellerID:         f.SellerID,
			SellerName:       f.SellerName,
			Brand:            f.Brand,
			Model:            f.Model,
			Variant:          f.Variant,
			Color:            f.Color,
			Year:             f.Year,
			Condition:        f.Condition,
			BodyType:         f.BodyType,
			MinPrice:         f.Price,
			MaxPrice:         f.Price,
		}
		a.buckets[key] = b
		a.order = append(a.order, key)
	}

	b.Count++
	if f.Price < b.MinPrice {
		b.MinPrice = f.Price
	}
	if f.Price > b.MaxPrice {
		b.MaxPrice = f.Price
	}
	if b.SellerID == "" && f.SellerID != "" {
		b.SellerID = f.SellerID
		b.SellerName = f.SellerName
	}
	if b.Currency == "" && f.Currency != "" {
		b.Currency = f.Currency
	}
	if b.HeroImageURL == "" && f.MainImageURL != "" {
		b.HeroImageURL = f.MainImageURL
	}
	if len(b.VehicleIDs) < a.cap {
		b.VehicleIDs = append(b.VehicleIDs, f.ID)
	}
}

// Buckets returns the current summaries sorted by count descending, with
// first-seen order as the stable tie-break. The accumulator stays usable
// afterwards; returned buckets are copies.
func (a *BucketAccumulator) Buckets() []domain.BucketMeta {
	out := make([]domain.BucketMeta, 0, len(a.order))
	for _, key := range a.order {
		b := *a.buckets[key]
		b.VehicleIDs = append([]string(nil), b.VehicleIDs...)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// ToBucketMeta aggregates a vehicle list into an ordered list of bucket
// summaries. Pure and deterministic: equal inputs produce identical output.
func ToBucketMeta(vehicles []domain.VehicleRecord, vehicleIDCap int) []domain.BucketMeta {
	acc := NewBucketAccumulator(vehicleIDCap)
	for _, v := range vehicles {
		acc.Add(v)
	}
	return acc.Buckets()
}
