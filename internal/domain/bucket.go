package domain

import (
	"strconv"
	"strings"
	"time"
)

// DefaultVehicleIDCap bounds the per-bucket member id list. Membership beyond
// the cap is still counted in Count but not individually addressable.
const DefaultVehicleIDCap = 30

// BucketMeta aggregates all vehicles sharing a BucketKey: interchangeable
// listings (same brand/model/variant/color/year/condition/body type) collapsed
// into one display group with a price range and representative imagery.
type BucketMeta struct {
	BucketKey        string   `json:"bucket_key"`
	RepresentativeID string   `json:"representative_id"`
	SellerID         string   `json:"seller_id,omitempty"`
	SellerName       string   `json:"seller_name,omitempty"`
	Brand            string   `json:"brand,omitempty"`
	Model            string   `json:"model,omitempty"`
	Variant          string   `json:"variant,omitempty"`
	Color            string   `json:"color,omitempty"`
	Year             int      `json:"year,omitempty"`
	Condition        string   `json:"condition,omitempty"`
	BodyType         string   `json:"body_type,omitempty"`
	Count            int      `json:"count"`
	MinPrice         float64  `json:"min_price"`
	MaxPrice         float64  `json:"max_price"`
	Currency         string   `json:"currency,omitempty"`
	HeroImageURL     string   `json:"hero_image_url,omitempty"`
	VehicleIDs       []string `json:"vehicle_ids"`
}

// BucketSet is the cached payload for the bucket store. SourceVehiclesUpdatedAt
// records which vehicle snapshot the buckets were computed from; equality with
// the vehicle entry's UpdatedAt is a sufficient condition to skip recomputation.
type BucketSet struct {
	Buckets                 []BucketMeta `json:"buckets"`
	SourceVehiclesUpdatedAt time.Time    `json:"source_vehicles_updated_at"`
}

// BucketKeyFor derives the deterministic bucket identity for a vehicle.
// Missing attributes normalize to the empty string (year 0 included) so the
// key is always well-formed and order-stable, even for malformed records.
func BucketKeyFor(v VehicleRecord) string {
	year := ""
	if v.Year != 0 {
		year = strconv.Itoa(v.Year)
	}
	parts := []string{v.Brand, v.Model, v.Variant, v.Color, year, v.Condition, v.BodyType}
	return strings.ToLower(strings.Join(parts, "|"))
}
