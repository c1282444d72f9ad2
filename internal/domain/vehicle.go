package domain

// VehicleRecord is one catalog item as received from the remote marketplace API.
// Records are immutable once fetched; a refresh replaces the whole set, there is
// no field-level patching.
type VehicleRecord struct {
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
	Location     string  `json:"location,omitempty"`
}

// VehicleSet is the cached payload for the vehicle store: the full merged
// catalog from the last successful refresh.
type VehicleSet struct {
	Vehicles   []VehicleRecord `json:"vehicles"`
	TotalItems int             `json:"total_items"`
}

// CatalogQuery carries the filter/sort parameters forwarded to the remote
// catalog endpoint on every page request of a refresh.
type CatalogQuery struct {
	Filter   string
	Sort     string
	PageSize int
}

// CatalogPage is one page of the remote catalog envelope.
type CatalogPage struct {
	Content    []VehicleRecord `json:"content"`
	TotalPages int             `json:"total_pages"`
	TotalItems int             `json:"total_items"`
}
