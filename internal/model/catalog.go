package model

// Product is a catalog entry as returned by /api/products. Optional fields
// are filled by catalog.Normalize.
type Product struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Price    any      `json:"price"`
	Image    string   `json:"image,omitempty"`
	Category string   `json:"category"`
	Brand    string   `json:"brand,omitempty"`
	Features []string `json:"features,omitempty"`
}

// CatalogProduct is a normalized Product with a numeric price.
type CatalogProduct struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Image    string   `json:"image"`
	Category string   `json:"category"`
	Brand    string   `json:"brand"`
	Features []string `json:"features"`
}

// Suggestion is a search-as-you-type result.
type Suggestion struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    string `json:"image,omitempty"`
}
