package models

// Product is a catalog entry as returned by the search index.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Category      string  `json:"category,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	Rating        float64 `json:"rating"`
	ImageURL      string  `json:"imageUrl,omitempty"`
}

// ExternalListing is one result from the external marketplace lookup.
// It is deliberately a different shape from Product and is never merged
// into catalog result lists.
type ExternalListing struct {
	Name   string  `json:"name"`
	Price  string  `json:"price"`
	Rating float64 `json:"rating"`
	Link   string  `json:"link"`
	Image  string  `json:"image,omitempty"`
}
