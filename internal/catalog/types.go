package catalog

import (
	"errors"
	"time"
)

// Category groups products for browsing.
type Category struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a storefront catalog entry. Prices are integer cents; no
// floating point money anywhere.
type Product struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	CategoryID  string    `json:"category_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListOptions filter and page a product listing. Zero values mean
// no filter, default sort, first page.
type ListOptions struct {
	CategorySlug string
	Search       string
	Sort         string // one of the allowed sort keys; invalid values fall back to newest
	Limit        int
	Offset       int
}

// ErrNotFound is returned when a product or category does not exist.
var ErrNotFound = errors.New("catalog entry not found")
