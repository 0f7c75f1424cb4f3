package catalog

import "time"

// Product is the catalog's view of an item: the core only ever reads it.
// PriceCents is the live price; orders snapshot it at creation time.
type Product struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
