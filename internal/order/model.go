package order

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID         uuid.UUID
	UserID     uint
	TotalCents int64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []OrderItem
}

// OrderItem is owned exclusively by its parent order. UnitPriceCents is the
// price snapshot taken at validation time and never recomputed.
type OrderItem struct {
	ID             uint
	OrderID        uuid.UUID
	ProductID      uint
	Quantity       int
	UnitPriceCents int64
}

// ItemInput is a raw (productId, quantity) request line as handed in by the
// caller, in request order.
type ItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}
