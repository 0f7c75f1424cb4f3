package order

import (
	"context"
	"fmt"

	"minishop-be/internal/catalog"
	"minishop-be/internal/inventory"
	"minishop-be/internal/logger"

	"go.uber.org/zap"
)

// Validated is the outcome of a successful validation: order items with
// their unit price snapshots, in request order, plus the precomputed total.
type Validated struct {
	Items      []OrderItem
	TotalCents int64
}

type Validator interface {
	Validate(ctx context.Context, items []ItemInput) (*Validated, error)
}

type validator struct {
	catalog catalog.Repository
}

func NewValidator(catalogRepo catalog.Repository) Validator {
	return &validator{catalog: catalogRepo}
}

// Validate resolves every requested item against the catalog and snapshots
// unit prices. The stock comparison here reads possibly-stale data and is
// only a cheap early reject; the ledger re-checks under a row lock.
func (v *validator) Validate(ctx context.Context, items []ItemInput) (*Validated, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "validator"),
		zap.Int("item_count", len(items)),
	)

	var vErr ValidationError
	if len(items) == 0 {
		vErr.add("items", "order must contain at least one item")
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			vErr.add(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
		}
	}
	if len(vErr.Fields) > 0 {
		log.Warn("order request rejected", zap.Int("field_errors", len(vErr.Fields)))
		return nil, &vErr
	}

	validated := &Validated{Items: make([]OrderItem, 0, len(items))}

	for _, item := range items {
		stock, err := v.catalog.VisibleStock(ctx, item.ProductID)
		if err != nil {
			log.Warn("item resolution failed",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return nil, err
		}

		if stock < item.Quantity {
			log.Debug("pre-check rejected item",
				zap.Uint("product_id", item.ProductID),
				zap.Int("requested", item.Quantity),
				zap.Int("visible_stock", stock),
			)
			return nil, inventory.ErrInsufficientStock
		}

		// Price snapshots come from a direct row read, never the cache.
		p, err := v.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			log.Warn("item resolution failed",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return nil, err
		}

		validated.Items = append(validated.Items, OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		validated.TotalCents += int64(item.Quantity) * p.PriceCents
	}

	log.Debug("order request validated", zap.Int64("total_cents", validated.TotalCents))

	return validated, nil
}
