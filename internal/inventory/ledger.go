package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minishop-be/internal/catalog"
	"minishop-be/internal/db"
	"minishop-be/internal/logger"

	"go.uber.org/zap"
)

// Ledger owns the stock counter. Reserve is the authoritative
// check-and-decrement; callers scope the transaction so the decrement
// commits or rolls back together with the order write.
type Ledger interface {
	Reserve(ctx context.Context, tx db.DBTX, productID uint, qty int) error
	Restore(ctx context.Context, tx db.DBTX, productID uint, qty int) error
}

type pgLedger struct{}

func NewLedger() Ledger {
	return &pgLedger{}
}

// Reserve locks the product row, checks stock and decrements it, all under
// the same row lock. Two concurrent reservations on the same product are
// serialized by FOR UPDATE, so stock = 1 can never satisfy both.
func (l *pgLedger) Reserve(ctx context.Context, tx db.DBTX, productID uint, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty),
	)

	var stock int
	err := tx.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&stock)

	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("reserve on unknown product")
		return catalog.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock stock row: %w", err)
	}

	if stock < qty {
		log.Debug("reserve rejected", zap.Int("available", stock))
		return ErrInsufficientStock
	}

	// The stock >= qty guard keeps the counter non-negative even if a
	// concurrent writer slipped in under weaker isolation.
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInsufficientStock
	}

	log.Debug("stock reserved", zap.Int("available_before", stock))
	return nil
}

// Restore adds reserved quantity back. It is unconditional: invoking it at
// most once per reservation is the coordinator's responsibility.
func (l *pgLedger) Restore(ctx context.Context, tx db.DBTX, productID uint, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return catalog.ErrProductNotFound
	}

	logger.FromCtx(ctx).Debug("stock restored",
		zap.String("layer", "ledger"),
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty),
	)
	return nil
}
