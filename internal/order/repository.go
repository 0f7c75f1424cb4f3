package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minishop-be/internal/db"
	"minishop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository is a thin persistence boundary for orders. The Tx-suffixed
// methods take a db.DBTX so the coordinator can compose them with the
// ledger's writes into one failure-atomic unit.
type Repository interface {
	CreateTx(ctx context.Context, tx db.DBTX, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	GetTx(ctx context.Context, tx db.DBTX, id uuid.UUID) (*Order, error)
	UpdateStatusTx(ctx context.Context, tx db.DBTX, id uuid.UUID, status Status) error
	ListByUser(ctx context.Context, userID uint) ([]*Order, error)
	ListAll(ctx context.Context, status *Status, limit, offset int) ([]*Order, error)
	CountOrders(ctx context.Context, status *Status) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) Repository {
	return &repository{db: database}
}

func (r *repository) CreateTx(ctx context.Context, tx db.DBTX, o *Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, o.ID, o.UserID, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// position preserves request order so reads return items as submitted.
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, o.ID, item.ProductID, item.Quantity, item.UnitPriceCents, i).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	logger.FromCtx(ctx).Debug("order persisted",
		zap.String("layer", "repository"),
		zap.String("order_id", o.ID.String()),
		zap.Int("item_count", len(o.Items)),
	)

	return nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.get(ctx, r.db, id, false)
}

// GetTx loads the order with its row locked, so concurrent status changes
// on the same order are serialized inside the coordinator's transaction.
func (r *repository) GetTx(ctx context.Context, tx db.DBTX, id uuid.UUID) (*Order, error) {
	return r.get(ctx, tx, id, true)
}

func (r *repository) get(ctx context.Context, q db.DBTX, id uuid.UUID, forUpdate bool) (*Order, error) {
	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var o Order
	err := q.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) UpdateStatusTx(ctx context.Context, tx db.DBTX, id uuid.UUID, status Status) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByUser"),
		zap.Uint("user_id", userID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		log.Error("failed to collect orders", zap.Error(err))
		return nil, err
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))

	return orders, nil
}

// ListAll returns a page of every user's orders, newest first, optionally
// narrowed to a single status.
func (r *repository) ListAll(ctx context.Context, status *Status, limit, offset int) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListAll"),
	)

	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE 1=1
	`
	args := []any{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		log.Error("failed to collect orders", zap.Error(err))
		return nil, err
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))

	return orders, nil
}

// CountOrders reports how many orders match the same filter ListAll pages
// over, so callers can compute page totals.
func (r *repository) CountOrders(ctx context.Context, status *Status) (int64, error) {
	query := `SELECT COUNT(*) FROM orders`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

// collectOrders drains an orders result set and attaches each order's
// items with a single ANY($1) query. It owns closing rows.
func (r *repository) collectOrders(ctx context.Context, rows *sql.Rows) ([]*Order, error) {
	defer rows.Close()

	var orders []*Order
	byID := make(map[uuid.UUID]*Order)
	ids := make([]uuid.UUID, 0)

	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, &o)
		byID[o.ID] = &o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
