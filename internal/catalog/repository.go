package catalog

import (
	"context"
	"database/sql"
	"errors"

	"minishop-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetProduct(ctx context.Context, id uint) (*Product, error)
	VisibleStock(ctx context.Context, id uint) (int, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

type repository struct {
	db    *sql.DB
	cache *Cache
}

// NewRepository builds the catalog read side. cache may be nil.
func NewRepository(db *sql.DB, cache *Cache) Repository {
	return &repository{db: db, cache: cache}
}

// GetProduct always reads the products row. Pricing decisions are made
// from this result, so it never consults the cache.
func (r *repository) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query product",
			zap.Uint("product_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	r.cache.SetStock(ctx, p.ID, p.Stock)

	return &p, nil
}

// VisibleStock returns a possibly-stale stock snapshot for cheap
// pre-checks, cache first with a database fallback.
func (r *repository) VisibleStock(ctx context.Context, id uint) (int, error) {
	if stock, ok := r.cache.GetStock(ctx, id); ok {
		return stock, nil
	}

	var stock int
	err := r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query product stock",
			zap.Uint("product_id", id),
			zap.Error(err),
		)
		return 0, err
	}

	r.cache.SetStock(ctx, id, stock)

	return stock, nil
}

func (r *repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price_cents, stock, created_at, updated_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}
