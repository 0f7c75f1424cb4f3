package catalog

import (
	"context"
	"fmt"
	"time"

	"minishop-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout: catalog:stock:{id} -> visible stock snapshot.
const keyStock = "catalog:stock:%d"

// Short TTL bounds how stale the snapshot can get. Only the advisory
// pre-check reads it; prices and the authoritative stock check never do.
var TTLStock = 2 * time.Minute

// Cache holds per-product stock snapshots. All methods are nil-receiver
// safe so the repository works without Redis configured.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb}
}

func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func StockKey(id uint) string {
	return fmt.Sprintf(keyStock, id)
}

func (c *Cache) GetStock(ctx context.Context, id uint) (int, bool) {
	if c == nil {
		return 0, false
	}

	stock, err := c.rdb.Get(ctx, StockKey(id)).Int()
	if err != nil {
		if err != redis.Nil {
			logger.FromCtx(ctx).Warn("stock cache read failed",
				zap.Uint("product_id", id),
				zap.Error(err),
			)
		}
		return 0, false
	}
	return stock, true
}

func (c *Cache) SetStock(ctx context.Context, id uint, stock int) {
	if c == nil {
		return
	}

	if err := c.rdb.Set(ctx, StockKey(id), stock, TTLStock).Err(); err != nil {
		logger.FromCtx(ctx).Warn("stock cache write failed",
			zap.Uint("product_id", id),
			zap.Error(err),
		)
	}
}
