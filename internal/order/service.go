package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"minishop-be/internal/events"
	"minishop-be/internal/inventory"
	"minishop-be/internal/logger"
	"minishop-be/internal/metrics"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Conflicting transactions are idempotent to retry: nothing of the aborted
// attempt was committed.
const maxConflictRetries = 3

// Admin listing pagination bounds.
const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type Service interface {
	CreateOrder(ctx context.Context, userID uint, items []ItemInput) (*Order, error)
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, isAdmin bool, target Status) error
	GetOrder(ctx context.Context, orderID uuid.UUID, userID uint, isAdmin bool) (*Order, error)
	ListOrders(ctx context.Context, userID uint) ([]*Order, error)
	ListAllOrders(ctx context.Context, isAdmin bool, status *Status, page, limit int) (*OrderPage, error)
}

// OrderPage is one page of the admin-wide order listing.
type OrderPage struct {
	Orders []*Order `json:"orders"`
	Page   int      `json:"page"`
	Limit  int      `json:"limit"`
	Total  int64    `json:"total"`
	Pages  int      `json:"pages"`
}

type service struct {
	db        *sql.DB
	validator Validator
	ledger    inventory.Ledger
	repo      Repository
	publisher events.Publisher
	metrics   *metrics.OrderMetrics
}

// NewService wires the order lifecycle coordinator. The *sql.DB is the
// transaction provider: every unit of work is scoped to one transaction
// spanning the ledger's stock mutations and the store's order writes.
func NewService(
	database *sql.DB,
	v Validator,
	ledger inventory.Ledger,
	repo Repository,
	publisher events.Publisher,
	m *metrics.OrderMetrics,
) Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if m == nil {
		m = &metrics.OrderMetrics{}
	}
	return &service{
		db:        database,
		validator: v,
		ledger:    ledger,
		repo:      repo,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateOrder validates the request, then reserves stock and persists the
// order in a single transaction. Any reservation failure aborts the whole
// unit; no stock mutation or order row survives.
func (s *service) CreateOrder(ctx context.Context, userID uint, items []ItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "coordinator"),
		zap.String("method", "CreateOrder"),
		zap.Uint("user_id", userID),
		zap.Int("item_count", len(items)),
	)

	validated, err := s.validator.Validate(ctx, items)
	if err != nil {
		return nil, err
	}

	var created *Order
	err = s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		o := &Order{
			ID:         uuid.New(),
			UserID:     userID,
			Status:     StatusPending,
			TotalCents: validated.TotalCents,
			CreatedAt:  time.Now(),
			Items:      make([]OrderItem, len(validated.Items)),
		}
		copy(o.Items, validated.Items)

		for _, item := range o.Items {
			if err := s.ledger.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := s.repo.CreateTx(ctx, tx, o); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit order: %w", err)
		}

		created = o
		return nil
	})
	if err != nil {
		log.Warn("order creation failed", zap.Error(err))
		return nil, err
	}

	s.metrics.Created.Inc()
	log.Info("order created",
		zap.String("order_id", created.ID.String()),
		zap.Int64("total_cents", created.TotalCents),
	)

	s.publishCreated(ctx, created)

	return created, nil
}

// SetOrderStatus enforces the status state machine. Cancellation restores
// stock for every item and writes the status inside one transaction, so a
// failed restore leaves the status untouched. The current-status check is
// the sole cancellation idempotency guard: a CANCELLED order has no legal
// outgoing transition, so stock can never be restored twice.
func (s *service) SetOrderStatus(ctx context.Context, orderID uuid.UUID, isAdmin bool, target Status) error {
	if !isAdmin {
		return ErrUnauthorized
	}
	if !target.Valid() {
		return ErrInvalidStatusTransition
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "coordinator"),
		zap.String("method", "SetOrderStatus"),
		zap.String("order_id", orderID.String()),
		zap.String("target", string(target)),
	)

	var from Status
	err := s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		o, err := s.repo.GetTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !CanTransition(o.Status, target) {
			return ErrInvalidStatusTransition
		}

		if target == StatusCancelled {
			for _, item := range o.Items {
				if err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := s.repo.UpdateStatusTx(ctx, tx, orderID, target); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit status update: %w", err)
		}

		from = o.Status
		return nil
	})
	if err != nil {
		log.Warn("status transition failed", zap.Error(err))
		return err
	}

	if target == StatusCancelled {
		s.metrics.Cancelled.Inc()
	}
	log.Info("order status updated", zap.String("from", string(from)))

	s.publishStatusChanged(ctx, orderID, from, target)

	return nil
}

// GetOrder returns the order with items. Non-admins only see their own.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, userID uint, isAdmin bool) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != userID {
		return nil, ErrUnauthorized
	}

	return o, nil
}

func (s *service) ListOrders(ctx context.Context, userID uint) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAllOrders pages over every user's orders, newest first, admin only.
// An optional status narrows the listing; out-of-range page or limit
// values fall back to sane defaults.
func (s *service) ListAllOrders(ctx context.Context, isAdmin bool, status *Status, page, limit int) (*OrderPage, error) {
	if !isAdmin {
		return nil, ErrUnauthorized
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	orders, err := s.repo.ListAll(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountOrders(ctx, status)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))

	return &OrderPage{
		Orders: orders,
		Page:   page,
		Limit:  limit,
		Total:  total,
		Pages:  pages,
	}, nil
}

// withRetry re-runs the unit of work on serialization or deadlock failures,
// a bounded number of times, then surfaces ErrConcurrencyConflict.
func (s *service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = fn()
		if err == nil || !isConflict(err) {
			return err
		}

		s.metrics.ConflictRetries.Inc()
		logger.FromCtx(ctx).Warn("retrying after concurrency conflict",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
}

func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func (s *service) publishCreated(ctx context.Context, o *Order) {
	items := make([]events.ItemQty, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, events.ItemQty{ProductID: item.ProductID, Qty: item.Quantity})
	}

	env, err := events.NewEnvelope(events.EventOrderCreated, events.OrderCreatedPayload{
		OrderID:    o.ID.String(),
		UserID:     o.UserID,
		Items:      items,
		TotalCents: o.TotalCents,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, o.ID.String(), env)
	}
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to publish order created event",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) publishStatusChanged(ctx context.Context, orderID uuid.UUID, from, to Status) {
	env, err := events.NewEnvelope(events.EventOrderStatusChanged, events.OrderStatusChangedPayload{
		OrderID: orderID.String(),
		From:    string(from),
		To:      string(to),
	})
	if err == nil {
		err = s.publisher.Publish(ctx, orderID.String(), env)
	}
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to publish status changed event",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}
