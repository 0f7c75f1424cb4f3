package order

import (
	"context"
	"testing"

	"minishop-be/internal/catalog"
	"minishop-be/internal/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProduct(ctx context.Context, id uint) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalog) VisibleStock(ctx context.Context, id uint) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockCatalog) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func TestValidator_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyItemList", func(t *testing.T) {
		cat := new(MockCatalog)
		v := NewValidator(cat)

		_, err := v.Validate(ctx, nil)

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Fields, 1)
		assert.Equal(t, "items", vErr.Fields[0].Field)

		// Rejected before any product lookup.
		cat.AssertNotCalled(t, "VisibleStock", mock.Anything, mock.Anything)
		cat.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	})

	t.Run("NonPositiveQuantities", func(t *testing.T) {
		cat := new(MockCatalog)
		v := NewValidator(cat)

		_, err := v.Validate(ctx, []ItemInput{
			{ProductID: 1, Quantity: 0},
			{ProductID: 2, Quantity: 2},
			{ProductID: 3, Quantity: -1},
		})

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Fields, 2)
		assert.Equal(t, "items[0].quantity", vErr.Fields[0].Field)
		assert.Equal(t, "items[2].quantity", vErr.Fields[1].Field)
		cat.AssertNotCalled(t, "VisibleStock", mock.Anything, mock.Anything)
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		cat := new(MockCatalog)
		cat.On("VisibleStock", ctx, uint(99)).Return(0, catalog.ErrProductNotFound)
		v := NewValidator(cat)

		_, err := v.Validate(ctx, []ItemInput{{ProductID: 99, Quantity: 1}})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("InsufficientVisibleStock", func(t *testing.T) {
		cat := new(MockCatalog)
		cat.On("VisibleStock", ctx, uint(1)).Return(5, nil)
		v := NewValidator(cat)

		_, err := v.Validate(ctx, []ItemInput{{ProductID: 1, Quantity: 999}})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		// Rejected from the snapshot alone, no row read needed.
		cat.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	})

	t.Run("SnapshotsPricesAndComputesTotal", func(t *testing.T) {
		cat := new(MockCatalog)
		cat.On("VisibleStock", ctx, uint(1)).Return(5, nil)
		cat.On("VisibleStock", ctx, uint(2)).Return(10, nil)
		cat.On("GetProduct", ctx, uint(1)).Return(&catalog.Product{ID: 1, PriceCents: 1000, Stock: 5}, nil)
		cat.On("GetProduct", ctx, uint(2)).Return(&catalog.Product{ID: 2, PriceCents: 250, Stock: 10}, nil)
		v := NewValidator(cat)

		validated, err := v.Validate(ctx, []ItemInput{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 2},
		})

		assert.NoError(t, err)
		assert.Len(t, validated.Items, 2)
		// Request order preserved.
		assert.Equal(t, uint(1), validated.Items[0].ProductID)
		assert.Equal(t, int64(1000), validated.Items[0].UnitPriceCents)
		assert.Equal(t, uint(2), validated.Items[1].ProductID)
		assert.Equal(t, int64(250), validated.Items[1].UnitPriceCents)
		assert.Equal(t, int64(3*1000+2*250), validated.TotalCents)
	})

	t.Run("StaleStockSnapshotNeverSetsPrice", func(t *testing.T) {
		// The visible stock snapshot lags the row: it still reports 10
		// from before a restock-and-reprice, while the row now holds
		// stock 3 at the new price. The charged price must be the
		// row's, not anything from the snapshot's era.
		cat := new(MockCatalog)
		cat.On("VisibleStock", ctx, uint(1)).Return(10, nil)
		cat.On("GetProduct", ctx, uint(1)).Return(&catalog.Product{ID: 1, PriceCents: 2500, Stock: 3}, nil)
		v := NewValidator(cat)

		validated, err := v.Validate(ctx, []ItemInput{{ProductID: 1, Quantity: 2}})

		assert.NoError(t, err)
		assert.Equal(t, int64(2500), validated.Items[0].UnitPriceCents)
		assert.Equal(t, int64(5000), validated.TotalCents)
		cat.AssertCalled(t, "GetProduct", ctx, uint(1))
	})

	t.Run("SnapshotIndependentOfLaterPriceChange", func(t *testing.T) {
		cat := new(MockCatalog)
		p := &catalog.Product{ID: 1, PriceCents: 1000, Stock: 5}
		cat.On("VisibleStock", ctx, uint(1)).Return(5, nil)
		cat.On("GetProduct", ctx, uint(1)).Return(p, nil)
		v := NewValidator(cat)

		validated, err := v.Validate(ctx, []ItemInput{{ProductID: 1, Quantity: 3}})
		assert.NoError(t, err)
		assert.Equal(t, int64(3000), validated.TotalCents)

		// Catalog price moves afterwards; the snapshot must not.
		p.PriceCents = 2000
		assert.Equal(t, int64(1000), validated.Items[0].UnitPriceCents)
		assert.Equal(t, int64(3000), validated.TotalCents)
	})
}
