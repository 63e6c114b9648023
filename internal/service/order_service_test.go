package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
)

func activeProduct(id, name string, price float64, stock int) *entity.Product {
	return &entity.Product{ID: id, Name: name, Price: price, Currency: "USD", Stock: stock, IsActive: true}
}

func TestCreateOrder_ComputesTotal(t *testing.T) {
	products := newFakeProductRepo(
		activeProduct("p-a", "Lipstick", 29.99, 10),
		activeProduct("p-b", "Brush", 10.00, 5),
	)
	svc := NewOrderService(newFakeOrderRepo(), products)

	order, err := svc.Create(context.Background(), "usr-1", []OrderItemRequest{
		{ProductID: "p-a", Quantity: 2},
		{ProductID: "p-b", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 69.98, order.Total)
	assert.Equal(t, entity.OrderCreated, order.Status)
	assert.Equal(t, "usr-1", order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 59.98, order.Items[0].Subtotal)
	assert.Equal(t, "Lipstick", order.Items[0].ProductName)
	assert.Equal(t, 29.99, order.Items[0].UnitPrice)
	assert.Equal(t, 10.00, order.Items[1].Subtotal)

	assert.Equal(t, 8, products.stock("p-a"))
	assert.Equal(t, 4, products.stock("p-b"))
}

func TestCreateOrder_RoundsWithoutFloatDrift(t *testing.T) {
	// 0.1 * 3 is 0.30000000000000004 in naive float arithmetic.
	products := newFakeProductRepo(activeProduct("p-a", "Sample", 0.1, 10))
	svc := NewOrderService(newFakeOrderRepo(), products)

	order, err := svc.Create(context.Background(), "usr-1", []OrderItemRequest{{ProductID: "p-a", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, 0.3, order.Total)
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		product  *entity.Product
		items    []OrderItemRequest
		wantKind apperr.Kind
	}{
		{
			name:     "no items",
			product:  activeProduct("p-a", "Lipstick", 29.99, 10),
			items:    nil,
			wantKind: apperr.Validation,
		},
		{
			name:     "zero quantity",
			product:  activeProduct("p-a", "Lipstick", 29.99, 10),
			items:    []OrderItemRequest{{ProductID: "p-a", Quantity: 0}},
			wantKind: apperr.Validation,
		},
		{
			name:     "unknown product",
			product:  activeProduct("p-a", "Lipstick", 29.99, 10),
			items:    []OrderItemRequest{{ProductID: "missing", Quantity: 1}},
			wantKind: apperr.NotFound,
		},
		{
			name:     "inactive product",
			product:  &entity.Product{ID: "p-a", Name: "Old", Price: 5, Stock: 10, IsActive: false},
			items:    []OrderItemRequest{{ProductID: "p-a", Quantity: 1}},
			wantKind: apperr.ProductUnavailable,
		},
		{
			name:     "insufficient stock",
			product:  activeProduct("p-a", "Lipstick", 29.99, 1),
			items:    []OrderItemRequest{{ProductID: "p-a", Quantity: 2}},
			wantKind: apperr.InsufficientStock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewOrderService(newFakeOrderRepo(), newFakeProductRepo(tt.product))
			_, err := svc.Create(context.Background(), "usr-1", tt.items)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

// Items after a failing item are never decremented; items before it stay
// decremented (no cross-item transaction, no compensation).
func TestCreateOrder_NoDecrementPastFailingItem(t *testing.T) {
	products := newFakeProductRepo(
		activeProduct("p-first", "First", 5, 10),
		activeProduct("p-fails", "Fails", 5, 1),
		activeProduct("p-after", "After", 5, 10),
	)
	svc := NewOrderService(newFakeOrderRepo(), products)

	_, err := svc.Create(context.Background(), "usr-1", []OrderItemRequest{
		{ProductID: "p-first", Quantity: 2},
		{ProductID: "p-fails", Quantity: 5},
		{ProductID: "p-after", Quantity: 1},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.InsufficientStock, apperr.KindOf(err))

	assert.Equal(t, 8, products.stock("p-first"), "item before the failure stays decremented")
	assert.Equal(t, 1, products.stock("p-fails"), "failing item is untouched")
	assert.Equal(t, 10, products.stock("p-after"), "item after the failure is never reached")
}

func TestFindByIDForUser_Ownership(t *testing.T) {
	order := &entity.Order{ID: "ord-1", UserID: "usr-1", Status: entity.OrderCreated}
	svc := NewOrderService(newFakeOrderRepo(order), newFakeProductRepo())

	t.Run("owner can read", func(t *testing.T) {
		got, err := svc.FindByIDForUser(context.Background(), "ord-1", "usr-1", entity.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "ord-1", got.ID)
	})

	t.Run("other user forbidden", func(t *testing.T) {
		_, err := svc.FindByIDForUser(context.Background(), "ord-1", "usr-2", entity.RoleUser)
		require.Error(t, err)
		assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	})

	t.Run("admin can read anyone's", func(t *testing.T) {
		got, err := svc.FindByIDForUser(context.Background(), "ord-1", "usr-2", entity.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, "ord-1", got.ID)
	})

	t.Run("unknown order not found", func(t *testing.T) {
		_, err := svc.FindByIDForUser(context.Background(), "missing", "usr-1", entity.RoleUser)
		require.Error(t, err)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestSetStatus_BlindOverwrite(t *testing.T) {
	// The transition function has no guard on the current status: a FAILED
	// order can be overwritten. Documented last-writer-wins behavior.
	order := &entity.Order{ID: "ord-1", UserID: "usr-1", Status: entity.OrderFailed}
	svc := NewOrderService(newFakeOrderRepo(order), newFakeProductRepo())

	updated, err := svc.MarkAsPaid(context.Background(), "ord-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)
}

func TestFindByTransactionID_AbsentIsNil(t *testing.T) {
	svc := NewOrderService(newFakeOrderRepo(), newFakeProductRepo())
	order, err := svc.FindByTransactionID(context.Background(), "txn_missing")
	require.NoError(t, err)
	assert.Nil(t, order)
}
