package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems() []OrderItem {
	return []OrderItem{
		{
			ProductID:   uuid.New(),
			ProductName: "Teclado mecánico",
			ProductSKU:  "KB-001",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("45.50"),
		},
		{
			ProductID:   uuid.New(),
			ProductName: "Ratón",
			ProductSKU:  "MS-001",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("19.99"),
		},
	}
}

func TestNewOrder_ComputesTotals(t *testing.T) {
	order, err := NewOrder("ORD-2025-000001", "cust-1", "cust@example.com", testItems(), nil)
	require.NoError(t, err)

	assert.Equal(t, OrderPending, order.Status)
	// 2×45.50 + 1×19.99
	assert.True(t, order.Items[0].TotalPrice.Equal(decimal.RequireFromString("91.00")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("110.99")))
}

func TestNewOrder_Invalid(t *testing.T) {
	_, err := NewOrder("ORD-2025-000001", "cust-1", "cust@example.com", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	items := testItems()
	items[0].Quantity = 0
	_, err = NewOrder("ORD-2025-000001", "cust-1", "cust@example.com", items, nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestOrderStatus_TransitionTable(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled}
	legal := map[OrderStatus][]OrderStatus{
		OrderPending:   {OrderConfirmed, OrderCancelled},
		OrderConfirmed: {OrderShipped, OrderCancelled},
		OrderShipped:   {OrderDelivered, OrderCancelled},
		OrderDelivered: {},
		OrderCancelled: {},
	}

	for from, allowed := range legal {
		allowedSet := make(map[OrderStatus]bool)
		for _, to := range allowed {
			allowedSet[to] = true
		}
		for _, to := range all {
			assert.Equal(t, allowedSet[to], from.CanTransition(to),
				"transición %s → %s", from, to)
		}
	}
}

func TestOrder_Lifecycle(t *testing.T) {
	order, err := NewOrder("ORD-2025-000002", "cust-1", "cust@example.com", testItems(), nil)
	require.NoError(t, err)

	require.NoError(t, order.Confirm())
	assert.NotNil(t, order.ConfirmedAt)

	require.NoError(t, order.Ship())
	require.NoError(t, order.Deliver())
	assert.Equal(t, OrderDelivered, order.Status)

	// Un pedido entregado no puede cancelarse.
	assert.ErrorIs(t, order.Cancel(), ErrInvalidTransition)
}

func TestOrder_CancelBeforeDelivery(t *testing.T) {
	order, err := NewOrder("ORD-2025-000003", "cust-1", "cust@example.com", testItems(), nil)
	require.NoError(t, err)

	require.NoError(t, order.Confirm())
	require.NoError(t, order.Cancel())
	assert.Equal(t, OrderCancelled, order.Status)
	assert.NotNil(t, order.CancelledAt)

	// CANCELLED es terminal.
	assert.ErrorIs(t, order.Ship(), ErrInvalidTransition)
}

func TestOrder_SkipStatesRejected(t *testing.T) {
	order, err := NewOrder("ORD-2025-000004", "cust-1", "cust@example.com", testItems(), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, order.Ship(), ErrInvalidTransition)
	assert.ErrorIs(t, order.Deliver(), ErrInvalidTransition)
}
