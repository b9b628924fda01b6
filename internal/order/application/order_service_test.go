package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	"github.com/davicafu/tiendalab/tests/mocks"
)

func newTestService() (*OrderService, *mocks.InMemoryOrderRepo) {
	repo := mocks.NewInMemoryOrderRepo()
	return NewOrderService(repo, "ORD", zap.NewNop()), repo
}

func sampleItems() []orderDomain.OrderItem {
	return []orderDomain.OrderItem{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
	}
}

func TestCreateOrder_NumbersSequentially(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()
	year := time.Now().UTC().Year()

	first, err := service.CreateOrder(ctx, "cust-1", "a@example.com", sampleItems(), nil)
	require.NoError(t, err)
	second, err := service.CreateOrder(ctx, "cust-1", "a@example.com", sampleItems(), nil)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ORD-%d-000001", year), first.OrderNumber)
	assert.Equal(t, fmt.Sprintf("ORD-%d-000002", year), second.OrderNumber)
	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, orderDomain.OrderCreatedEvent, repo.Outbox[0].EventType)
}

func TestConfirmOrder_EmitsExactlyOneFact(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()

	order, err := service.CreateOrder(ctx, "cust-1", "a@example.com", sampleItems(), nil)
	require.NoError(t, err)

	confirmed, err := service.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderConfirmed, confirmed.Status)

	var confirmEvents int
	for _, evt := range repo.Outbox {
		if evt.EventType == orderDomain.OrderConfirmedEvent {
			confirmEvents++
			assert.Equal(t, order.OrderNumber, evt.AggregateID)
			assert.Equal(t, "cust-1", evt.CorrelationID)
		}
	}
	assert.Equal(t, 1, confirmEvents)
}

func TestInvalidTransition_EmitsNothing(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()

	order, err := service.CreateOrder(ctx, "cust-1", "a@example.com", sampleItems(), nil)
	require.NoError(t, err)
	before := len(repo.Outbox)

	// PENDING → DELIVERED no está en la tabla.
	_, err = service.DeliverOrder(ctx, order.ID)
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
	assert.Len(t, repo.Outbox, before)
}

func TestCancelOrder_AfterDeliveryRejected(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	order, err := service.CreateOrder(ctx, "cust-1", "a@example.com", sampleItems(), nil)
	require.NoError(t, err)

	_, err = service.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = service.ShipOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = service.DeliverOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = service.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
}

func TestToFact_SnapshotsOrder(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	addr := &orderDomain.ShippingAddress{FullName: "Ana Pérez", AddressLine1: "C/ Mayor 1", City: "Madrid", ZipCode: "28001", Country: "ES"}
	order, err := service.CreateOrder(ctx, "cust-7", "ana@example.com", sampleItems(), addr)
	require.NoError(t, err)

	fact := ToFact(order)
	assert.Equal(t, order.OrderNumber, fact.OrderNumber)
	assert.Equal(t, order.OrderNumber, fact.PartitionKey())
	assert.Equal(t, "ana@example.com", fact.CustomerEmail)
	require.NotNil(t, fact.ShippingAddress)
	assert.Equal(t, "Ana Pérez", fact.ShippingAddress.FullName)
	assert.True(t, fact.TotalAmount.Equal(decimal.RequireFromString("20.00")))
}
