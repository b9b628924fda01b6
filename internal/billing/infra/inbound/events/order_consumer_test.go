package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingApp "github.com/davicafu/tiendalab/internal/billing/application"
	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	"github.com/davicafu/tiendalab/tests/mocks"
)

func newTestConsumer() (*OrderConsumer, *mocks.InMemoryInvoiceRepo) {
	repo := mocks.NewInMemoryInvoiceRepo()
	service := billingApp.NewInvoiceService(repo, mocks.NewDummyCache(), nil,
		decimal.RequireFromString("0.20"), "INV", 30, zap.NewNop())
	return NewOrderConsumer(service, zap.NewNop()), repo
}

func envelopeBytes(t *testing.T, eventType string, fact sharedEvents.OrderFact) []byte {
	t.Helper()
	env, err := sharedEvents.NewEnvelope(eventType, orderDomain.OrderSource, fact, fact.CustomerID)
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func orderFact(orderNumber, status string) sharedEvents.OrderFact {
	return sharedEvents.OrderFact{
		OrderNumber:   orderNumber,
		CustomerID:    "cust-1",
		CustomerEmail: "cust@example.com",
		Status:        status,
		TotalAmount:   decimal.RequireFromString("500.00"),
	}
}

func TestHandleMessage_OrderConfirmedCreatesInvoice(t *testing.T) {
	consumer, repo := newTestConsumer()
	fact := orderFact("ORD-2025-000001", "CONFIRMED")

	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderConfirmedEvent, fact))

	require.Len(t, repo.Invoices, 1)
	inv, err := repo.GetByOrderNumber(context.Background(), fact.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, billingDomain.InvoiceIssued, inv.Status)
}

func TestHandleMessage_RedeliveryProducesNoSecondInvoice(t *testing.T) {
	consumer, repo := newTestConsumer()
	fact := orderFact("ORD-2025-000002", "CONFIRMED")
	payload := envelopeBytes(t, orderDomain.OrderConfirmedEvent, fact)

	consumer.HandleMessage(context.Background(), fact.OrderNumber, payload)
	// El broker re-entrega el mismo hecho con otro sobre.
	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderConfirmedEvent, fact))

	assert.Len(t, repo.Invoices, 1)
	assert.Len(t, repo.Outbox, 1)
}

func TestHandleMessage_OrderCancelledCancelsInvoice(t *testing.T) {
	consumer, repo := newTestConsumer()
	fact := orderFact("ORD-2025-000003", "CONFIRMED")

	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderConfirmedEvent, fact))
	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderCancelledEvent, orderFact(fact.OrderNumber, "CANCELLED")))

	inv, err := repo.GetByOrderNumber(context.Background(), fact.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, billingDomain.InvoiceCancelled, inv.Status)
}

func TestHandleMessage_CancelledWithoutInvoiceIsIgnored(t *testing.T) {
	consumer, repo := newTestConsumer()
	fact := orderFact("ORD-2025-000004", "CANCELLED")

	// Cancelación de un pedido que nunca se confirmó: no hay factura y no pasa nada.
	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderCancelledEvent, fact))

	assert.Empty(t, repo.Invoices)
}

func TestHandleMessage_IgnoresIrrelevantAndUnknownTypes(t *testing.T) {
	consumer, repo := newTestConsumer()
	fact := orderFact("ORD-2025-000005", "SHIPPED")

	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, orderDomain.OrderShippedEvent, fact))
	consumer.HandleMessage(context.Background(), fact.OrderNumber,
		envelopeBytes(t, "SOMETHING_NEW", fact))

	assert.Empty(t, repo.Invoices)
	assert.Empty(t, repo.Outbox)
}

func TestHandleMessage_MalformedPayloadIsSwallowed(t *testing.T) {
	consumer, repo := newTestConsumer()

	consumer.HandleMessage(context.Background(), "key", []byte("{not json"))

	assert.Empty(t, repo.Invoices)
}
