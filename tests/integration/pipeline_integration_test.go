package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingApp "github.com/davicafu/tiendalab/internal/billing/application"
	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	billingEvents "github.com/davicafu/tiendalab/internal/billing/infra/inbound/events"
	notifApp "github.com/davicafu/tiendalab/internal/notification/application"
	notifEvents "github.com/davicafu/tiendalab/internal/notification/infra/inbound/events"
	orderApp "github.com/davicafu/tiendalab/internal/order/application"
	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedBusEvents "github.com/davicafu/tiendalab/internal/shared/infra/events"
	"github.com/davicafu/tiendalab/internal/shared/infra/relayer"
	"github.com/davicafu/tiendalab/tests/mocks"
)

// pipeline monta el flujo completo sobre el bus en memoria:
// pedidos → outbox → bus → facturación → outbox → bus → notificación.
type pipeline struct {
	orderService   *orderApp.OrderService
	invoiceService *billingApp.InvoiceService
	orderRepo      *mocks.InMemoryOrderRepo
	invoiceRepo    *mocks.InMemoryInvoiceRepo
	sender         *mocks.RecordingEmailSender
	orderWorker    *relayer.Worker
	billingWorker  *relayer.Worker
}

func newPipeline(t *testing.T, ctx context.Context) *pipeline {
	t.Helper()
	log := zap.NewNop()

	orderRepo := mocks.NewInMemoryOrderRepo()
	invoiceRepo := mocks.NewInMemoryInvoiceRepo()
	sender := mocks.NewRecordingEmailSender()

	orderService := orderApp.NewOrderService(orderRepo, "ORD", log)
	invoiceService := billingApp.NewInvoiceService(invoiceRepo, mocks.NewDummyCache(), nil,
		decimal.RequireFromString("0.20"), "INV", 30, log)
	dispatcher := notifApp.NewDispatcher(sender, log)

	bus := sharedBusEvents.NewInMemoryBus(log)
	bus.Subscribe(ctx, orderDomain.OrderTopic, billingEvents.NewOrderConsumer(invoiceService, log))
	bus.Subscribe(ctx, orderDomain.OrderTopic, notifEvents.NewOrderConsumer(dispatcher, log))
	bus.Subscribe(ctx, billingDomain.BillingTopic, notifEvents.NewInvoiceConsumer(dispatcher, log))

	registry := orderDomain.NewEventRegistry()
	for k, v := range billingDomain.NewEventRegistry() {
		registry[k] = v
	}

	return &pipeline{
		orderService:   orderService,
		invoiceService: invoiceService,
		orderRepo:      orderRepo,
		invoiceRepo:    invoiceRepo,
		sender:         sender,
		orderWorker:    relayer.NewOutboxWorker(orderRepo, bus, registry, time.Second, 10, log),
		billingWorker:  relayer.NewOutboxWorker(invoiceRepo, bus, registry, time.Second, 10, log),
	}
}

func testOrderItems() []orderDomain.OrderItem {
	return []orderDomain.OrderItem{
		{ProductName: "Teclado mecánico", ProductSKU: "SKU-001", Quantity: 2, UnitPrice: decimal.RequireFromString("500.00")},
	}
}

func TestPipeline_ConfirmedOrderProducesInvoiceAndEmails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx)
	year := time.Now().UTC().Year()

	order, err := p.orderService.CreateOrder(ctx, "cust-1", "cliente@example.com", testOrderItems(), nil)
	require.NoError(t, err)
	_, err = p.orderService.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)

	// Relevo de los hechos de pedido: facturación y notificación los consumen.
	p.orderWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		_, err := p.invoiceRepo.GetByOrderNumber(ctx, order.OrderNumber)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	inv, err := p.invoiceRepo.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD-%d-000001", year), order.OrderNumber)
	assert.Equal(t, fmt.Sprintf("INV-%d-000001", year), inv.InvoiceNumber)
	assert.Equal(t, billingDomain.InvoiceIssued, inv.Status)
	assert.True(t, inv.Subtotal.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, inv.TaxAmount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("1200.00")))
	assert.Equal(t, inv.IssueDate.AddDate(0, 0, 30), inv.DueDate)

	// Relevo del hecho de factura: notificación envía el correo.
	p.billingWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		// ORDER_CREATED + ORDER_CONFIRMED + INVOICE_CREATED
		return len(p.sender.Sent()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	subjects := make([]string, 0, 3)
	for _, mail := range p.sender.Sent() {
		assert.Equal(t, "cliente@example.com", mail.To)
		subjects = append(subjects, mail.Subject)
	}
	assert.Contains(t, subjects, fmt.Sprintf("Confirmación de pedido - %s", order.OrderNumber))
	assert.Contains(t, subjects, fmt.Sprintf("Pedido confirmado - %s", order.OrderNumber))
	assert.Contains(t, subjects, fmt.Sprintf("Factura %s - pedido %s", inv.InvoiceNumber, order.OrderNumber))
}

func TestPipeline_RedeliveryDoesNotDuplicateInvoice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx)

	order, err := p.orderService.CreateOrder(ctx, "cust-1", "cliente@example.com", testOrderItems(), nil)
	require.NoError(t, err)
	_, err = p.orderService.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)

	p.orderWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		_, err := p.invoiceRepo.GetByOrderNumber(ctx, order.OrderNumber)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	// Se fuerza la re-entrega reabriendo los eventos ya procesados.
	for i := range p.orderRepo.Outbox {
		p.orderRepo.Outbox[i].Processed = false
	}
	p.orderWorker.ProcessBatch(ctx)

	// La segunda entrega no crea segunda factura ni segundo hecho de factura.
	assert.Never(t, func() bool {
		return len(p.invoiceRepo.Invoices) > 1 || len(p.invoiceRepo.Outbox) > 1
	}, 300*time.Millisecond, 25*time.Millisecond)
}

func TestPipeline_CancelledOrderCancelsInvoice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, ctx)

	order, err := p.orderService.CreateOrder(ctx, "cust-1", "cliente@example.com", testOrderItems(), nil)
	require.NoError(t, err)
	_, err = p.orderService.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	p.orderWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		_, err := p.invoiceRepo.GetByOrderNumber(ctx, order.OrderNumber)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = p.orderService.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	p.orderWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		inv, err := p.invoiceRepo.GetByOrderNumber(ctx, order.OrderNumber)
		return err == nil && inv.Status == billingDomain.InvoiceCancelled
	}, 2*time.Second, 10*time.Millisecond)
}
