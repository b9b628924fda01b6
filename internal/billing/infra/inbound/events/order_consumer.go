package events

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
	sharedUtils "github.com/davicafu/tiendalab/internal/shared/infra/utils"
)

// InvoiceService es lo que el consumidor necesita de la aplicación.
type InvoiceService interface {
	CreateInvoiceFromOrderFact(ctx context.Context, fact sharedEvents.OrderFact) (*billingDomain.Invoice, error)
	CancelInvoiceForOrder(ctx context.Context, orderNumber string) error
}

// OrderConsumer reacciona a los hechos de pedido que interesan a
// facturación: ORDER_CONFIRMED crea factura, ORDER_CANCELLED la cancela
// salvo que esté pagada. El resto del vocabulario se ignora.
//
// El resultado de cada invocación es un error explícito que se decide y
// registra aquí, en el borde del consumidor; nunca escapa al bucle de
// consumo. No hay reintentos ni dead-letter: la robustez descansa en la
// re-entrega del broker más la idempotencia por clave de negocio.
type OrderConsumer struct {
	service InvoiceService
	log     *zap.Logger
}

func NewOrderConsumer(service InvoiceService, log *zap.Logger) *OrderConsumer {
	return &OrderConsumer{service: service, log: log}
}

var _ sharedBus.MessageHandler = (*OrderConsumer)(nil)

func (c *OrderConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.log.Warn("Failed to unmarshal envelope", zap.String("key", key), zap.Error(err))
		return
	}

	switch env.EventType {
	case orderDomain.OrderConfirmedEvent:
		sharedUtils.UnmarshalAndHandle[sharedEvents.OrderFact](c.log, env.Payload, func(fact sharedEvents.OrderFact) {
			c.logOutcome(c.handleOrderConfirmed(ctx, fact), env.EventType, fact.OrderNumber)
		})

	case orderDomain.OrderCancelledEvent:
		sharedUtils.UnmarshalAndHandle[sharedEvents.OrderFact](c.log, env.Payload, func(fact sharedEvents.OrderFact) {
			c.logOutcome(c.handleOrderCancelled(ctx, fact), env.EventType, fact.OrderNumber)
		})

	case orderDomain.OrderCreatedEvent, orderDomain.OrderShippedEvent, orderDomain.OrderDeliveredEvent:
		// Hechos conocidos que no disparan reacción en facturación.
		c.log.Debug("Event type not handled by billing", zap.String("event_type", env.EventType))

	default:
		// Consumidor forward-compatible: un tipo desconocido jamás falla.
		c.log.Warn("Unknown event type", zap.String("event_type", env.EventType))
	}
}

func (c *OrderConsumer) handleOrderConfirmed(ctx context.Context, fact sharedEvents.OrderFact) error {
	_, err := c.service.CreateInvoiceFromOrderFact(ctx, fact)
	if errors.Is(err, billingDomain.ErrInvoiceAlreadyExists) {
		// Re-entrega del mismo hecho lógico: resultado esperado, no error.
		c.log.Info("Duplicate ORDER_CONFIRMED ignored, invoice already exists",
			zap.String("order_number", fact.OrderNumber),
		)
		return nil
	}
	return err
}

func (c *OrderConsumer) handleOrderCancelled(ctx context.Context, fact sharedEvents.OrderFact) error {
	err := c.service.CancelInvoiceForOrder(ctx, fact.OrderNumber)
	if errors.Is(err, billingDomain.ErrInvoiceNotFound) {
		// El pedido se canceló antes de confirmarse: no hay factura.
		c.log.Info("No invoice for cancelled order", zap.String("order_number", fact.OrderNumber))
		return nil
	}
	return err
}

func (c *OrderConsumer) logOutcome(err error, eventType, orderNumber string) {
	if err != nil {
		c.log.Error("Failed to process order event",
			zap.String("event_type", eventType),
			zap.String("order_number", orderNumber),
			zap.Error(err),
		)
		return
	}
	c.log.Info("📬 Order event processed",
		zap.String("event_type", eventType),
		zap.String("order_number", orderNumber),
	)
}
