package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
	sharedUtils "github.com/davicafu/tiendalab/internal/shared/infra/utils"
)

// Dispatcher es lo que los consumidores necesitan de la aplicación.
type Dispatcher interface {
	NotifyOrderEvent(eventType string, fact sharedEvents.OrderFact)
	NotifyInvoiceEvent(eventType string, fact sharedEvents.InvoiceFact)
}

// OrderConsumer escucha order-events y delega la composición de correos
// en el despachador. Todo el vocabulario de pedido tiene plantilla, así
// que aquí no se filtra por tipo: el despachador decide.
type OrderConsumer struct {
	dispatcher Dispatcher
	log        *zap.Logger
}

func NewOrderConsumer(dispatcher Dispatcher, log *zap.Logger) *OrderConsumer {
	return &OrderConsumer{dispatcher: dispatcher, log: log}
}

var _ sharedBus.MessageHandler = (*OrderConsumer)(nil)

func (c *OrderConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.log.Warn("Failed to unmarshal envelope", zap.String("key", key), zap.Error(err))
		return
	}

	c.log.Info("📬 Received order event",
		zap.String("event_type", env.EventType),
		zap.String("key", key),
	)

	sharedUtils.UnmarshalAndHandle[sharedEvents.OrderFact](c.log, env.Payload, func(fact sharedEvents.OrderFact) {
		c.dispatcher.NotifyOrderEvent(env.EventType, fact)
	})
}

// InvoiceConsumer escucha billing-events para avisar de facturas emitidas.
type InvoiceConsumer struct {
	dispatcher Dispatcher
	log        *zap.Logger
}

func NewInvoiceConsumer(dispatcher Dispatcher, log *zap.Logger) *InvoiceConsumer {
	return &InvoiceConsumer{dispatcher: dispatcher, log: log}
}

var _ sharedBus.MessageHandler = (*InvoiceConsumer)(nil)

func (c *InvoiceConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.log.Warn("Failed to unmarshal envelope", zap.String("key", key), zap.Error(err))
		return
	}

	c.log.Info("📬 Received billing event",
		zap.String("event_type", env.EventType),
		zap.String("key", key),
	)

	sharedUtils.UnmarshalAndHandle[sharedEvents.InvoiceFact](c.log, env.Payload, func(fact sharedEvents.InvoiceFact) {
		c.dispatcher.NotifyInvoiceEvent(env.EventType, fact)
	})
}
