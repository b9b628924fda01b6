package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// Vocabulario de hechos del pedido. Cada transición publica exactamente uno.
const (
	OrderCreatedEvent   = "ORDER_CREATED"
	OrderConfirmedEvent = "ORDER_CONFIRMED"
	OrderShippedEvent   = "ORDER_SHIPPED"
	OrderDeliveredEvent = "ORDER_DELIVERED"
	OrderCancelledEvent = "ORDER_CANCELLED"
)

const (
	OrderTopic  = "order-events"
	OrderSource = "order-service"
)

// NewEventRegistry registra los hechos del pedido: todos viajan como
// OrderFact por el topic order-events.
func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	meta := sharedEvents.EventMetadata{
		Type:   reflect.TypeOf(sharedEvents.OrderFact{}),
		Topic:  OrderTopic,
		Source: OrderSource,
	}
	return map[string]sharedEvents.EventMetadata{
		OrderCreatedEvent:   meta,
		OrderConfirmedEvent: meta,
		OrderShippedEvent:   meta,
		OrderDeliveredEvent: meta,
		OrderCancelledEvent: meta,
	}
}
