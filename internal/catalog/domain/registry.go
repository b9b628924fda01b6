package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

const (
	ProductCreatedEvent = "PRODUCT_CREATED"
	ProductUpdatedEvent = "PRODUCT_UPDATED"
	ProductDeletedEvent = "PRODUCT_DELETED"
)

const (
	ProductTopic  = "product-events"
	ProductSource = "product-service"
)

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	meta := sharedEvents.EventMetadata{
		Type:   reflect.TypeOf(sharedEvents.ProductFact{}),
		Topic:  ProductTopic,
		Source: ProductSource,
	}
	return map[string]sharedEvents.EventMetadata{
		ProductCreatedEvent: meta,
		ProductUpdatedEvent: meta,
		ProductDeletedEvent: meta,
	}
}
