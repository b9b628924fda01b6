package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

const (
	InvoiceCreatedEvent       = "INVOICE_CREATED"
	InvoiceStatusUpdatedEvent = "INVOICE_STATUS_UPDATED"
)

const (
	BillingTopic  = "billing-events"
	BillingSource = "billing-service"
)

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	meta := sharedEvents.EventMetadata{
		Type:   reflect.TypeOf(sharedEvents.InvoiceFact{}),
		Topic:  BillingTopic,
		Source: BillingSource,
	}
	return map[string]sharedEvents.EventMetadata{
		InvoiceCreatedEvent:       meta,
		InvoiceStatusUpdatedEvent: meta,
	}
}
