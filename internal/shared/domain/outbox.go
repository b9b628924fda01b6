package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent representa un hecho pendiente de publicar en el broker.
// Se inserta en la misma transacción que el cambio de estado del agregado,
// de modo que el commit de dominio y el hecho son atómicos; la entrega al
// bus la hace el relayer después (at-least-once).
type OutboxEvent struct {
	ID            uuid.UUID   `json:"id"`
	AggregateType string      `json:"aggregate_type"` // ej. "order", "invoice", "product"
	AggregateID   string      `json:"aggregate_id"`   // clave de negocio: número de pedido/factura, sku
	EventType     string      `json:"event_type"`     // ej. "ORDER_CONFIRMED"
	CorrelationID string      `json:"correlation_id"` // identidad del cliente, para el sobre
	Payload       interface{} `json:"payload"`        // hecho JSON-serializable
	CreatedAt     time.Time   `json:"created_at"`
	Processed     bool        `json:"processed"`
}

// PartitionKey: el AggregateID es la clave de ordenación en el bus.
func (e OutboxEvent) PartitionKey() string { return e.AggregateID }

// OutboxRepository define el contrato mínimo que necesita el relayer.
type OutboxRepository interface {
	FetchPendingOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error
}
