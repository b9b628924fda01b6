package bus

import (
	"context"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// Keyer expone la clave de partición de un hecho. El orden relativo solo se
// garantiza entre hechos que comparten clave.
type Keyer interface {
	PartitionKey() string
}

// EventPublisher es la capacidad de publicación que se inyecta a los
// componentes; nunca dependen de un cliente de broker concreto.
// La entrega es at-least-once por grupo de consumidores.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, env sharedEvents.Envelope) error
}

// MessageHandler procesa un mensaje entrante ya deserializado a bytes.
// El handler debe ser idempotente respecto a la clave de negocio: una
// re-entrega del mismo hecho lógico no puede producir efectos adicionales.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}
