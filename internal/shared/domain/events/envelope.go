package events

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Envelope es el sobre canónico que envuelve todo hecho de dominio publicado
// en el bus. Es inmutable: se construye una vez y se serializa tal cual.
//
// EventID es único por intento de publicación; una re-entrega del broker puede
// llegar con otro EventID, así que los consumidores deduplican por clave de
// negocio (número de pedido / factura), nunca por EventID.
type Envelope struct {
	EventID        uuid.UUID       `json:"event_id"`
	EventType      string          `json:"event_type"`
	Timestamp      time.Time       `json:"timestamp"`
	Source         string          `json:"source"`
	Payload        json.RawMessage `json:"payload"`
	CorrelationKey string          `json:"correlation_key"` // identidad del cliente dueño del hecho
}

// NewEnvelope construye un sobre con id fresco y timestamp actual.
// Función pura salvo por el reloj y el generador de uuid; sin efectos.
func NewEnvelope(eventType, source string, payload interface{}, correlationKey string) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:        uuid.New(),
		EventType:      eventType,
		Timestamp:      time.Now().UTC(),
		Source:         source,
		Payload:        data,
		CorrelationKey: correlationKey,
	}, nil
}

// EventMetadata describe un tipo de evento registrado: el tipo Go de su
// payload, el topic donde se publica y el componente que lo origina.
type EventMetadata struct {
	Type   reflect.Type
	Topic  string
	Source string
}
