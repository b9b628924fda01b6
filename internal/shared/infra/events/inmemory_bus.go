package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

type busMessage struct {
	key   string
	value []byte
}

// InMemoryBus implementa el bus de eventos con canales de Go, multi-topic.
// Cada suscriptor consume su canal en una única goroutine, de modo que los
// mensajes de un topic le llegan en orden de publicación (ordenación más
// fuerte que la de Kafka, que solo la garantiza por partición).
// Pensado para despliegues locales y tests.
type InMemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]chan busMessage
	log  *zap.Logger
}

var _ sharedBus.EventPublisher = (*InMemoryBus)(nil)

func NewInMemoryBus(log *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[string][]chan busMessage),
		log:  log,
	}
}

// Publish serializa el sobre y lo entrega a todos los suscriptores del topic.
// El envío bloquea hasta que el canal del suscriptor acepta el mensaje o el
// contexto se cancela: no se pierden mensajes en proceso.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, key string, env sharedEvents.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- busMessage{key: key, value: data}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registra un handler para un topic y arranca su bucle de consumo.
func (b *InMemoryBus) Subscribe(ctx context.Context, topic string, handler sharedBus.MessageHandler) {
	ch := make(chan busMessage, 64)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.log.Info("In-memory subscriber stopped", zap.String("topic", topic))
				return
			case msg := <-ch:
				handler.HandleMessage(ctx, msg.key, msg.value)
			}
		}
	}()
}
