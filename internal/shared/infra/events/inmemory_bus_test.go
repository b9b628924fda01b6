package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
)

// collectingHandler acumula los sobres recibidos, en orden de llegada.
type collectingHandler struct {
	mu       sync.Mutex
	received []sharedEvents.Envelope
}

func (h *collectingHandler) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	h.mu.Lock()
	h.received = append(h.received, env)
	h.mu.Unlock()
}

func (h *collectingHandler) snapshot() []sharedEvents.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]sharedEvents.Envelope, len(h.received))
	copy(out, h.received)
	return out
}

func publishFact(t *testing.T, bus *InMemoryBus, topic, orderNumber string) {
	t.Helper()
	env, err := sharedEvents.NewEnvelope("ORDER_CREATED", "order-service",
		sharedEvents.OrderFact{OrderNumber: orderNumber}, "cust-1")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), topic, orderNumber, env))
}

func TestInMemoryBus_DeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemoryBus(zap.NewNop())
	handler := &collectingHandler{}
	bus.Subscribe(ctx, "order-events", handler)

	for i := 1; i <= 5; i++ {
		publishFact(t, bus, "order-events", fmt.Sprintf("ORD-2025-%06d", i))
	}

	require.Eventually(t, func() bool {
		return len(handler.snapshot()) == 5
	}, time.Second, 5*time.Millisecond)

	for i, env := range handler.snapshot() {
		var fact sharedEvents.OrderFact
		require.NoError(t, json.Unmarshal(env.Payload, &fact))
		assert.Equal(t, fmt.Sprintf("ORD-2025-%06d", i+1), fact.OrderNumber)
	}
}

func TestInMemoryBus_FanOutToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemoryBus(zap.NewNop())
	first := &collectingHandler{}
	second := &collectingHandler{}
	bus.Subscribe(ctx, "order-events", first)
	bus.Subscribe(ctx, "order-events", second)

	publishFact(t, bus, "order-events", "ORD-2025-000001")

	require.Eventually(t, func() bool {
		return len(first.snapshot()) == 1 && len(second.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryBus_TopicsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemoryBus(zap.NewNop())
	orders := &collectingHandler{}
	invoices := &collectingHandler{}
	bus.Subscribe(ctx, "order-events", orders)
	bus.Subscribe(ctx, "invoice-events", invoices)

	publishFact(t, bus, "order-events", "ORD-2025-000001")

	require.Eventually(t, func() bool {
		return len(orders.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, invoices.snapshot())
}

func TestInMemoryBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop())

	// Un topic sin suscriptores acepta la publicación sin bloquear.
	publishFact(t, bus, "ghost-topic", "ORD-2025-000001")
}
