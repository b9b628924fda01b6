package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	fact := OrderFact{
		OrderNumber: "ORD-2025-000001",
		CustomerID:  "cust-1",
		TotalAmount: decimal.RequireFromString("110.99"),
	}

	env, err := NewEnvelope("ORDER_CREATED", "order-service", fact, fact.CustomerID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, env.EventID)
	assert.Equal(t, "ORDER_CREATED", env.EventType)
	assert.Equal(t, "order-service", env.Source)
	assert.Equal(t, "cust-1", env.CorrelationKey)
	assert.WithinDuration(t, time.Now().UTC(), env.Timestamp, time.Second)

	var decoded OrderFact
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, fact.OrderNumber, decoded.OrderNumber)
	assert.True(t, fact.TotalAmount.Equal(decoded.TotalAmount))
}

func TestNewEnvelope_FreshIDPerAttempt(t *testing.T) {
	fact := OrderFact{OrderNumber: "ORD-2025-000002"}

	// El mismo hecho lógico publicado dos veces lleva sobres distintos;
	// la deduplicación queda del lado del consumidor, por clave de negocio.
	first, err := NewEnvelope("ORDER_CONFIRMED", "order-service", fact, "cust-1")
	require.NoError(t, err)
	second, err := NewEnvelope("ORDER_CONFIRMED", "order-service", fact, "cust-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.EventID, second.EventID)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
}

func TestNewEnvelope_UnserializablePayload(t *testing.T) {
	_, err := NewEnvelope("ORDER_CREATED", "order-service", make(chan int), "cust-1")
	assert.Error(t, err)
}

func TestEnvelope_JSONRoundTrip(t *testing.T) {
	env, err := NewEnvelope("ORDER_SHIPPED", "order-service", OrderFact{OrderNumber: "ORD-2025-000003"}, "cust-2")
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.EventID, decoded.EventID)
	assert.Equal(t, env.EventType, decoded.EventType)
	assert.Equal(t, env.CorrelationKey, decoded.CorrelationKey)
	assert.JSONEq(t, string(env.Payload), string(decoded.Payload))
}
