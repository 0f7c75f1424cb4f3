package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := OrderCreatedPayload{
		OrderID:    "abc-123",
		UserID:     1,
		Items:      []ItemQty{{ProductID: 10, Qty: 3}},
		TotalCents: 3000,
	}

	env, err := NewEnvelope(EventOrderCreated, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventOrderCreated, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "minishop-be", env.Producer)
	assert.False(t, env.OccurredAt.IsZero())

	var got OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, payload, got)
}

func TestNewEnvelope_UniqueIDs(t *testing.T) {
	a, err := NewEnvelope(EventOrderStatusChanged, OrderStatusChangedPayload{OrderID: "x"})
	require.NoError(t, err)
	b, err := NewEnvelope(EventOrderStatusChanged, OrderStatusChangedPayload{OrderID: "x"})
	require.NoError(t, err)

	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	env, err := NewEnvelope(EventOrderCreated, OrderCreatedPayload{OrderID: "x"})
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), "x", env))
	assert.NoError(t, p.Close())
}

func TestKafkaPublisher_Close(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "order.events")
	assert.NoError(t, p.Close())
}
