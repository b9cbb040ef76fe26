package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	data := map[string]any{"user_id": "user-1", "item_count": 3}

	ev, err := NewEvent("storefront.cart.updated", "user-1", "cart", "storefront", data)
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "storefront.cart.updated", ev.EventType)
	assert.Equal(t, "user-1", ev.AggregateID)
	assert.Equal(t, "cart", ev.AggregateType)
	assert.Equal(t, "storefront", ev.Source)
	assert.Equal(t, 1, ev.Version)
	assert.False(t, ev.Timestamp.IsZero())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &decoded))
	assert.Equal(t, "user-1", decoded["user_id"])
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "a", "b", "c", make(chan int))
	require.Error(t, err)
}

func TestEvent_RoundTrip(t *testing.T) {
	ev, err := NewEvent("storefront.order.submitted", "sub-1", "order_submission", "storefront", map[string]string{"order_number": "ORD-9"})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1").WithMetadata("attempt", "1")

	raw, err := ev.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "1", got.Metadata["attempt"])
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{{nope"))
	assert.Error(t, err)
}
