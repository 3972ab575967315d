package nats

import (
	"encoding/json"
	"testing"
	"time"

	"gym-saas-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := events.NewSubscriptionEvent(events.SubscriptionActivated, "admin-1", map[string]interface{}{"payment_id": "pay_1"}, at)

	data, err := json.Marshal(events.ToEnvelope(ev))
	require.NoError(t, err)

	decoded, err := Decode("events.subscription.activated", data)
	require.NoError(t, err)
	assert.Equal(t, events.SubscriptionActivated, decoded.EventType())
	assert.Equal(t, "admin-1", decoded.Payload()["admin_id"])
	assert.True(t, at.Equal(decoded.Timestamp()))
}

func TestDecodeFallsBackToSubject(t *testing.T) {
	decoded, err := Decode("events.subscription.expired", []byte(`{"data":{"admin_id":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, "subscription.expired", decoded.EventType())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("events.x", []byte("not json"))
	assert.Error(t, err)
}
