package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautystore/backend/internal/entity"
)

func TestIdempotencyGate_Claim(t *testing.T) {
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_1", EventType: entity.EventPaymentSuccess}

	t.Run("first claim wins", func(t *testing.T) {
		events := newFakeEventRepo()
		gate := NewIdempotencyGate(events)

		outcome, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, Claimed, outcome)

		stored, _ := events.FindByEventID(context.Background(), "evt_1")
		require.NotNil(t, stored)
		assert.False(t, stored.Processed)
		assert.Equal(t, "txn_1", stored.TransactionID)
	})

	t.Run("processed row short-circuits", func(t *testing.T) {
		events := newFakeEventRepo()
		gate := NewIdempotencyGate(events)
		_, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)
		require.NoError(t, events.MarkProcessed(context.Background(), "evt_1", ""))

		outcome, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, AlreadyProcessed, outcome)
	})

	t.Run("unprocessed row means another claimer holds it", func(t *testing.T) {
		events := newFakeEventRepo()
		gate := NewIdempotencyGate(events)
		_, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)

		outcome, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, AlreadyClaiming, outcome)
	})

	t.Run("distinct event ids claim independently", func(t *testing.T) {
		events := newFakeEventRepo()
		gate := NewIdempotencyGate(events)
		_, err := gate.Claim(context.Background(), payload)
		require.NoError(t, err)

		other := &entity.WebhookPayload{EventID: "evt_2", TransactionID: "txn_1", EventType: entity.EventPaymentSuccess}
		outcome, err := gate.Claim(context.Background(), other)
		require.NoError(t, err)
		assert.Equal(t, Claimed, outcome)
	})
}
