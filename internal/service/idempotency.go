package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

// ClaimOutcome is the result of attempting to claim a webhook event id.
type ClaimOutcome int

const (
	// Claimed means this caller owns the event and must process it, then
	// mark it processed.
	Claimed ClaimOutcome = iota
	// AlreadyProcessed means a prior delivery completed; short-circuit with
	// success and repeat no side effects.
	AlreadyProcessed
	// AlreadyClaiming means another delivery holds the claim right now (or
	// a prior claimer has not finished); short-circuit with success without
	// waiting; at-least-once delivery means the work will complete.
	AlreadyClaiming
)

// IdempotencyGate claims a unique event id exactly once across concurrent
// and duplicate deliveries. The unique index on the ledger's eventId column
// is the only lock involved, so the guarantee holds across server instances.
type IdempotencyGate struct {
	events repository.PaymentEventRepository
}

// NewIdempotencyGate creates a gate over the durable event ledger.
func NewIdempotencyGate(events repository.PaymentEventRepository) *IdempotencyGate {
	return &IdempotencyGate{events: events}
}

// Claim inserts the ledger row for the event. Exactly one concurrent caller
// per event id observes Claimed; the rest observe a terminal short-circuit.
func (g *IdempotencyGate) Claim(ctx context.Context, payload *entity.WebhookPayload) (ClaimOutcome, error) {
	existing, err := g.events.FindByEventID(ctx, payload.EventID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up payment event: %w", err)
	}
	if existing != nil {
		if existing.Processed {
			return AlreadyProcessed, nil
		}
		return AlreadyClaiming, nil
	}

	event := &entity.PaymentEvent{
		EventID:       payload.EventID,
		TransactionID: payload.TransactionID,
		EventType:     payload.EventType,
		Payload:       payload.Data,
		Processed:     false,
	}
	if err := g.events.Insert(ctx, event); err != nil {
		// Lost the insert race: another request claimed the id between our
		// lookup and insert.
		if errors.Is(err, repository.ErrDuplicateEvent) {
			return AlreadyClaiming, nil
		}
		return 0, fmt.Errorf("failed to insert payment event: %w", err)
	}
	return Claimed, nil
}
