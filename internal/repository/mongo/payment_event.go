package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

type paymentEventRepository struct {
	coll *mongo.Collection
}

// NewPaymentEventRepository creates the idempotency ledger backed by MongoDB.
// Requires the unique eventId index from EnsureIndexes.
func NewPaymentEventRepository(db *mongo.Database) repository.PaymentEventRepository {
	return &paymentEventRepository{coll: db.Collection(paymentEventsCollection)}
}

func (r *paymentEventRepository) Insert(ctx context.Context, e *entity.PaymentEvent) error {
	e.CreatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment event: %w", err)
	}
	return nil
}

func (r *paymentEventRepository) FindByEventID(ctx context.Context, eventID string) (*entity.PaymentEvent, error) {
	var e entity.PaymentEvent
	err := r.coll.FindOne(ctx, bson.M{"eventId": eventID}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment event: %w", err)
	}
	return &e, nil
}

func (r *paymentEventRepository) MarkProcessed(ctx context.Context, eventID string, errText string) error {
	set := bson.M{"processed": true, "processedAt": time.Now().UTC()}
	if errText != "" {
		set["error"] = errText
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"eventId": eventID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to mark payment event processed: %w", err)
	}
	return nil
}
