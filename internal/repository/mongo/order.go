package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

type orderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository creates an OrderRepository backed by MongoDB.
func NewOrderRepository(db *mongo.Database) repository.OrderRepository {
	return &orderRepository{coll: db.Collection(ordersCollection)}
}

func (r *orderRepository) Insert(ctx context.Context, o *entity.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *orderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Order, error) {
	return r.findOne(ctx, bson.M{"transactionId": transactionID})
}

func (r *orderRepository) findOne(ctx context.Context, filter bson.M) (*entity.Order, error) {
	var o entity.Order
	err := r.coll.FindOne(ctx, filter).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

func (r *orderRepository) Find(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	page := filter.Page.Normalize()
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page.Page - 1) * page.Limit)).
		SetLimit(int64(page.Limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []entity.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus is deliberately a blind $set keyed by order id: no guard on
// the current status, last writer wins. Callers sequence transitions by
// construction of their own call graph.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, fields repository.StatusFields) (*entity.Order, error) {
	set := bson.M{"status": status, "updatedAt": time.Now().UTC()}
	if fields.TransactionID != nil {
		set["transactionId"] = *fields.TransactionID
	}
	if fields.ReceiptKey != nil {
		set["receiptKey"] = *fields.ReceiptKey
	}
	if fields.ReceiptURL != nil {
		set["receiptUrl"] = *fields.ReceiptURL
	}
	if fields.PaidAt != nil {
		set["paidAt"] = *fields.PaidAt
	}
	if fields.FailedReason != nil {
		set["failedReason"] = *fields.FailedReason
	}

	var o entity.Order
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &o, nil
}
