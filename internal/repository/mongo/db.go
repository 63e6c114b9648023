// Package mongo implements the repository interfaces on MongoDB. The store
// is used as an abstract document store: atomic single-document operations
// plus one uniqueness constraint (paymentevents.eventId) that doubles as the
// idempotency lock.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection      = "products"
	ordersCollection        = "orders"
	paymentEventsCollection = "paymentevents"
	usersCollection         = "users"
)

// Connect opens a client and verifies connectivity.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	slog.Info("MongoDB connected", "database", database)
	return client.Database(database), client.Disconnect, nil
}

// EnsureIndexes creates the indexes the engine relies on. The unique eventId
// index is load-bearing: it is the idempotency gate's mutual exclusion.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(paymentEventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "eventId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique eventId index: %w", err)
	}

	orderIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionId", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection(ordersCollection).Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	productIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "price", Value: 1}}},
	}
	if _, err := db.Collection(productsCollection).Indexes().CreateMany(ctx, productIndexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}
