package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

type userRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates the read-only user directory backed by MongoDB.
func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) Seed(ctx context.Context, users []entity.User) error {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	docs := make([]any, 0, len(users))
	for _, u := range users {
		docs = append(docs, u)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	return nil
}
