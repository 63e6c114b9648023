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

type productRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a ProductRepository backed by MongoDB.
func NewProductRepository(db *mongo.Database) repository.ProductRepository {
	return &productRepository{coll: db.Collection(productsCollection)}
}

func (r *productRepository) Insert(ctx context.Context, p *entity.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) Find(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		query["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": filter.Search, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": filter.Search, "$options": "i"}},
		}
	}
	if filter.Category != "" {
		query["category"] = bson.M{"$regex": filter.Category, "$options": "i"}
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		price := bson.M{}
		if filter.MinPrice != nil {
			price["$gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			price["$lte"] = *filter.MaxPrice
		}
		query["price"] = price
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}

	page := filter.Page.Normalize()
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page.Page - 1) * page.Limit)).
		SetLimit(int64(page.Limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, id string, patch repository.ProductPatch) (*entity.Product, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Currency != nil {
		set["currency"] = *patch.Currency
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.ImageURL != nil {
		set["imageUrl"] = *patch.ImageURL
	}

	var p entity.Product
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementStock is the atomic conditional decrement: the filter carries the
// stock guard so two concurrent orders cannot jointly oversell.
func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrStockConflict
	}
	return nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}
	docs := make([]any, 0, len(products))
	now := time.Now().UTC()
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		docs = append(docs, p)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}
