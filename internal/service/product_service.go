package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

// ProductService owns the catalog. Mutations are admin-only; the transport
// enforces the role.
type ProductService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// CreateProductInput is a new catalog entry.
type CreateProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
}

func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*entity.Product, error) {
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}
	product := &entity.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		Stock:       input.Stock,
		IsActive:    true,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to create product")
	}
	slog.Info("Product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

func (s *ProductService) FindByIDOrFail(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load product %s", id)
	}
	if product == nil {
		return nil, apperr.New(apperr.NotFound, "product with ID %s not found", id)
	}
	return product, nil
}

// Find lists catalog entries matching the filter.
func (s *ProductService) Find(ctx context.Context, filter repository.ProductFilter) (*Paginated[entity.Product], error) {
	products, total, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to list products")
	}
	return paginate(products, total, filter.Page), nil
}

// FindActive lists only active products (the public storefront view).
func (s *ProductService) FindActive(ctx context.Context, filter repository.ProductFilter) (*Paginated[entity.Product], error) {
	active := true
	filter.IsActive = &active
	return s.Find(ctx, filter)
}

func (s *ProductService) Update(ctx context.Context, id string, patch repository.ProductPatch) (*entity.Product, error) {
	product, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to update product %s", id)
	}
	if product == nil {
		return nil, apperr.New(apperr.NotFound, "product with ID %s not found", id)
	}
	return product, nil
}

// SoftDelete deactivates a product without removing it; placed orders keep
// their captured name/price snapshot regardless.
func (s *ProductService) SoftDelete(ctx context.Context, id string) (*entity.Product, error) {
	inactive := false
	return s.Update(ctx, id, repository.ProductPatch{IsActive: &inactive})
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "product with ID %s not found", id)
		}
		return apperr.Wrap(apperr.Internal, err, "failed to delete product %s", id)
	}
	return nil
}
