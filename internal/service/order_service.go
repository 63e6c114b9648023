package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

// Paginated is a page of results with listing metadata.
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func paginate[T any](data []T, total int64, page repository.Page) *Paginated[T] {
	p := page.Normalize()
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if data == nil {
		data = []T{}
	}
	return &Paginated[T]{Data: data, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: totalPages}
}

// OrderItemRequest is one requested line item for a new order.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderService owns the order ledger: creation against stock, lookups,
// and the status transition function.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository) *OrderService {
	return &OrderService{orders: orders, products: products}
}

// Create validates each requested item against the catalog, decrements stock
// item by item, computes the total and persists the order in status CREATED.
//
// There is no transaction spanning the whole order: each item's stock
// decrement is individually atomic, so items decremented before a failing
// item stay decremented and items after it are never touched. The total is
// computed once here and never recomputed.
func (s *OrderService) Create(ctx context.Context, userID string, items []OrderItemRequest) (*entity.Order, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.Validation, "order must have at least one item")
	}

	orderItems := make([]entity.OrderItem, 0, len(items))
	total := decimal.Zero
	currency := "USD"

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apperr.New(apperr.Validation, "quantity must be at least 1")
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to load product %s", item.ProductID)
		}
		if product == nil {
			return nil, apperr.New(apperr.NotFound, "product with ID %s not found", item.ProductID)
		}
		if !product.IsActive {
			return nil, apperr.New(apperr.ProductUnavailable, "product %s is not available", product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, apperr.New(apperr.InsufficientStock,
				"insufficient stock for %s. Available: %d", product.Name, product.Stock)
		}

		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if err == repository.ErrStockConflict {
				// Lost a race with a concurrent order since the read above.
				return nil, apperr.New(apperr.InsufficientStock,
					"insufficient stock for %s", product.Name)
			}
			return nil, apperr.Wrap(apperr.Internal, err, "failed to decrement stock for %s", product.Name)
		}

		subtotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		orderItems = append(orderItems, entity.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal.Round(2).InexactFloat64(),
		})
		total = total.Add(subtotal)
		if product.Currency != "" {
			currency = product.Currency
		}
	}

	order := &entity.Order{
		ID:       uuid.New().String(),
		UserID:   userID,
		Items:    orderItems,
		Total:    total.Round(2).InexactFloat64(),
		Currency: currency,
		Status:   entity.OrderCreated,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to persist order")
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}

// FindByIDOrFail loads an order or fails with NotFound.
func (s *OrderService) FindByIDOrFail(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load order %s", id)
	}
	if order == nil {
		return nil, apperr.New(apperr.NotFound, "order with ID %s not found", id)
	}
	return order, nil
}

// FindByIDForUser loads an order, enforcing that non-administrators can only
// read their own orders.
func (s *OrderService) FindByIDForUser(ctx context.Context, id, userID string, role entity.UserRole) (*entity.Order, error) {
	order, err := s.FindByIDOrFail(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != entity.RoleAdmin && order.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "you can only view your own orders")
	}
	return order, nil
}

// FindByTransactionID correlates an inbound webhook with its order. Returns
// nil without error when no order carries the transaction id.
func (s *OrderService) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Order, error) {
	order, err := s.orders.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to look up transaction %s", transactionID)
	}
	return order, nil
}

// FindByUser lists the caller's orders, optionally filtered by status.
func (s *OrderService) FindByUser(ctx context.Context, userID string, status entity.OrderStatus, page repository.Page) (*Paginated[entity.Order], error) {
	orders, total, err := s.orders.Find(ctx, repository.OrderFilter{UserID: userID, Status: status, Page: page})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to list orders")
	}
	return paginate(orders, total, page), nil
}

// FindAll lists every order (administrative listing).
func (s *OrderService) FindAll(ctx context.Context, status entity.OrderStatus, page repository.Page) (*Paginated[entity.Order], error) {
	orders, total, err := s.orders.Find(ctx, repository.OrderFilter{Status: status, Page: page})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to list orders")
	}
	return paginate(orders, total, page), nil
}

// SetStatus is the only status mutator. It is a blind overwrite keyed by
// order id; callers sequence their transitions by construction.
func (s *OrderService) SetStatus(ctx context.Context, id string, status entity.OrderStatus, fields repository.StatusFields) (*entity.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, id, status, fields)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to transition order %s", id)
	}
	if order == nil {
		return nil, apperr.New(apperr.NotFound, "order with ID %s not found", id)
	}
	return order, nil
}

// SetPaymentPending transitions CREATED → PAYMENT_PENDING, recording the
// freshly minted transaction id.
func (s *OrderService) SetPaymentPending(ctx context.Context, id, transactionID string) (*entity.Order, error) {
	return s.SetStatus(ctx, id, entity.OrderPaymentPending, repository.StatusFields{
		TransactionID: &transactionID,
	})
}

// MarkAsPaid transitions to PAID with the paid timestamp and any receipt
// reference obtained.
func (s *OrderService) MarkAsPaid(ctx context.Context, id, receiptKey, receiptURL string) (*entity.Order, error) {
	now := time.Now().UTC()
	fields := repository.StatusFields{PaidAt: &now}
	if receiptKey != "" {
		fields.ReceiptKey = &receiptKey
	}
	if receiptURL != "" {
		fields.ReceiptURL = &receiptURL
	}
	return s.SetStatus(ctx, id, entity.OrderPaid, fields)
}

// MarkAsFailed transitions to FAILED with the supplied reason.
func (s *OrderService) MarkAsFailed(ctx context.Context, id, reason string) (*entity.Order, error) {
	return s.SetStatus(ctx, id, entity.OrderFailed, repository.StatusFields{FailedReason: &reason})
}
