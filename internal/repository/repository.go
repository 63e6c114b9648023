package repository

import (
	"context"
	"errors"
	"time"

	"github.com/beautystore/backend/internal/entity"
)

// ErrDuplicateEvent is returned by PaymentEventRepository.Insert when the
// event id already exists. The unique index behind it is the engine's only
// cross-instance mutual-exclusion primitive.
var ErrDuplicateEvent = errors.New("payment event already exists")

// ErrStockConflict is returned by ProductRepository.DecrementStock when the
// conditional decrement matched no document (insufficient stock, or the
// product is inactive or gone).
var ErrStockConflict = errors.New("stock conditional decrement matched nothing")

// ErrNotFound is returned by deletes targeting a missing document.
var ErrNotFound = errors.New("document not found")

// Page is a 1-based pagination request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps a page request to sane defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 10
	}
	return p
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Search   string
	Category string
	MinPrice *float64
	MaxPrice *float64
	IsActive *bool
	Page     Page
}

// OrderFilter narrows an order listing. Empty fields are ignored.
type OrderFilter struct {
	UserID string
	Status entity.OrderStatus
	Page   Page
}

// ProductPatch is a partial catalog update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Currency    *string
	Stock       *int
	IsActive    *bool
	Category    *string
	ImageURL    *string
}

// StatusFields carries the extra fields written alongside a status
// transition. Nil fields are not written.
type StatusFields struct {
	TransactionID *string
	ReceiptKey    *string
	ReceiptURL    *string
	PaidAt        *time.Time
	FailedReason  *string
}

// ProductRepository handles persistence for Products. Lookups return
// (nil, nil) when the product does not exist.
type ProductRepository interface {
	Insert(ctx context.Context, p *entity.Product) error
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	Find(ctx context.Context, filter ProductFilter) ([]entity.Product, int64, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*entity.Product, error)
	Delete(ctx context.Context, id string) error
	// DecrementStock atomically decrements stock by qty iff the product is
	// active and has at least qty in stock; otherwise ErrStockConflict.
	DecrementStock(ctx context.Context, id string, qty int) error
	// IncrementStock unconditionally adds qty back (compensating action).
	IncrementStock(ctx context.Context, id string, qty int) error
	// Seed inserts initial products if the collection is empty.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository handles persistence for Orders. Lookups return (nil, nil)
// when the order does not exist.
type OrderRepository interface {
	Insert(ctx context.Context, o *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Order, error)
	Find(ctx context.Context, filter OrderFilter) ([]entity.Order, int64, error)
	// UpdateStatus is a blind last-writer-wins overwrite keyed by order id.
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, fields StatusFields) (*entity.Order, error)
}

// PaymentEventRepository is the durable idempotency ledger.
type PaymentEventRepository interface {
	// Insert creates the ledger row; ErrDuplicateEvent if the event id is taken.
	Insert(ctx context.Context, e *entity.PaymentEvent) error
	FindByEventID(ctx context.Context, eventID string) (*entity.PaymentEvent, error)
	// MarkProcessed flips the processed flag, recording errText when non-empty.
	MarkProcessed(ctx context.Context, eventID string, errText string) error
}

// UserRepository is the read-only directory view the engine consumes.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	Seed(ctx context.Context, users []entity.User) error
}
