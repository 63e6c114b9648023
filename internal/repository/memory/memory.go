// Package memory implements the repository interfaces on in-process maps
// with the same single-document atomicity and eventId uniqueness semantics
// as the MongoDB implementation. Used by tests and local development; it is
// not a substitute for the durable store in multi-instance deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
)

// ProductStore is an in-memory ProductRepository.
type ProductStore struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func NewProductStore(products ...*entity.Product) *ProductStore {
	s := &ProductStore{products: make(map[string]*entity.Product)}
	for _, p := range products {
		cp := *p
		s.products[p.ID] = &cp
	}
	return s
}

func (s *ProductStore) Insert(ctx context.Context, p *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *ProductStore) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *ProductStore) Find(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []entity.Product
	for _, p := range s.products {
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.Description), needle) {
				continue
			}
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	return slicePage(matched, filter.Page), total, nil
}

func (s *ProductStore) Update(ctx context.Context, id string, patch repository.ProductPatch) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *ProductStore) DecrementStock(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.IsActive || p.Stock < qty {
		return repository.ErrStockConflict
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Stock += qty
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *ProductStore) Seed(ctx context.Context, products []entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) > 0 {
		return nil
	}
	for _, p := range products {
		cp := p
		s.products[p.ID] = &cp
	}
	return nil
}

// OrderStore is an in-memory OrderRepository.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func NewOrderStore(orders ...*entity.Order) *OrderStore {
	s := &OrderStore{orders: make(map[string]*entity.Order)}
	for _, o := range orders {
		cp := *o
		s.orders[o.ID] = &cp
	}
	return s
}

func (s *OrderStore) Insert(ctx context.Context, o *entity.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *OrderStore) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.TransactionID == transactionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *OrderStore) Find(ctx context.Context, filter repository.OrderFilter) ([]entity.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []entity.Order
	for _, o := range s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, *o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	return slicePage(matched, filter.Page), total, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus, fields repository.StatusFields) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	if fields.TransactionID != nil {
		o.TransactionID = *fields.TransactionID
	}
	if fields.ReceiptKey != nil {
		o.ReceiptKey = *fields.ReceiptKey
	}
	if fields.ReceiptURL != nil {
		o.ReceiptURL = *fields.ReceiptURL
	}
	if fields.PaidAt != nil {
		paidAt := *fields.PaidAt
		o.PaidAt = &paidAt
	}
	if fields.FailedReason != nil {
		o.FailedReason = *fields.FailedReason
	}
	cp := *o
	return &cp, nil
}

// EventStore is an in-memory PaymentEventRepository. Insert enforces event
// id uniqueness under the store's lock, mirroring the unique index.
type EventStore struct {
	mu     sync.Mutex
	events map[string]*entity.PaymentEvent
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]*entity.PaymentEvent)}
}

func (s *EventStore) Insert(ctx context.Context, e *entity.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.EventID]; ok {
		return repository.ErrDuplicateEvent
	}
	e.CreatedAt = time.Now().UTC()
	cp := *e
	s.events[e.EventID] = &cp
	return nil
}

func (s *EventStore) FindByEventID(ctx context.Context, eventID string) (*entity.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *EventStore) MarkProcessed(ctx context.Context, eventID string, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return repository.ErrNotFound
	}
	e.Processed = true
	now := time.Now().UTC()
	e.ProcessedAt = &now
	if errText != "" {
		e.Error = errText
	}
	return nil
}

// Len reports how many distinct event ids the ledger holds.
func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// UserStore is an in-memory UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func NewUserStore(users ...*entity.User) *UserStore {
	s := &UserStore{users: make(map[string]*entity.User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) Seed(ctx context.Context, users []entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) > 0 {
		return nil
	}
	for _, u := range users {
		cp := u
		s.users[u.ID] = &cp
	}
	return nil
}

func slicePage[T any](items []T, page repository.Page) []T {
	p := page.Normalize()
	start := (p.Page - 1) * p.Limit
	if start >= len(items) {
		return nil
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
