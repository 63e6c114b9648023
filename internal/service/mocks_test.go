package service

import (
	"context"
	"sync"
	"time"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository/memory"
	"github.com/beautystore/backend/internal/storage"
)

// The repository doubles are the in-memory stores from repository/memory,
// wrapped where the tests need inspection helpers. Collaborator fakes
// (receipts, notifier, dispatcher) are defined here.

type fakeProductRepo struct {
	*memory.ProductStore
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	return &fakeProductRepo{memory.NewProductStore(products...)}
}

func (r *fakeProductRepo) stock(id string) int {
	p, err := r.FindByID(context.Background(), id)
	if err != nil || p == nil {
		return -1
	}
	return p.Stock
}

type fakeOrderRepo = memory.OrderStore

func newFakeOrderRepo(orders ...*entity.Order) *fakeOrderRepo {
	return memory.NewOrderStore(orders...)
}

type fakeEventRepo struct {
	*memory.EventStore
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{memory.NewEventStore()}
}

func (r *fakeEventRepo) count() int { return r.Len() }

type fakeUserRepo = memory.UserStore

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	return memory.NewUserStore(users...)
}

type fakeReceiptStore struct {
	mu      sync.Mutex
	uploads int
	err     error
}

func (s *fakeReceiptStore) UploadReceipt(ctx context.Context, orderID string, receipt any) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.uploads++
	return &storage.UploadResult{
		Key: "receipts/" + orderID + ".json",
		URL: "https://receipts.example.com/" + orderID,
	}, nil
}

func (s *fakeReceiptStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://receipts.example.com/" + key, nil
}

func (s *fakeReceiptStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (n *fakeNotifier) SendOrderConfirmation(ctx context.Context, order *entity.Order, user *entity.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sends++
	return nil
}

func (n *fakeNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

// syncDispatcher runs tasks inline so tests observe side effects without
// sleeping.
type syncDispatcher struct{}

func (syncDispatcher) Submit(name string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}
