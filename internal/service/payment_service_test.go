package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/signature"
)

type paymentFixture struct {
	svc      *PaymentService
	orders   *fakeOrderRepo
	events   *fakeEventRepo
	receipts *fakeReceiptStore
	notifier *fakeNotifier
	verifier *signature.Verifier
}

func newPaymentFixture(t *testing.T, orders ...*entity.Order) *paymentFixture {
	t.Helper()
	orderRepo := newFakeOrderRepo(orders...)
	eventRepo := newFakeEventRepo()
	receipts := &fakeReceiptStore{}
	notifier := &fakeNotifier{}
	verifier := signature.NewVerifier("test-secret")
	users := newFakeUserRepo(&entity.User{ID: "usr-1", Email: "ana@example.com", Name: "Ana", Role: entity.RoleUser})

	svc := NewPaymentService(
		NewOrderService(orderRepo, newFakeProductRepo()),
		eventRepo,
		users,
		verifier,
		receipts,
		notifier,
		syncDispatcher{},
	)
	return &paymentFixture{svc: svc, orders: orderRepo, events: eventRepo, receipts: receipts, notifier: notifier, verifier: verifier}
}

func pendingOrder(id, txn string) *entity.Order {
	return &entity.Order{
		ID:            id,
		UserID:        "usr-1",
		Items:         []entity.OrderItem{{ProductID: "p-a", ProductName: "Lipstick", Quantity: 2, UnitPrice: 29.99, Subtotal: 59.98}},
		Total:         59.98,
		Currency:      "USD",
		Status:        entity.OrderPaymentPending,
		TransactionID: txn,
	}
}

func signedPayload(t *testing.T, v *signature.Verifier, payload *entity.WebhookPayload) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw, v.Sign(raw)
}

func TestIssuePaymentIntent(t *testing.T) {
	order := &entity.Order{ID: "ord-1", UserID: "usr-1", Total: 69.98, Currency: "USD", Status: entity.OrderCreated}
	f := newPaymentFixture(t, order)

	intent, err := f.svc.IssuePaymentIntent(context.Background(), "ord-1", "usr-1")
	require.NoError(t, err)

	assert.Equal(t, "ord-1", intent.OrderID)
	assert.Equal(t, 69.98, intent.Amount)
	assert.Equal(t, "USD", intent.Currency)
	assert.Equal(t, "pending", intent.Status)
	assert.Regexp(t, `^txn_[0-9a-f]{32}$`, intent.TransactionID)
	assert.Equal(t, "/api/payments/webhook", intent.WebhookURL)

	stored, err := f.orders.FindByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaymentPending, stored.Status)
	assert.Equal(t, intent.TransactionID, stored.TransactionID)
}

func TestIssuePaymentIntent_Rejections(t *testing.T) {
	t.Run("not owner", func(t *testing.T) {
		f := newPaymentFixture(t, &entity.Order{ID: "ord-1", UserID: "usr-1", Status: entity.OrderCreated})
		_, err := f.svc.IssuePaymentIntent(context.Background(), "ord-1", "usr-2")
		require.Error(t, err)
		assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	})

	t.Run("not in CREATED", func(t *testing.T) {
		f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
		_, err := f.svc.IssuePaymentIntent(context.Background(), "ord-1", "usr-1")
		require.Error(t, err)
		assert.Equal(t, apperr.InvalidState, apperr.KindOf(err))
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newPaymentFixture(t)
		_, err := f.svc.IssuePaymentIntent(context.Background(), "missing", "usr-1")
		require.Error(t, err)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestProcessWebhook_PaymentSuccess(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, result.Success)

	order, err := f.orders.FindByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPaid, order.Status)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, "receipts/ord-1.json", order.ReceiptKey)
	assert.NotEmpty(t, order.ReceiptURL)

	event, err := f.events.FindByEventID(context.Background(), "evt_1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.True(t, event.Processed)
	assert.Empty(t, event.Error)

	assert.Equal(t, 1, f.receipts.uploadCount())
	assert.Equal(t, 1, f.notifier.sendCount())
}

func TestProcessWebhook_PaymentFailed(t *testing.T) {
	t.Run("with supplied reason", func(t *testing.T) {
		f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
		payload := &entity.WebhookPayload{
			EventID:       "evt_1",
			TransactionID: "txn_abc",
			EventType:     entity.EventPaymentFailed,
			Data:          map[string]any{"error": "Card declined"},
		}
		raw, sig := signedPayload(t, f.verifier, payload)

		result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
		require.NoError(t, err)
		assert.True(t, result.Success)

		order, _ := f.orders.FindByID(context.Background(), "ord-1")
		assert.Equal(t, entity.OrderFailed, order.Status)
		assert.Equal(t, "Card declined", order.FailedReason)
		assert.Equal(t, 0, f.receipts.uploadCount())
		assert.Equal(t, 0, f.notifier.sendCount())
	})

	t.Run("default reason", func(t *testing.T) {
		f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
		payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentFailed}
		raw, sig := signedPayload(t, f.verifier, payload)

		_, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
		require.NoError(t, err)

		order, _ := f.orders.FindByID(context.Background(), "ord-1")
		assert.Equal(t, "Payment failed", order.FailedReason)
	})
}

func TestProcessWebhook_BadSignature(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, _ := signedPayload(t, f.verifier, payload)

	_, err := f.svc.ProcessWebhook(context.Background(), payload, raw, "sha256=deadbeef")
	require.Error(t, err)
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	// Rejected before any idempotency record is created.
	assert.Equal(t, 0, f.events.count())
	order, _ := f.orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, entity.OrderPaymentPending, order.Status)
}

func TestProcessWebhook_ReplayIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	first, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, "Event already processed", second.Message)

	// Exactly one ledger row, side effects at most once.
	assert.Equal(t, 1, f.events.count())
	assert.Equal(t, 1, f.receipts.uploadCount())
	assert.Equal(t, 1, f.notifier.sendCount())
}

func TestProcessWebhook_ConcurrentDuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	const callers = 8
	results := make([]*WebhookResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
		}(i)
	}
	wg.Wait()

	processed := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.True(t, results[i].Success, "every caller answers success")
		if results[i].Message == "Event processed successfully" {
			processed++
		}
	}
	assert.Equal(t, 1, processed, "exactly one caller performs the transition")
	assert.Equal(t, 1, f.events.count())
	assert.Equal(t, 1, f.receipts.uploadCount())
	assert.Equal(t, 1, f.notifier.sendCount())

	order, _ := f.orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, entity.OrderPaid, order.Status)
}

func TestProcessWebhook_UnknownTransaction(t *testing.T) {
	f := newPaymentFixture(t)
	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_missing", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err, "soft failure, no retry triggered")
	assert.False(t, result.Success)
	assert.Equal(t, "Order not found", result.Message)

	event, _ := f.events.FindByEventID(context.Background(), "evt_1")
	require.NotNil(t, event)
	assert.True(t, event.Processed)
	assert.Equal(t, "Order not found", event.Error)

	assert.Equal(t, 0, f.receipts.uploadCount())
	assert.Equal(t, 0, f.notifier.sendCount())
}

func TestProcessWebhook_ReceiptFailureDoesNotBlockConfirmation(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	f.receipts.err = assert.AnError

	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, result.Success)

	order, _ := f.orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, entity.OrderPaid, order.Status)
	assert.Empty(t, order.ReceiptKey)
	assert.Equal(t, 1, f.notifier.sendCount())
}

func TestProcessWebhook_NotifierFailureIsIsolated(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))
	f.notifier.err = assert.AnError

	payload := &entity.WebhookPayload{EventID: "evt_1", TransactionID: "txn_abc", EventType: entity.EventPaymentSuccess}
	raw, sig := signedPayload(t, f.verifier, payload)

	result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, result.Success)

	order, _ := f.orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, entity.OrderPaid, order.Status)
}

func TestSimulatePayment_ReplaysAgainstProcessWebhook(t *testing.T) {
	f := newPaymentFixture(t, pendingOrder("ord-1", "txn_abc"))

	payload, raw, sig, err := f.svc.SimulatePayment("txn_abc", true)
	require.NoError(t, err)
	assert.Regexp(t, `^evt_[0-9a-f]{32}$`, payload.EventID)
	assert.Equal(t, entity.EventPaymentSuccess, payload.EventType)

	result, err := f.svc.ProcessWebhook(context.Background(), payload, raw, sig)
	require.NoError(t, err)
	assert.True(t, result.Success)

	order, _ := f.orders.FindByID(context.Background(), "ord-1")
	assert.Equal(t, entity.OrderPaid, order.Status)
}
