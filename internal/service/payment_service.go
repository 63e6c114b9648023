package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/notification"
	"github.com/beautystore/backend/internal/repository"
	"github.com/beautystore/backend/internal/signature"
	"github.com/beautystore/backend/internal/storage"
	"github.com/beautystore/backend/internal/worker"
)

// WebhookResult is the response body returned to the gateway. Recognized
// outcomes, including idempotent replays and soft failures, all answer
// HTTP 200 so the gateway stops retrying.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PaymentService reconciles order state from gateway notifications and
// issues payment intents.
type PaymentService struct {
	orders     *OrderService
	gate       *IdempotencyGate
	events     repository.PaymentEventRepository
	users      repository.UserRepository
	verifier   *signature.Verifier
	receipts   storage.ReceiptStore
	notifier   notification.Notifier
	dispatcher worker.Dispatcher
}

func NewPaymentService(
	orders *OrderService,
	events repository.PaymentEventRepository,
	users repository.UserRepository,
	verifier *signature.Verifier,
	receipts storage.ReceiptStore,
	notifier notification.Notifier,
	dispatcher worker.Dispatcher,
) *PaymentService {
	return &PaymentService{
		orders:     orders,
		gate:       NewIdempotencyGate(events),
		events:     events,
		users:      users,
		verifier:   verifier,
		receipts:   receipts,
		notifier:   notifier,
		dispatcher: dispatcher,
	}
}

// IssuePaymentIntent mints a fresh transaction id for a CREATED order owned
// by the caller, transitions it to PAYMENT_PENDING and returns a transient
// PaymentIntent. The intent itself is never persisted; the transaction id on
// the order is the join key for the eventual webhook.
func (s *PaymentService) IssuePaymentIntent(ctx context.Context, orderID, userID string) (*entity.PaymentIntent, error) {
	order, err := s.orders.FindByIDOrFail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "order does not belong to current user")
	}
	if order.Status != entity.OrderCreated {
		return nil, apperr.New(apperr.InvalidState, "cannot pay order with status %s", order.Status)
	}

	transactionID := "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := s.orders.SetPaymentPending(ctx, orderID, transactionID); err != nil {
		return nil, err
	}

	slog.Info("Payment initiated", "order_id", orderID, "transaction_id", transactionID)
	return &entity.PaymentIntent{
		TransactionID:  transactionID,
		OrderID:        orderID,
		Amount:         order.Total,
		Currency:       order.Currency,
		Status:         "pending",
		WebhookURL:     "/api/payments/webhook",
		MockPaymentURL: fmt.Sprintf("/api/payments/mock/%s", transactionID),
	}, nil
}

// ProcessWebhook applies one gateway notification:
//
//  1. authenticate the raw body; failure leaves no trace, not even a
//     ledger row;
//  2. claim the event id; replays and concurrent duplicates short-circuit
//     with success and no repeated side effects;
//  3. resolve the order; an unknown transaction id is recorded in the
//     ledger and answered as a soft failure so the gateway will not retry;
//  4. apply the state transition with its best-effort side effects;
//  5. mark the ledger row processed before surfacing any step-4 error, so
//     the ledger always reflects the final outcome.
func (s *PaymentService) ProcessWebhook(ctx context.Context, payload *entity.WebhookPayload, rawBody []byte, signatureHeader string) (*WebhookResult, error) {
	if !s.verifier.Verify(rawBody, signatureHeader) {
		return nil, apperr.New(apperr.Unauthorized, "invalid webhook signature")
	}

	outcome, err := s.gate.Claim(ctx, payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to claim event %s", payload.EventID)
	}
	switch outcome {
	case AlreadyProcessed:
		slog.Info("Event already processed, skipping", "event_id", payload.EventID)
		return &WebhookResult{Success: true, Message: "Event already processed"}, nil
	case AlreadyClaiming:
		slog.Info("Event being processed by another request", "event_id", payload.EventID)
		return &WebhookResult{Success: true, Message: "Event already being processed"}, nil
	}

	order, err := s.orders.FindByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		slog.Error("Order not found for transaction", "transaction_id", payload.TransactionID, "event_id", payload.EventID)
		if markErr := s.events.MarkProcessed(ctx, payload.EventID, "Order not found"); markErr != nil {
			slog.Error("Failed to record missing order on event", "event_id", payload.EventID, "err", markErr)
		}
		return &WebhookResult{Success: false, Message: "Order not found"}, nil
	}

	var procErr error
	switch payload.EventType {
	case entity.EventPaymentSuccess:
		procErr = s.handlePaymentSuccess(ctx, order.ID, payload)
	case entity.EventPaymentFailed:
		procErr = s.handlePaymentFailed(ctx, order.ID, payload)
	default:
		procErr = apperr.New(apperr.Validation, "unsupported event type %q", payload.EventType)
	}

	if procErr != nil {
		slog.Error("Error processing event", "event_id", payload.EventID, "err", procErr)
		if markErr := s.events.MarkProcessed(ctx, payload.EventID, procErr.Error()); markErr != nil {
			slog.Error("Failed to record error on event", "event_id", payload.EventID, "err", markErr)
		}
		return nil, procErr
	}

	if err := s.events.MarkProcessed(ctx, payload.EventID, ""); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to mark event %s processed", payload.EventID)
	}
	return &WebhookResult{Success: true, Message: "Event processed successfully"}, nil
}

func (s *PaymentService) handlePaymentSuccess(ctx context.Context, orderID string, payload *entity.WebhookPayload) error {
	order, err := s.orders.FindByIDOrFail(ctx, orderID)
	if err != nil {
		return err
	}

	// Receipt persistence is best-effort: a storage outage must not block
	// the payment confirmation.
	var receiptKey, receiptURL string
	receipt := entity.Receipt{
		OrderID:       order.ID,
		TransactionID: payload.TransactionID,
		Amount:        order.Total,
		Currency:      order.Currency,
		Items:         order.Items,
		PaidAt:        time.Now().UTC().Format(time.RFC3339),
		Status:        string(entity.OrderPaid),
	}
	if result, err := s.receipts.UploadReceipt(ctx, order.ID, receipt); err != nil {
		slog.Error("Failed to upload receipt", "order_id", order.ID, "err", err)
	} else {
		receiptKey = result.Key
		receiptURL = result.URL
	}

	if _, err := s.orders.MarkAsPaid(ctx, order.ID, receiptKey, receiptURL); err != nil {
		return err
	}

	// Isolated from the webhook response: a notification failure is logged
	// by the dispatcher and never reaches the gateway.
	s.dispatcher.Submit("order-confirmation", func(taskCtx context.Context) error {
		return s.sendConfirmation(taskCtx, order.ID)
	})

	slog.Info("Order marked as paid", "order_id", order.ID)
	return nil
}

func (s *PaymentService) handlePaymentFailed(ctx context.Context, orderID string, payload *entity.WebhookPayload) error {
	reason := "Payment failed"
	if msg, ok := payload.Data["error"].(string); ok && msg != "" {
		reason = msg
	}
	if _, err := s.orders.MarkAsFailed(ctx, orderID, reason); err != nil {
		return err
	}
	slog.Info("Order marked as failed", "order_id", orderID, "reason", reason)
	return nil
}

func (s *PaymentService) sendConfirmation(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByIDOrFail(ctx, orderID)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", order.UserID, err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found for order %s", order.UserID, orderID)
	}
	return s.notifier.SendOrderConfirmation(ctx, order, user)
}

// SimulatePayment builds a signed webhook payload that, replayed against the
// webhook endpoint, reproduces a success or failure flow end to end.
func (s *PaymentService) SimulatePayment(transactionID string, success bool) (*entity.WebhookPayload, []byte, string, error) {
	payload := &entity.WebhookPayload{
		EventID:       "evt_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		TransactionID: transactionID,
	}
	if success {
		payload.EventType = entity.EventPaymentSuccess
		payload.Data = map[string]any{"amount": 0}
	} else {
		payload.EventType = entity.EventPaymentFailed
		payload.Data = map[string]any{"error": "Card declined"}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return payload, raw, s.verifier.Sign(raw), nil
}
