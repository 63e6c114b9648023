// Package notification publishes order confirmations for downstream
// consumers (the mailer service subscribes to the confirmation topic; email
// rendering and delivery live outside this repo).
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/beautystore/backend/internal/entity"
)

// OrderConfirmation is the event emitted after an order is paid.
type OrderConfirmation struct {
	OrderID    string             `json:"order_id"`
	UserID     string             `json:"user_id"`
	Email      string             `json:"email"`
	Name       string             `json:"name"`
	Items      []entity.OrderItem `json:"items"`
	Total      float64            `json:"total"`
	Currency   string             `json:"currency"`
	ReceiptURL string             `json:"receipt_url,omitempty"`
	PaidAt     time.Time          `json:"paid_at"`
}

// Notifier sends order confirmations. Callers must never await it on the
// webhook response path.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *entity.Order, user *entity.User) error
}

// PublisherNotifier emits OrderConfirmation events onto a message broker.
type PublisherNotifier struct {
	publisher message.Publisher
	topic     string
}

// NewPublisherNotifier wraps a watermill publisher as a Notifier.
func NewPublisherNotifier(publisher message.Publisher, topic string) *PublisherNotifier {
	return &PublisherNotifier{publisher: publisher, topic: topic}
}

func (n *PublisherNotifier) SendOrderConfirmation(ctx context.Context, order *entity.Order, user *entity.User) error {
	event := OrderConfirmation{
		OrderID:    order.ID,
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Items:      order.Items,
		Total:      order.Total,
		Currency:   order.Currency,
		ReceiptURL: order.ReceiptURL,
	}
	if order.PaidAt != nil {
		event.PaidAt = *order.PaidAt
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order confirmation: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("order_id", order.ID)

	if err := n.publisher.Publish(n.topic, msg); err != nil {
		return fmt.Errorf("failed to publish order confirmation: %w", err)
	}

	slog.Info("Order confirmation published", "order_id", order.ID, "topic", n.topic)
	return nil
}
