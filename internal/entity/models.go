package entity

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderCreated        OrderStatus = "CREATED"
	OrderPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderPaid           OrderStatus = "PAID"
	OrderFailed         OrderStatus = "FAILED"
	// OrderCanceled is administrative only; the payment engine never sets it.
	OrderCanceled OrderStatus = "CANCELED"
)

// UserRole distinguishes customers from administrators.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// Product represents a catalog item in the store.
type Product struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	Currency    string    `bson:"currency" json:"currency"`
	Stock       int       `bson:"stock" json:"stock"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	Category    string    `bson:"category" json:"category"`
	ImageURL    string    `bson:"imageUrl" json:"imageUrl"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OrderItem is a line item within an order. Name and unit price are captured
// at creation time so later catalog edits never change a placed order.
type OrderItem struct {
	ProductID   string  `bson:"product" json:"product"`
	ProductName string  `bson:"productName" json:"productName"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unitPrice" json:"unitPrice"`
	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
}

// Order represents a customer order. Total is computed once at creation and
// never recomputed; status changes only through the transition function.
type Order struct {
	ID            string      `bson:"_id" json:"id"`
	UserID        string      `bson:"user" json:"user"`
	Items         []OrderItem `bson:"items" json:"items"`
	Total         float64     `bson:"total" json:"total"`
	Currency      string      `bson:"currency" json:"currency"`
	Status        OrderStatus `bson:"status" json:"status"`
	TransactionID string      `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	ReceiptKey    string      `bson:"receiptKey,omitempty" json:"receiptKey,omitempty"`
	ReceiptURL    string      `bson:"receiptUrl,omitempty" json:"receiptUrl,omitempty"`
	PaidAt        *time.Time  `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	FailedReason  string      `bson:"failedReason,omitempty" json:"failedReason,omitempty"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// PaymentEvent is the durable idempotency ledger entry for one gateway event.
// Rows are inserted once per distinct event id (enforced by a unique index)
// and only ever updated to flip the processed flag. Never deleted.
type PaymentEvent struct {
	EventID       string         `bson:"eventId" json:"eventId"`
	TransactionID string         `bson:"transactionId" json:"transactionId"`
	EventType     string         `bson:"eventType" json:"eventType"`
	Payload       map[string]any `bson:"payload" json:"payload"`
	Processed     bool           `bson:"processed" json:"processed"`
	ProcessedAt   *time.Time     `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	Error         string         `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
}

// User is the minimal directory record the engine consumes. Credential
// management and token issuance live upstream.
type User struct {
	ID    string   `bson:"_id" json:"id"`
	Email string   `bson:"email" json:"email"`
	Name  string   `bson:"name" json:"name"`
	Role  UserRole `bson:"role" json:"role"`
}

// Webhook event types delivered by the payment gateway.
const (
	EventPaymentSuccess = "payment.success"
	EventPaymentFailed  = "payment.failed"
)

// WebhookPayload is the authenticated body of a gateway notification.
type WebhookPayload struct {
	EventID       string         `json:"eventId"`
	TransactionID string         `json:"transactionId"`
	EventType     string         `json:"eventType"`
	Data          map[string]any `json:"data,omitempty"`
}

// PaymentIntent is returned to the caller when payment is initiated. It is
// transient: never persisted, correlated later via its transaction id.
type PaymentIntent struct {
	TransactionID  string  `json:"transactionId"`
	OrderID        string  `json:"orderId"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	WebhookURL     string  `json:"webhookUrl"`
	MockPaymentURL string  `json:"mockPaymentUrl"`
}

// Receipt is the document uploaded to object storage after a successful
// payment.
type Receipt struct {
	OrderID       string      `json:"orderId"`
	TransactionID string      `json:"transactionId"`
	Amount        float64     `json:"amount"`
	Currency      string      `json:"currency"`
	Items         []OrderItem `json:"items"`
	PaidAt        string      `json:"paidAt"`
	Status        string      `json:"status"`
}
