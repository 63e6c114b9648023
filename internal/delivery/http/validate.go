package http

import (
	"net/url"

	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
	"github.com/beautystore/backend/internal/service"
)

// Explicit validation functions per input type, invoked before the core is
// called. Each returns the full list of field errors rather than stopping at
// the first.

func validateCreateOrder(req *CreateOrderRequest) []FieldError {
	var errs []FieldError
	if len(req.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "must contain at least one item"})
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			errs = append(errs, FieldError{Field: "items.productId", Message: "must not be empty"})
		}
		if item.Quantity < 1 {
			errs = append(errs, FieldError{Field: "items.quantity", Message: "must be at least 1"})
		}
	}
	return errs
}

func validateWebhookPayload(p *entity.WebhookPayload) []FieldError {
	var errs []FieldError
	if p.EventID == "" {
		errs = append(errs, FieldError{Field: "eventId", Message: "must not be empty"})
	}
	if p.TransactionID == "" {
		errs = append(errs, FieldError{Field: "transactionId", Message: "must not be empty"})
	}
	if p.EventType != entity.EventPaymentSuccess && p.EventType != entity.EventPaymentFailed {
		errs = append(errs, FieldError{Field: "eventType", Message: "must be payment.success or payment.failed"})
	}
	return errs
}

func validateCreateProduct(input *service.CreateProductInput) []FieldError {
	var errs []FieldError
	if input.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "must not be empty"})
	}
	if input.Price < 0 {
		errs = append(errs, FieldError{Field: "price", Message: "must not be negative"})
	}
	if input.Stock < 0 {
		errs = append(errs, FieldError{Field: "stock", Message: "must not be negative"})
	}
	return errs
}

func validateProductPatch(patch *repository.ProductPatch) []FieldError {
	var errs []FieldError
	if patch.Name != nil && *patch.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "must not be empty"})
	}
	if patch.Price != nil && *patch.Price < 0 {
		errs = append(errs, FieldError{Field: "price", Message: "must not be negative"})
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		errs = append(errs, FieldError{Field: "stock", Message: "must not be negative"})
	}
	return errs
}

func orderQueryFrom(q url.Values) (entity.OrderStatus, repository.Page, []FieldError) {
	var errs []FieldError
	status := entity.OrderStatus(q.Get("status"))
	switch status {
	case "", entity.OrderCreated, entity.OrderPaymentPending, entity.OrderPaid, entity.OrderFailed, entity.OrderCanceled:
	default:
		errs = append(errs, FieldError{Field: "status", Message: "unknown order status"})
	}
	return status, pageFrom(q.Get("page"), q.Get("limit")), errs
}
