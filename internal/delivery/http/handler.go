package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/beautystore/backend/internal/apperr"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/repository"
	"github.com/beautystore/backend/internal/service"
)

// Handler handles HTTP requests for the storefront API.
type Handler struct {
	orderSvc   *service.OrderService
	paymentSvc *service.PaymentService
	productSvc *service.ProductService
}

func NewHandler(orderSvc *service.OrderService, paymentSvc *service.PaymentService, productSvc *service.ProductService) *Handler {
	return &Handler{
		orderSvc:   orderSvc,
		paymentSvc: paymentSvc,
		productSvc: productSvc,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("POST /api/admin/products", requireAdmin(h.handleCreateProduct))
	mux.HandleFunc("PATCH /api/admin/products/{id}", requireAdmin(h.handleUpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", requireAdmin(h.handleDeleteProduct))

	mux.HandleFunc("POST /api/orders", requireUser(h.handleCreateOrder))
	mux.HandleFunc("GET /api/orders", requireUser(h.handleListMyOrders))
	mux.HandleFunc("GET /api/orders/{id}", requireUser(h.handleGetOrder))
	mux.HandleFunc("GET /api/admin/orders", requireAdmin(h.handleListAllOrders))

	mux.HandleFunc("POST /api/orders/{id}/pay", requireUser(h.handleInitiatePayment))
	mux.HandleFunc("POST /api/payments/webhook", h.handleWebhook)
	mux.HandleFunc("GET /api/payments/mock/{transactionId}/success", h.handleMockPayment(true))
	mux.HandleFunc("GET /api/payments/mock/{transactionId}/fail", h.handleMockPayment(false))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// --- Products ---

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := productFilterFromQuery(r.URL.Query())
	page, err := h.productSvc.FindActive(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.productSvc.FindByIDOrFail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input service.CreateProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if errs := validateCreateProduct(&input); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	product, err := h.productSvc.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch repository.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if errs := validateProductPatch(&patch); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	product, err := h.productSvc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.URL.Query().Get("permanent") == "true" {
		if err := h.productSvc.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	product, err := h.productSvc.SoftDelete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// --- Orders ---

// CreateOrderRequest is the order creation body.
type CreateOrderRequest struct {
	Items []service.OrderItemRequest `json:"items"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if errs := validateCreateOrder(&req); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	order, err := h.orderSvc.Create(r.Context(), identityFrom(r).UserID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleListMyOrders(w http.ResponseWriter, r *http.Request) {
	status, page, errs := orderQueryFrom(r.URL.Query())
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	orders, err := h.orderSvc.FindByUser(r.Context(), identityFrom(r).UserID, status, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	order, err := h.orderSvc.FindByIDForUser(r.Context(), r.PathValue("id"), id.UserID, id.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	status, page, errs := orderQueryFrom(r.URL.Query())
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	orders, err := h.orderSvc.FindAll(r.Context(), status, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// --- Payments ---

func (h *Handler) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	intent, err := h.paymentSvc.IssuePaymentIntent(r.Context(), r.PathValue("id"), identityFrom(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact raw bytes; read them before decoding.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.New(apperr.Validation, "failed to read request body"))
		return
	}

	var payload entity.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		writeError(w, apperr.New(apperr.Validation, "invalid webhook payload"))
		return
	}
	if errs := validateWebhookPayload(&payload); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	result, err := h.paymentSvc.ProcessWebhook(r.Context(), &payload, rawBody, r.Header.Get("X-Webhook-Signature"))
	if err != nil {
		writeError(w, err)
		return
	}
	// All recognized outcomes, including idempotent replays and soft
	// failures, answer 200 so the gateway stops retrying.
	writeJSON(w, http.StatusOK, result)
}

// MockPaymentResponse carries a signed payload ready to replay against the
// webhook endpoint.
type MockPaymentResponse struct {
	Message   string          `json:"message"`
	Webhook   json.RawMessage `json:"webhook"`
	Signature string          `json:"signature"`
}

func (h *Handler) handleMockPayment(success bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, raw, sig, err := h.paymentSvc.SimulatePayment(r.PathValue("transactionId"), success)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MockPaymentResponse{
			Message:   "Use this payload to call POST /api/payments/webhook",
			Webhook:   json.RawMessage(raw),
			Signature: sig,
		})
	}
}

// --- Helpers ---

func productFilterFromQuery(q map[string][]string) repository.ProductFilter {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	filter := repository.ProductFilter{
		Search:   get("search"),
		Category: get("category"),
		Page:     pageFrom(get("page"), get("limit")),
	}
	if v, err := strconv.ParseFloat(get("minPrice"), 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(get("maxPrice"), 64); err == nil {
		filter.MaxPrice = &v
	}
	return filter
}

func pageFrom(pageStr, limitStr string) repository.Page {
	page := repository.Page{}
	if v, err := strconv.Atoi(pageStr); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(limitStr); err == nil {
		page.Limit = v
	}
	return page.Normalize()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}
