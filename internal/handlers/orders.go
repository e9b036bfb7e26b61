package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/platform/httpx"
	"github.com/ventia/api/internal/platform/pagination"
	"github.com/ventia/api/internal/services"
)

type createOrderRequest struct {
	SessionID       string             `json:"session_id"`
	Items           []orderItemRequest `json:"items"`
	ShippingAddress string             `json:"shipping_address"`
	ContactPhone    string             `json:"contact_phone"`
	ContactEmail    string             `json:"contact_email"`
	Notes           string             `json:"notes"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderLinePayload struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	PaymentStatus   string             `json:"payment_status"`
	Subtotal        string             `json:"subtotal"`
	Tax             string             `json:"tax"`
	Shipping        string             `json:"shipping"`
	Discount        string             `json:"discount"`
	Total           string             `json:"total"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
	SessionID       string             `json:"session_id,omitempty"`
	Lines           []orderLinePayload `json:"lines"`
	CreatedAt       string             `json:"created_at"`
}

// OrderHandlersDeps bundles constructor inputs for the order handlers.
type OrderHandlersDeps struct {
	Orders      services.OrderService
	Idempotency func(http.Handler) http.Handler
}

// OrderHandlers exposes order creation and management for authenticated users.
type OrderHandlers struct {
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
}

// NewOrderHandlers constructs the order handlers.
func NewOrderHandlers(deps OrderHandlersDeps) (*OrderHandlers, error) {
	if deps.Orders == nil {
		return nil, errors.New("order handlers: order service is required")
	}
	idempotency := deps.Idempotency
	if idempotency == nil {
		idempotency = func(next http.Handler) http.Handler { return next }
	}
	return &OrderHandlers{orders: deps.Orders, idempotency: idempotency}, nil
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(auth.RequireAuthenticated())
	r.With(h.idempotency).Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Post("/{orderID}:cancel", h.cancel)
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	items := make([]services.ChatOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.ChatOrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	result, err := h.orders.CreateFromChat(ctx, services.ChatOrderInput{
		UserID:          identity.UserID,
		SessionID:       strings.TrimSpace(req.SessionID),
		Items:           items,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		ContactPhone:    strings.TrimSpace(req.ContactPhone),
		ContactEmail:    strings.TrimSpace(req.ContactEmail),
		Notes:           strings.TrimSpace(req.Notes),
	})

	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", stockErr.CustomerMessage(), http.StatusConflict))
		return
	case errors.Is(err, services.ErrOrderProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "one of the products does not exist", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "at least one item with a positive quantity is required", http.StatusBadRequest))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("order_failed", "could not create the order", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"order_number": result.OrderNumber,
		"message":      result.Message,
		"order":        toOrderPayload(result.Order),
	})
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	params, err := pagination.Parse(r, pagination.Options{DefaultLimit: 20})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit and offset must be positive integers", http.StatusBadRequest))
		return
	}

	orders, err := h.orders.ListForUser(ctx, identity.UserID, params.Limit, params.Offset)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_failed", "could not list orders", http.StatusInternalServerError))
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, toOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	userScope := identity.UserID
	if identity.IsAdmin() {
		userScope = ""
	}

	order, err := h.orders.Get(ctx, orderID, userScope)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("orders_failed", "could not load the order", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

func (h *OrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	var req cancelOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Cancelado por el cliente"
	}

	userScope := identity.UserID
	if identity.IsAdmin() {
		userScope = ""
	}

	order, err := h.orders.Cancel(ctx, orderID, userScope, reason)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "order belongs to another user", http.StatusForbidden))
		return
	case errors.Is(err, services.ErrOrderNotCancelable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_cancelable", "order can no longer be cancelled", http.StatusConflict))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("cancel_failed", "could not cancel the order", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

func toOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			SKU:         line.ProductSKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Subtotal:    line.Subtotal().StringFixed(2),
		})
	}
	return orderPayload{
		ID:              order.ID,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		Subtotal:        order.Subtotal.StringFixed(2),
		Tax:             order.Tax.StringFixed(2),
		Shipping:        order.Shipping.StringFixed(2),
		Discount:        order.Discount.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		ShippingAddress: order.ShippingAddress,
		SessionID:       order.SessionID,
		Lines:           lines,
		CreatedAt:       order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
