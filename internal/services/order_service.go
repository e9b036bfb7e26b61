package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/observability"
	"github.com/ventia/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates missing or malformed order data.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = errors.New("order service: order not found")
	// ErrOrderForbidden indicates the order belongs to another user.
	ErrOrderForbidden = errors.New("order service: order owned by another user")
	// ErrOrderNotCancelable indicates the order status forbids cancellation.
	ErrOrderNotCancelable = errors.New("order service: order can no longer be cancelled")
	// ErrOrderProductNotFound indicates a requested product is missing or inactive.
	ErrOrderProductNotFound = errors.New("order service: product not found")
)

// InsufficientStockError reports a stock shortage with enough detail to
// build the customer-facing message.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("order service: insufficient stock for %s (available %d, requested %d)",
		e.ProductName, e.Available, e.Requested)
}

// CustomerMessage renders the shortage in the voice the chat uses.
func (e *InsufficientStockError) CustomerMessage() string {
	return fmt.Sprintf("Stock insuficiente para '%s'. Disponible: %d, Solicitado: %d",
		e.ProductName, e.Available, e.Requested)
}

// OrderServiceDeps bundles constructor inputs for the order service.
type OrderServiceDeps struct {
	Orders  repositories.OrderRepository
	Metrics *observability.Metrics
	Clock   func() time.Time
}

type orderService struct {
	repo    repositories.OrderRepository
	metrics *observability.Metrics
	clock   func() time.Time
}

// NewOrderService constructs the order service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &orderService{repo: deps.Orders, metrics: deps.Metrics, clock: func() time.Time { return clock().UTC() }}, nil
}

// CreateFromChat commits an order for the conversation. All lines succeed or
// none do; stock is decremented in the same transaction.
func (s *orderService) CreateFromChat(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error) {
	if strings.TrimSpace(input.UserID) == "" || len(input.Items) == 0 {
		return ChatOrderResult{}, ErrOrderInvalidInput
	}

	lines := make([]domain.OrderLine, 0, len(input.Items))
	for _, item := range input.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			return ChatOrderResult{}, ErrOrderInvalidInput
		}
		lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	notes := "Creado desde chatbot"
	if extra := strings.TrimSpace(input.Notes); extra != "" {
		notes += "\n" + extra
	}

	order, err := s.repo.Create(ctx, domain.Order{
		UserID:          input.UserID,
		SessionID:       input.SessionID,
		Status:          domain.OrderStatusConfirmed,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingAddress: input.ShippingAddress,
		ContactPhone:    input.ContactPhone,
		ContactEmail:    input.ContactEmail,
		InternalNotes:   notes,
		Lines:           lines,
	})
	if err != nil {
		return ChatOrderResult{}, mapOrderError(err)
	}

	s.metrics.RecordOrderCreated(ctx)

	number := orderNumber(order.ID)
	total, _ := order.Total.Float64()
	return ChatOrderResult{
		Order:       order,
		OrderNumber: number,
		Message:     fmt.Sprintf("Pedido #%s creado exitosamente. Total: $%.2f", shortOrderRef(order.ID), total),
	}, nil
}

func (s *orderService) Cancel(ctx context.Context, orderID, userID, reason string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}
	if userID != "" {
		if _, err := s.Get(ctx, orderID, userID); err != nil {
			return domain.Order{}, err
		}
	}

	order, err := s.repo.Cancel(ctx, orderID, reason)
	if err != nil {
		return domain.Order{}, mapOrderError(err)
	}

	s.metrics.RecordOrderCanceled(ctx)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID, userID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderInvalidInput
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapOrderError(err)
	}
	if userID != "" && order.UserID != userID {
		return domain.Order{}, ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrOrderInvalidInput
	}

	orders, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("order service: list: %w", err)
	}
	return orders, nil
}

func mapOrderError(err error) error {
	var orderErr *repositories.OrderError
	if !errors.As(err, &orderErr) {
		return fmt.Errorf("order service: %w", err)
	}
	switch orderErr.Code {
	case repositories.OrderErrorNotFound:
		return ErrOrderNotFound
	case repositories.OrderErrorProductNotFound:
		return ErrOrderProductNotFound
	case repositories.OrderErrorInvalidState:
		return ErrOrderNotCancelable
	case repositories.OrderErrorInsufficientStock:
		return &InsufficientStockError{
			ProductName: orderErr.ProductName,
			Available:   orderErr.Available,
			Requested:   orderErr.Requested,
		}
	default:
		return fmt.Errorf("order service: %w", err)
	}
}

// orderNumber renders the external order reference from the internal id.
// References are always ORD- plus eight uppercase hex digits, whatever
// alphabet the id generator uses.
func orderNumber(orderID string) string {
	return "ORD-" + shortOrderRef(orderID)
}

func shortOrderRef(orderID string) string {
	ref := strings.ToUpper(hex.EncodeToString([]byte(orderID)))
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}
