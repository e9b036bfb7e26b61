package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/services"
)

var (
	approvalWords  = []string{"si", "sí", "yes", "ok", "dale", "va", "claro", "perfecto", "bueno"}
	rejectionWords = []string{"no", "nop", "nope", "nah", "otra", "diferente", "siguiente"}

	// shoeSizePattern matches European shoe sizes 35-50 anywhere in a message.
	shoeSizePattern = regexp.MustCompile(`\b(3[5-9]|4[0-9]|50)\b`)
)

// CheckoutDeps bundles constructor inputs for the checkout agent.
type CheckoutDeps struct {
	Orders services.OrderService
}

// Checkout walks the customer through confirm, address and payment, then
// commits the order.
type Checkout struct {
	orders services.OrderService
}

// NewCheckout constructs the checkout agent.
func NewCheckout(deps CheckoutDeps) (*Checkout, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout: order service is required")
	}
	return &Checkout{orders: deps.Orders}, nil
}

// Name implements the Agent interface.
func (c *Checkout) Name() domain.AgentName { return domain.AgentCheckout }

// Handle implements the Agent interface.
func (c *Checkout) Handle(ctx context.Context, turn *Turn) (Response, error) {
	session := turn.Session
	if session.CheckoutStage == nil {
		return c.start(session)
	}

	switch *session.CheckoutStage {
	case domain.CheckoutStageConfirm:
		return c.confirm(turn)
	case domain.CheckoutStageAddress:
		return c.takeAddress(turn)
	case domain.CheckoutStagePayment:
		return c.takePayment(ctx, turn)
	case domain.CheckoutStageComplete:
		session.CheckoutStage = nil
		return Response{Text: "Tu pedido ya está registrado. ¿Te ayudo con algo más?"}, nil
	default:
		session.CheckoutStage = nil
		return c.start(session)
	}
}

func (c *Checkout) start(session *domain.Session) (Response, error) {
	if len(session.SearchResults) == 0 {
		return Response{
			Text:       "Primero busquemos el producto que quieres comprar. ¿Qué estás buscando?",
			TransferTo: domain.AgentRetriever,
		}, nil
	}

	product := session.SearchResults[0]
	session.Cart = []domain.CartItem{{ProductID: product.ID, UnitPrice: product.FinalPrice, Quantity: 1}}
	stage := domain.CheckoutStageConfirm
	session.CheckoutStage = &stage
	return Response{
		Text: fmt.Sprintf("¿Confirmas la compra de **%s** por $%s? Responde **sí** o **no**.",
			product.Name, product.FinalPrice.StringFixed(2)),
	}, nil
}

func (c *Checkout) confirm(turn *Turn) (Response, error) {
	session := turn.Session
	switch {
	case containsAnyWord(turn.Message, approvalWords):
		stage := domain.CheckoutStageAddress
		session.CheckoutStage = &stage
		return Response{Text: "¡Perfecto! ¿A qué dirección te lo enviamos? Si es calzado, dime también tu talla."}, nil
	case containsAnyWord(turn.Message, rejectionWords):
		session.CheckoutStage = nil
		session.Cart = nil
		return Response{
			Text:       "Entendido, no hay problema. ¿Quieres que te recomiende otras opciones?",
			TransferTo: domain.AgentSales,
		}, nil
	default:
		return Response{Text: "¿Me confirmas con **sí** o **no** para continuar con la compra?"}, nil
	}
}

func (c *Checkout) takeAddress(turn *Turn) (Response, error) {
	session := turn.Session
	address := strings.TrimSpace(turn.Message)
	if address == "" {
		return Response{Text: "Necesito una dirección de entrega para continuar. ¿A dónde te lo enviamos?"}, nil
	}

	if session.Slots == nil {
		session.Slots = map[string]string{}
	}
	session.Slots["shipping_address"] = address
	if size := shoeSizePattern.FindString(turn.Message); size != "" {
		session.Slots["size"] = size
	}

	stage := domain.CheckoutStagePayment
	session.CheckoutStage = &stage
	return Response{Text: "¿Cómo prefieres pagar? Aceptamos efectivo, tarjeta o transferencia."}, nil
}

func (c *Checkout) takePayment(ctx context.Context, turn *Turn) (Response, error) {
	session := turn.Session
	// Sessions stored before the cart existed reach payment with only the
	// search hit. Rebuild the cart from it.
	if len(session.Cart) == 0 && len(session.SearchResults) > 0 {
		hit := session.SearchResults[0]
		session.Cart = []domain.CartItem{{ProductID: hit.ID, UnitPrice: hit.FinalPrice, Quantity: 1}}
	}
	if len(session.Cart) == 0 {
		session.CheckoutStage = nil
		return Response{
			Text:       "Se perdió el producto seleccionado. Busquemos de nuevo, ¿qué querías comprar?",
			TransferTo: domain.AgentRetriever,
		}, nil
	}

	if session.Slots == nil {
		session.Slots = map[string]string{}
	}
	session.Slots["payment_method"] = strings.TrimSpace(turn.Message)

	notes := "Pago: " + session.Slots["payment_method"]
	if size := session.Slots["size"]; size != "" {
		notes += "\nTalla solicitada: " + size
	}

	items := make([]services.ChatOrderItem, 0, len(session.Cart))
	for _, line := range session.Cart {
		items = append(items, services.ChatOrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	result, err := c.orders.CreateFromChat(ctx, services.ChatOrderInput{
		UserID:          session.UserID,
		SessionID:       session.ID,
		Items:           items,
		ShippingAddress: session.Slots["shipping_address"],
		Notes:           notes,
	})

	var stockErr *services.InsufficientStockError
	if errors.As(err, &stockErr) {
		// Back to confirm so the customer can pick another of the shown
		// products instead of losing the whole flow.
		stage := domain.CheckoutStageConfirm
		session.CheckoutStage = &stage
		return Response{
			Text: stockErr.CustomerMessage() + " ¿Quieres llevar otro de los productos que te mostré?",
		}, nil
	}
	if err != nil {
		return Response{}, fmt.Errorf("checkout: create order: %w", err)
	}

	stage := domain.CheckoutStageComplete
	session.CheckoutStage = &stage
	session.SearchResults = nil
	session.Cart = nil
	session.Slots["last_order_number"] = result.OrderNumber

	text := result.Message
	if address := session.Slots["shipping_address"]; address != "" {
		text += "\nTe llegará a: " + address
	}
	return Response{Text: text}, nil
}
