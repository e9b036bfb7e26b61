package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/services"
)

// faqTopicWords route a turn to the knowledge base instead of the catalog.
var faqTopicWords = []string{
	"política", "devolución", "devolver", "garantía", "cambio", "horario", "hora",
	"abre", "cierra", "ubicación", "dirección", "dónde", "donde está", "sucursal",
	"local", "pago", "pagar", "tarjeta", "efectivo", "transferencia", "envío",
	"envio", "delivery", "entrega", "domicilio", "cómo funciona", "qué hacen",
	"quiénes son", "quién", "contacto", "teléfono", "whatsapp", "email",
}

const (
	// maxListedProducts caps the product list rendered into one reply.
	maxListedProducts = 10
	// lowStockThreshold flips the availability marker to a warning.
	lowStockThreshold = 5
	// fewResultsThreshold hands small result sets to the sales agent for a
	// closer pitch.
	fewResultsThreshold = 5
)

// RetrieverDeps bundles constructor inputs for the retriever agent.
type RetrieverDeps struct {
	Catalog   services.CatalogService
	Knowledge services.KnowledgeService
}

// Retriever answers store questions from the FAQ corpus and runs catalog
// searches. Small result sets are transferred to sales for persuasion.
type Retriever struct {
	catalog   services.CatalogService
	knowledge services.KnowledgeService
}

// NewRetriever constructs the retriever agent.
func NewRetriever(deps RetrieverDeps) (*Retriever, error) {
	if deps.Catalog == nil {
		return nil, errors.New("retriever: catalog service is required")
	}
	if deps.Knowledge == nil {
		return nil, errors.New("retriever: knowledge service is required")
	}
	return &Retriever{catalog: deps.Catalog, knowledge: deps.Knowledge}, nil
}

// Name implements the Agent interface.
func (r *Retriever) Name() domain.AgentName { return domain.AgentRetriever }

// Handle implements the Agent interface.
func (r *Retriever) Handle(ctx context.Context, turn *Turn) (Response, error) {
	if textutil.ContainsAnyFolded(turn.Message, faqTopicWords) {
		return r.answerFAQ(ctx, turn)
	}
	return r.searchProducts(ctx, turn)
}

func (r *Retriever) answerFAQ(ctx context.Context, turn *Turn) (Response, error) {
	answer := r.knowledge.Context(ctx, turn.Message, 3)
	if answer == "" {
		return Response{
			Text:       "No tengo esa información a la mano, pero puedo ayudarte a encontrar productos. ¿Qué estás buscando?",
			TransferTo: domain.AgentSales,
		}, nil
	}
	return Response{Text: InfoLeadIn(turn.Session.Style) + answer}, nil
}

func (r *Retriever) searchProducts(ctx context.Context, turn *Turn) (Response, error) {
	products, err := r.catalog.Search(ctx, turn.Message, maxListedProducts*2)
	if err != nil {
		return Response{}, fmt.Errorf("retriever: search: %w", err)
	}

	available := make([]domain.Product, 0, len(products))
	seen := map[string]struct{}{}
	for _, product := range products {
		if product.QuantityAvailable <= 0 {
			continue
		}
		if _, dup := seen[product.ID]; dup {
			continue
		}
		seen[product.ID] = struct{}{}
		available = append(available, product)
	}

	if len(available) == 0 {
		return Response{
			Text:       "No encontré productos que coincidan con tu búsqueda. ¿Puedes darme más detalles, como la marca o el tipo de producto?",
			TransferTo: domain.AgentSales,
		}, nil
	}

	turn.Session.SearchResults = toHits(available)
	rememberDiscussed(turn.Session, available)

	var b strings.Builder
	b.WriteString(SearchGreeting(turn.Session.Style))
	b.WriteString("\n")
	for i, product := range available {
		if i == maxListedProducts {
			break
		}
		marker := fmt.Sprintf("✅ %d disponibles", product.QuantityAvailable)
		if product.QuantityAvailable <= lowStockThreshold {
			marker = fmt.Sprintf("⚠️ ¡Solo quedan %d!", product.QuantityAvailable)
		}
		fmt.Fprintf(&b, "%d. **%s** - $%s (%s)\n",
			i+1, product.Name, product.FinalPrice().StringFixed(2), marker)
	}

	response := Response{Text: strings.TrimRight(b.String(), "\n")}
	if len(available) <= fewResultsThreshold {
		response.TransferTo = domain.AgentSales
	}
	return response, nil
}

func toHits(products []domain.Product) []domain.ProductHit {
	hits := make([]domain.ProductHit, 0, len(products))
	for _, product := range products {
		hits = append(hits, domain.ProductHit{
			ID:                product.ID,
			Name:              product.Name,
			FinalPrice:        product.FinalPrice(),
			QuantityAvailable: product.QuantityAvailable,
			Category:          product.Category,
			Brand:             product.Brand,
		})
	}
	return hits
}

func rememberDiscussed(session *domain.Session, products []domain.Product) {
	names := make([]string, 0, 3)
	for i, product := range products {
		if i == 3 {
			break
		}
		names = append(names, product.Name)
	}
	if session.Slots == nil {
		session.Slots = map[string]string{}
	}
	session.Slots["discussed_products"] = strings.Join(names, ", ")
}
