package agents

import (
	"context"
	"strings"
	"testing"

	domain "github.com/ventia/api/internal/domain"
)

func testProduct(t *testing.T, id, name, price string, qty int) domain.Product {
	t.Helper()
	return domain.Product{
		ID:                id,
		Name:              name,
		UnitCost:          dec(t, price),
		QuantityAvailable: qty,
		Active:            true,
	}
}

func TestRetrieverAnswersFAQ(t *testing.T) {
	retriever, err := NewRetriever(RetrieverDeps{
		Catalog: &stubCatalog{},
		Knowledge: &stubKnowledge{
			contextFn: func(ctx context.Context, query string, limit int) string {
				return "Lunes a sábado de 9:00 a 19:00."
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	session := domain.NewSession("s1", "u1", fixedNow)
	session.Style = domain.StyleFormal
	resp, err := retriever.Handle(context.Background(), &Turn{Session: session, Message: "¿Cuál es el horario de atención?"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := "Con gusto le informo: Lunes a sábado de 9:00 a 19:00."
	if resp.Text != want {
		t.Fatalf("Text = %q, want %q", resp.Text, want)
	}
	if resp.TransferTo != "" {
		t.Fatalf("FAQ answers should not transfer, got %q", resp.TransferTo)
	}
}

func TestRetrieverFAQWithoutAnswerRedirects(t *testing.T) {
	retriever, err := NewRetriever(RetrieverDeps{
		Catalog:   &stubCatalog{},
		Knowledge: &stubKnowledge{},
	})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	session := domain.NewSession("s1", "u1", fixedNow)
	resp, err := retriever.Handle(context.Background(), &Turn{Session: session, Message: "¿tienen whatsapp?"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resp.Text, "¿Qué estás buscando?") {
		t.Fatalf("expected redirect to product search, got %q", resp.Text)
	}
	if resp.TransferTo != domain.AgentSales {
		t.Fatalf("an unanswered question should hand the turn to sales, got %q", resp.TransferTo)
	}
}

func TestRetrieverSearchFiltersAndTransfers(t *testing.T) {
	products := []domain.Product{
		testProduct(t, "p1", "Nike Air Max", "120.00", 8),
		testProduct(t, "p2", "Adidas Runner", "95.50", 3),
		testProduct(t, "p2", "Adidas Runner", "95.50", 3),
		testProduct(t, "p3", "Puma Velocity", "80.00", 0),
	}
	retriever, err := NewRetriever(RetrieverDeps{
		Catalog: &stubCatalog{
			searchFn: func(ctx context.Context, query string, limit int) ([]domain.Product, error) {
				return products, nil
			},
		},
		Knowledge: &stubKnowledge{},
	})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	session := domain.NewSession("s1", "u1", fixedNow)
	resp, err := retriever.Handle(context.Background(), &Turn{Session: session, Message: "busco zapatos para correr"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(session.SearchResults) != 2 {
		t.Fatalf("SearchResults = %d hits, want 2 after dedupe and stock filter", len(session.SearchResults))
	}
	if !strings.Contains(resp.Text, "1. **Nike Air Max** - $120.00 (✅ 8 disponibles)") {
		t.Fatalf("missing in-stock line, got:\n%s", resp.Text)
	}
	if !strings.Contains(resp.Text, "2. **Adidas Runner** - $95.50 (⚠️ ¡Solo quedan 3!)") {
		t.Fatalf("missing low-stock warning, got:\n%s", resp.Text)
	}
	if strings.Contains(resp.Text, "Puma") {
		t.Fatalf("out-of-stock product listed:\n%s", resp.Text)
	}
	if resp.TransferTo != domain.AgentSales {
		t.Fatalf("small result set should transfer to sales, got %q", resp.TransferTo)
	}
	if session.Slots["discussed_products"] != "Nike Air Max, Adidas Runner" {
		t.Fatalf("discussed_products = %q", session.Slots["discussed_products"])
	}
}

func TestRetrieverSearchNoMatches(t *testing.T) {
	retriever, err := NewRetriever(RetrieverDeps{
		Catalog:   &stubCatalog{},
		Knowledge: &stubKnowledge{},
	})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	session := domain.NewSession("s1", "u1", fixedNow)
	resp, err := retriever.Handle(context.Background(), &Turn{Session: session, Message: "busco un telescopio"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resp.Text, "No encontré productos") {
		t.Fatalf("expected no-results message, got %q", resp.Text)
	}
	if resp.TransferTo != domain.AgentSales {
		t.Fatalf("no results should hand the turn to sales, got %q", resp.TransferTo)
	}
}

func TestRetrieverLargeResultSetStays(t *testing.T) {
	var products []domain.Product
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		products = append(products, testProduct(t, id, "Camiseta "+id, "20.00", 10))
	}
	retriever, err := NewRetriever(RetrieverDeps{
		Catalog: &stubCatalog{
			searchFn: func(ctx context.Context, query string, limit int) ([]domain.Product, error) {
				return products, nil
			},
		},
		Knowledge: &stubKnowledge{},
	})
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	session := domain.NewSession("s1", "u1", fixedNow)
	resp, err := retriever.Handle(context.Background(), &Turn{Session: session, Message: "busco camisetas"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.TransferTo != "" {
		t.Fatalf("six results should stay with retriever, got transfer to %q", resp.TransferTo)
	}
}
