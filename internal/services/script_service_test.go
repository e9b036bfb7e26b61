package services

import (
	"context"
	"strings"
	"testing"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
)

type scriptSessionStub struct {
	scripts map[string]*domain.ScriptSession
}

func newScriptSessionStub() *scriptSessionStub {
	return &scriptSessionStub{scripts: map[string]*domain.ScriptSession{}}
}

func (s *scriptSessionStub) Get(context.Context, string) (*domain.Session, error) { return nil, nil }
func (s *scriptSessionStub) Save(context.Context, *domain.Session) error          { return nil }
func (s *scriptSessionStub) Delete(context.Context, string) error                 { return nil }
func (s *scriptSessionStub) ExtendTTL(context.Context, string) error              { return nil }
func (s *scriptSessionStub) Count(context.Context) (int, error)                   { return 0, nil }
func (s *scriptSessionStub) Ping(context.Context) error                           { return nil }

func (s *scriptSessionStub) GetScript(_ context.Context, sessionID string) (*domain.ScriptSession, error) {
	return s.scripts[sessionID], nil
}

func (s *scriptSessionStub) SaveScript(_ context.Context, script *domain.ScriptSession) error {
	s.scripts[script.SessionID] = script
	return nil
}

func (s *scriptSessionStub) DeleteScript(_ context.Context, sessionID string) error {
	delete(s.scripts, sessionID)
	return nil
}

type scriptTranscriptStub struct {
	records []domain.TranscriptRecord
}

func (s *scriptTranscriptStub) Append(_ context.Context, record domain.TranscriptRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *scriptTranscriptStub) History(context.Context, string, string, int, int) ([]domain.TranscriptRecord, error) {
	return nil, nil
}

func (s *scriptTranscriptStub) Conversations(context.Context, string, int, int) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (s *scriptTranscriptStub) EditMessage(context.Context, string, string, string) (domain.TranscriptRecord, error) {
	return domain.TranscriptRecord{}, nil
}

func (s *scriptTranscriptStub) DeleteMessage(context.Context, string, string) error { return nil }

func (s *scriptTranscriptStub) Archive(context.Context, string, string) (int, error) { return 0, nil }

func (s *scriptTranscriptStub) Stats(context.Context, string) (domain.TranscriptStats, error) {
	return domain.TranscriptStats{}, nil
}

type scriptCatalogStub struct {
	byBarcodes func(ctx context.Context, barcodes []string) ([]domain.Product, error)
}

func (s *scriptCatalogStub) Product(context.Context, string) (domain.Product, error) {
	return domain.Product{}, ErrProductNotFound
}

func (s *scriptCatalogStub) ProductByBarcode(context.Context, string) (domain.Product, error) {
	return domain.Product{}, ErrProductNotFound
}

func (s *scriptCatalogStub) ProductsByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error) {
	if s.byBarcodes == nil {
		return nil, nil
	}
	return s.byBarcodes(ctx, barcodes)
}

func (s *scriptCatalogStub) Search(context.Context, string, int) ([]domain.Product, error) {
	return nil, nil
}

func (s *scriptCatalogStub) List(context.Context, CatalogFilter) ([]domain.Product, error) {
	return nil, nil
}

type scriptOrderStub struct {
	createFn func(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error)
}

func (s *scriptOrderStub) CreateFromChat(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error) {
	if s.createFn == nil {
		return ChatOrderResult{}, nil
	}
	return s.createFn(ctx, input)
}

func (s *scriptOrderStub) Cancel(context.Context, string, string, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *scriptOrderStub) Get(context.Context, string, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *scriptOrderStub) ListForUser(context.Context, string, int, int) ([]domain.Order, error) {
	return nil, nil
}

type scriptLLMStub struct {
	completeFn func(ctx context.Context, req llm.Request) (string, error)
}

func (s *scriptLLMStub) Complete(ctx context.Context, req llm.Request) (string, error) {
	if s.completeFn == nil {
		return "", llm.ErrUnavailable
	}
	return s.completeFn(ctx, req)
}

func scriptProduct(t *testing.T, id, barcode, name, price string, qty int) domain.Product {
	t.Helper()
	return domain.Product{
		ID:                id,
		Barcode:           barcode,
		Name:              name,
		UnitCost:          decimalFromString(t, price),
		QuantityAvailable: qty,
		Active:            true,
	}
}

func newScriptServiceForTest(t *testing.T, sessions *scriptSessionStub, transcripts *scriptTranscriptStub, catalog *scriptCatalogStub, orders *scriptOrderStub) ScriptService {
	t.Helper()
	comparison, err := NewComparisonService(ComparisonServiceDeps{Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewComparisonService: %v", err)
	}
	service, err := NewScriptService(ScriptServiceDeps{
		Sessions:    sessions,
		Transcripts: transcripts,
		Catalog:     catalog,
		Comparison:  comparison,
		Orders:      orders,
		LLM:         &scriptLLMStub{},
	})
	if err != nil {
		t.Fatalf("NewScriptService: %v", err)
	}
	return service
}

func TestProcessScriptWithoutProducts(t *testing.T) {
	service := newScriptServiceForTest(t, newScriptSessionStub(), &scriptTranscriptStub{}, &scriptCatalogStub{}, &scriptOrderStub{})

	result, err := service.Process(context.Background(), domain.Script{SessionID: "s1", UserID: "u1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure without products")
	}
	if result.NextStep != domain.NextStepRetry {
		t.Fatalf("NextStep = %q, want retry", result.NextStep)
	}
}

func TestProcessScriptUnknownBarcodes(t *testing.T) {
	service := newScriptServiceForTest(t, newScriptSessionStub(), &scriptTranscriptStub{}, &scriptCatalogStub{}, &scriptOrderStub{})

	result, err := service.Process(context.Background(), domain.Script{
		SessionID: "s1",
		UserID:    "u1",
		Products:  []domain.ScriptProduct{{Barcode: "999", Priority: domain.PriorityAlta}},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.NextStep != domain.NextStepShowAlternatives {
		t.Fatalf("NextStep = %q, want show_alternatives", result.NextStep)
	}
	if !strings.Contains(result.Message, "999") {
		t.Fatalf("missing codes should be named, got %q", result.Message)
	}
}

func TestProcessScriptPitchesBestAndSavesSession(t *testing.T) {
	sessions := newScriptSessionStub()
	transcripts := &scriptTranscriptStub{}
	catalog := &scriptCatalogStub{
		byBarcodes: func(ctx context.Context, barcodes []string) ([]domain.Product, error) {
			return []domain.Product{
				scriptProduct(t, "p1", "111", "Nike Air Max", "120.00", 12),
				scriptProduct(t, "p2", "222", "Puma Velocity", "80.00", 12),
			}, nil
		},
	}
	service := newScriptServiceForTest(t, sessions, transcripts, catalog, &scriptOrderStub{})

	result, err := service.Process(context.Background(), domain.Script{
		SessionID: "s1",
		UserID:    "u1",
		Products: []domain.ScriptProduct{
			{Barcode: "111", Priority: domain.PriorityAlta},
			{Barcode: "222", Priority: domain.PriorityBaja},
		},
		Context: "Cliente busca zapatos para correr",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if result.NextStep != domain.NextStepConfirmBuy {
		t.Fatalf("NextStep = %q, want confirm_buy", result.NextStep)
	}
	if result.BestProduct == nil || result.BestProduct.ID != "p1" {
		t.Fatalf("BestProduct = %+v, want p1 (alta priority)", result.BestProduct)
	}
	if !strings.Contains(result.Message, "Te recomiendo el Nike Air Max a $120.00.") {
		t.Fatalf("pitch fallback missing:\n%s", result.Message)
	}
	if !strings.Contains(result.Message, "**Productos comparados:**") {
		t.Fatalf("comparison section missing:\n%s", result.Message)
	}
	if !strings.Contains(result.Message, "⭐ **Nike Air Max** - Precio: $120.00") {
		t.Fatalf("best bullet missing:\n%s", result.Message)
	}
	if !strings.Contains(result.Message, "• **Puma Velocity** - Precio: $80.00") {
		t.Fatalf("runner-up bullet missing:\n%s", result.Message)
	}
	if !strings.Contains(result.Message, "Responde **\"sí\"** o **\"no\"**") {
		t.Fatalf("closing question missing:\n%s", result.Message)
	}

	saved := sessions.scripts["s1"]
	if saved == nil {
		t.Fatal("script session was not saved")
	}
	if saved.BestProductID != "p1" || len(saved.Products) != 2 || saved.CurrentIndex != 0 {
		t.Fatalf("script session = %+v", saved)
	}
	if len(transcripts.records) != 2 {
		t.Fatalf("transcript records = %d, want 2", len(transcripts.records))
	}
	if transcripts.records[0].Body != "Cliente busca zapatos para correr" {
		t.Fatalf("user record = %q", transcripts.records[0].Body)
	}
}

func continuableSession(t *testing.T, sessions *scriptSessionStub) {
	t.Helper()
	sessions.scripts["s1"] = &domain.ScriptSession{
		SessionID:     "s1",
		BestProductID: "p1",
		Products: []domain.ScriptProductRef{
			{ID: "p1", Name: "Nike Air Max", FinalPrice: decimalFromString(t, "120.00")},
			{ID: "p2", Name: "Puma Velocity", FinalPrice: decimalFromString(t, "80.00")},
		},
	}
}

func TestContinueScriptExpired(t *testing.T) {
	service := newScriptServiceForTest(t, newScriptSessionStub(), &scriptTranscriptStub{}, &scriptCatalogStub{}, &scriptOrderStub{})

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "sí")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepNewConversation {
		t.Fatalf("NextStep = %q, want new_conversation", result.NextStep)
	}
	if !strings.Contains(result.Message, "expiró") {
		t.Fatalf("Message = %q", result.Message)
	}
}

func TestContinueScriptApproval(t *testing.T) {
	sessions := newScriptSessionStub()
	continuableSession(t, sessions)
	service := newScriptServiceForTest(t, sessions, &scriptTranscriptStub{}, &scriptCatalogStub{}, &scriptOrderStub{})

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "sí, dale")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepNeedShipping {
		t.Fatalf("NextStep = %q, want need_shipping", result.NextStep)
	}
	if sessions.scripts["s1"] == nil {
		t.Fatal("approval must keep the script session for the shipping turn")
	}
	if !sessions.scripts["s1"].Approved {
		t.Fatal("approval must be recorded on the script session")
	}
}

func TestContinueScriptRejectionOffersAlternative(t *testing.T) {
	sessions := newScriptSessionStub()
	continuableSession(t, sessions)
	service := newScriptServiceForTest(t, sessions, &scriptTranscriptStub{}, &scriptCatalogStub{}, &scriptOrderStub{})

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "no, muy caras")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepConfirmBuy {
		t.Fatalf("NextStep = %q, want confirm_buy", result.NextStep)
	}
	if !strings.Contains(result.Message, "Puma Velocity") || !strings.Contains(result.Message, "$80.00") {
		t.Fatalf("alternative message = %q", result.Message)
	}
	if sessions.scripts["s1"].CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", sessions.scripts["s1"].CurrentIndex)
	}

	result, err = service.ContinueScript(context.Background(), "s1", "u1", "no")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepRetry {
		t.Fatalf("NextStep after exhausting list = %q, want retry", result.NextStep)
	}
	if sessions.scripts["s1"] != nil {
		t.Fatal("exhausted script session should be deleted")
	}
}

func TestContinueScriptShippingCreatesOrder(t *testing.T) {
	sessions := newScriptSessionStub()
	continuableSession(t, sessions)
	var captured ChatOrderInput
	orders := &scriptOrderStub{
		createFn: func(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error) {
			captured = input
			return ChatOrderResult{
				Order:       domain.Order{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV"},
				OrderNumber: "ORD-30314152",
				Message:     "Pedido #30314152 creado exitosamente. Total: $120.00",
			}, nil
		},
	}
	service := newScriptServiceForTest(t, sessions, &scriptTranscriptStub{}, &scriptCatalogStub{}, orders)

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "Av. Solano 12-34, Cuenca. Talla 42")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepOrderCompleted {
		t.Fatalf("NextStep = %q, want order_completed", result.NextStep)
	}
	if result.OrderNumber != "ORD-30314152" {
		t.Fatalf("OrderNumber = %q", result.OrderNumber)
	}
	if captured.Items[0].ProductID != "p1" || captured.Items[0].Quantity != 1 {
		t.Fatalf("order items = %+v", captured.Items)
	}
	if captured.Notes != "Talla solicitada: 42" {
		t.Fatalf("Notes = %q", captured.Notes)
	}

	saved := sessions.scripts["s1"]
	if saved == nil {
		t.Fatal("completed script session should record the order")
	}
	if saved.OrderID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Fatalf("OrderID = %q", saved.OrderID)
	}
	if saved.ShippingInfo != "Av. Solano 12-34, Cuenca. Talla 42" {
		t.Fatalf("ShippingInfo = %q", saved.ShippingInfo)
	}
}

func TestContinueScriptAfterCompletedOrder(t *testing.T) {
	sessions := newScriptSessionStub()
	continuableSession(t, sessions)
	sessions.scripts["s1"].OrderID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	var orderCalls int
	orders := &scriptOrderStub{
		createFn: func(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error) {
			orderCalls++
			return ChatOrderResult{}, nil
		},
	}
	service := newScriptServiceForTest(t, sessions, &scriptTranscriptStub{}, &scriptCatalogStub{}, orders)

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "Av. Solano 12-34 otra vez")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepNewConversation {
		t.Fatalf("NextStep = %q, want new_conversation", result.NextStep)
	}
	if orderCalls != 0 {
		t.Fatalf("a reply after completion must not reorder, got %d order calls", orderCalls)
	}
	if sessions.scripts["s1"] != nil {
		t.Fatal("completed script session should be cleaned up on re-entry")
	}
}

func TestContinueScriptInsufficientStock(t *testing.T) {
	sessions := newScriptSessionStub()
	continuableSession(t, sessions)
	orders := &scriptOrderStub{
		createFn: func(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error) {
			return ChatOrderResult{}, &InsufficientStockError{ProductName: "Nike Air Max", Available: 0, Requested: 1}
		},
	}
	service := newScriptServiceForTest(t, sessions, &scriptTranscriptStub{}, &scriptCatalogStub{}, orders)

	result, err := service.ContinueScript(context.Background(), "s1", "u1", "Av. Solano 12-34")
	if err != nil {
		t.Fatalf("ContinueScript: %v", err)
	}
	if result.NextStep != domain.NextStepRetry {
		t.Fatalf("NextStep = %q, want retry", result.NextStep)
	}
	if !strings.Contains(result.Message, "Stock insuficiente para 'Nike Air Max'") {
		t.Fatalf("Message = %q", result.Message)
	}
	if sessions.scripts["s1"] == nil {
		t.Fatal("failed order should keep the script session for a retry")
	}
}
