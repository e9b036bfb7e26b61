package agents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
	"github.com/ventia/api/internal/services"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func dec(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", raw, err)
	}
	return value
}

type stubLLM struct {
	completeFn func(ctx context.Context, req llm.Request) (string, error)
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	if s.completeFn == nil {
		return "", llm.ErrUnavailable
	}
	return s.completeFn(ctx, req)
}

type stubCatalog struct {
	searchFn func(ctx context.Context, query string, limit int) ([]domain.Product, error)
}

func (s *stubCatalog) Product(context.Context, string) (domain.Product, error) {
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubCatalog) ProductByBarcode(context.Context, string) (domain.Product, error) {
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubCatalog) ProductsByBarcodes(context.Context, []string) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubCatalog) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, query, limit)
}

func (s *stubCatalog) List(context.Context, services.CatalogFilter) ([]domain.Product, error) {
	return nil, nil
}

type stubKnowledge struct {
	contextFn func(ctx context.Context, query string, limit int) string
}

func (s *stubKnowledge) Search(context.Context, string, int) []services.KnowledgeEntry { return nil }

func (s *stubKnowledge) Context(ctx context.Context, query string, limit int) string {
	if s.contextFn == nil {
		return ""
	}
	return s.contextFn(ctx, query, limit)
}

func (s *stubKnowledge) Size() int { return 0 }

type stubOrders struct {
	createFn func(ctx context.Context, input services.ChatOrderInput) (services.ChatOrderResult, error)
}

func (s *stubOrders) CreateFromChat(ctx context.Context, input services.ChatOrderInput) (services.ChatOrderResult, error) {
	if s.createFn == nil {
		return services.ChatOrderResult{}, nil
	}
	return s.createFn(ctx, input)
}

func (s *stubOrders) Cancel(context.Context, string, string, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *stubOrders) Get(context.Context, string, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (s *stubOrders) ListForUser(context.Context, string, int, int) ([]domain.Order, error) {
	return nil, nil
}

type stubSessions struct {
	getFn          func(ctx context.Context, sessionID string) (*domain.Session, error)
	saveFn         func(ctx context.Context, session *domain.Session) error
	deleteScriptFn func(ctx context.Context, sessionID string) error
}

func (s *stubSessions) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, sessionID)
}

func (s *stubSessions) Save(ctx context.Context, session *domain.Session) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, session)
}

func (s *stubSessions) Delete(context.Context, string) error    { return nil }
func (s *stubSessions) ExtendTTL(context.Context, string) error { return nil }
func (s *stubSessions) Count(context.Context) (int, error)      { return 0, nil }
func (s *stubSessions) Ping(context.Context) error              { return nil }

func (s *stubSessions) GetScript(context.Context, string) (*domain.ScriptSession, error) {
	return nil, nil
}

func (s *stubSessions) SaveScript(context.Context, *domain.ScriptSession) error { return nil }

func (s *stubSessions) DeleteScript(ctx context.Context, sessionID string) error {
	if s.deleteScriptFn == nil {
		return nil
	}
	return s.deleteScriptFn(ctx, sessionID)
}

type stubTranscripts struct {
	appendFn func(ctx context.Context, record domain.TranscriptRecord) error
}

func (s *stubTranscripts) Append(ctx context.Context, record domain.TranscriptRecord) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, record)
}

func (s *stubTranscripts) History(context.Context, string, string, int, int) ([]domain.TranscriptRecord, error) {
	return nil, nil
}

func (s *stubTranscripts) Conversations(context.Context, string, int, int) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (s *stubTranscripts) EditMessage(context.Context, string, string, string) (domain.TranscriptRecord, error) {
	return domain.TranscriptRecord{}, nil
}

func (s *stubTranscripts) DeleteMessage(context.Context, string, string) error { return nil }

func (s *stubTranscripts) Archive(context.Context, string, string) (int, error) { return 0, nil }

func (s *stubTranscripts) Stats(context.Context, string) (domain.TranscriptStats, error) {
	return domain.TranscriptStats{}, nil
}

type stubScripts struct {
	hasFn      func(ctx context.Context, sessionID string) (bool, error)
	continueFn func(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error)
}

func (s *stubScripts) HasScript(ctx context.Context, sessionID string) (bool, error) {
	if s.hasFn == nil {
		return false, nil
	}
	return s.hasFn(ctx, sessionID)
}

func (s *stubScripts) Continue(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error) {
	if s.continueFn == nil {
		return "", domain.NextStepRetry, nil
	}
	return s.continueFn(ctx, sessionID, userID, message)
}

// scriptedAgent lets orchestrator tests control routing turn by turn.
type scriptedAgent struct {
	name     domain.AgentName
	handleFn func(ctx context.Context, turn *Turn) (Response, error)
}

func (a *scriptedAgent) Name() domain.AgentName { return a.name }

func (a *scriptedAgent) Handle(ctx context.Context, turn *Turn) (Response, error) {
	if a.handleFn == nil {
		return Response{Text: "ok"}, nil
	}
	return a.handleFn(ctx, turn)
}
