package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ventia/api/internal/agents"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/services"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", raw, err)
	}
	return value
}

func asUser(r *http.Request, userID string, role int) *http.Request {
	identity := &auth.Identity{UserID: userID, Username: "tester", Role: role}
	return r.WithContext(auth.WithIdentity(r.Context(), identity))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

type stubEngine struct {
	processFn func(ctx context.Context, sessionID, userID, message string) (agents.TurnResult, error)
}

func (s *stubEngine) ProcessTurn(ctx context.Context, sessionID, userID, message string) (agents.TurnResult, error) {
	if s.processFn == nil {
		return agents.TurnResult{}, nil
	}
	return s.processFn(ctx, sessionID, userID, message)
}

type stubTranscriptService struct {
	historyFn func(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.TranscriptRecord, error)
	editFn    func(ctx context.Context, recordID, userID, body string) (domain.TranscriptRecord, error)
	deleteFn  func(ctx context.Context, recordID, userID string) error
	archiveFn func(ctx context.Context, sessionID, userID string) (int, error)
	statsFn   func(ctx context.Context, userID string) (domain.TranscriptStats, error)
}

func (s *stubTranscriptService) Append(context.Context, domain.TranscriptRecord) error { return nil }

func (s *stubTranscriptService) History(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.TranscriptRecord, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, sessionID, userID, limit, offset)
}

func (s *stubTranscriptService) Conversations(context.Context, string, int, int) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (s *stubTranscriptService) EditMessage(ctx context.Context, recordID, userID, body string) (domain.TranscriptRecord, error) {
	if s.editFn == nil {
		return domain.TranscriptRecord{}, nil
	}
	return s.editFn(ctx, recordID, userID, body)
}

func (s *stubTranscriptService) DeleteMessage(ctx context.Context, recordID, userID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, recordID, userID)
}

func (s *stubTranscriptService) Archive(ctx context.Context, sessionID, userID string) (int, error) {
	if s.archiveFn == nil {
		return 0, nil
	}
	return s.archiveFn(ctx, sessionID, userID)
}

func (s *stubTranscriptService) Stats(ctx context.Context, userID string) (domain.TranscriptStats, error) {
	if s.statsFn == nil {
		return domain.TranscriptStats{}, nil
	}
	return s.statsFn(ctx, userID)
}

type stubCatalogService struct {
	productFn func(ctx context.Context, productID string) (domain.Product, error)
	searchFn  func(ctx context.Context, query string, limit int) ([]domain.Product, error)
	listFn    func(ctx context.Context, filter services.CatalogFilter) ([]domain.Product, error)
}

func (s *stubCatalogService) Product(ctx context.Context, productID string) (domain.Product, error) {
	if s.productFn == nil {
		return domain.Product{}, services.ErrProductNotFound
	}
	return s.productFn(ctx, productID)
}

func (s *stubCatalogService) ProductByBarcode(context.Context, string) (domain.Product, error) {
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubCatalogService) ProductsByBarcodes(context.Context, []string) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubCatalogService) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, query, limit)
}

func (s *stubCatalogService) List(ctx context.Context, filter services.CatalogFilter) ([]domain.Product, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

type stubOrderService struct {
	createFn func(ctx context.Context, input services.ChatOrderInput) (services.ChatOrderResult, error)
	cancelFn func(ctx context.Context, orderID, userID, reason string) (domain.Order, error)
	getFn    func(ctx context.Context, orderID, userID string) (domain.Order, error)
	listFn   func(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)
}

func (s *stubOrderService) CreateFromChat(ctx context.Context, input services.ChatOrderInput) (services.ChatOrderResult, error) {
	if s.createFn == nil {
		return services.ChatOrderResult{}, nil
	}
	return s.createFn(ctx, input)
}

func (s *stubOrderService) Cancel(ctx context.Context, orderID, userID, reason string) (domain.Order, error) {
	if s.cancelFn == nil {
		return domain.Order{}, nil
	}
	return s.cancelFn(ctx, orderID, userID, reason)
}

func (s *stubOrderService) Get(ctx context.Context, orderID, userID string) (domain.Order, error) {
	if s.getFn == nil {
		return domain.Order{}, services.ErrOrderNotFound
	}
	return s.getFn(ctx, orderID, userID)
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, limit, offset)
}

type stubUserService struct {
	registerFn func(ctx context.Context, input services.RegisterInput) (domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (services.LoginResult, error)
}

func (s *stubUserService) Register(ctx context.Context, input services.RegisterInput) (domain.User, error) {
	if s.registerFn == nil {
		return domain.User{}, nil
	}
	return s.registerFn(ctx, input)
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (services.LoginResult, error) {
	if s.loginFn == nil {
		return services.LoginResult{}, services.ErrInvalidCredentials
	}
	return s.loginFn(ctx, username, password)
}

func (s *stubUserService) Get(context.Context, string) (domain.User, error) {
	return domain.User{}, services.ErrUserNotFound
}

type stubScriptService struct {
	processFn  func(ctx context.Context, script domain.Script) (services.ScriptResult, error)
	continueFn func(ctx context.Context, sessionID, userID, message string) (services.ScriptResult, error)
}

func (s *stubScriptService) Process(ctx context.Context, script domain.Script) (services.ScriptResult, error) {
	if s.processFn == nil {
		return services.ScriptResult{}, nil
	}
	return s.processFn(ctx, script)
}

func (s *stubScriptService) ContinueScript(ctx context.Context, sessionID, userID, message string) (services.ScriptResult, error) {
	if s.continueFn == nil {
		return services.ScriptResult{}, nil
	}
	return s.continueFn(ctx, sessionID, userID, message)
}

func (s *stubScriptService) HasScript(context.Context, string) (bool, error) { return false, nil }

func (s *stubScriptService) Continue(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error) {
	result, err := s.ContinueScript(ctx, sessionID, userID, message)
	return result.Message, result.NextStep, err
}
