package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func decimalPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := decimalFromString(t, s)
	return &d
}

type stubProductRepo struct {
	findByIDFn       func(ctx context.Context, productID string) (domain.Product, error)
	findByBarcodeFn  func(ctx context.Context, barcode string) (domain.Product, error)
	findByBarcodesFn func(ctx context.Context, barcodes []string) ([]domain.Product, error)
	searchFn         func(ctx context.Context, tokens []string, limit int) ([]domain.Product, error)
	listFn           func(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error)
	insertFn         func(ctx context.Context, product domain.Product) error
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	return s.findByIDFn(ctx, productID)
}

func (s *stubProductRepo) FindByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	return s.findByBarcodeFn(ctx, barcode)
}

func (s *stubProductRepo) FindByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error) {
	return s.findByBarcodesFn(ctx, barcodes)
}

func (s *stubProductRepo) SearchKeywords(ctx context.Context, tokens []string, limit int) ([]domain.Product, error) {
	return s.searchFn(ctx, tokens, limit)
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	return s.listFn(ctx, filter)
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	return s.insertFn(ctx, product)
}

type stubOrderRepo struct {
	createFn       func(ctx context.Context, order domain.Order) (domain.Order, error)
	cancelFn       func(ctx context.Context, orderID, reason string) (domain.Order, error)
	findByIDFn     func(ctx context.Context, orderID string) (domain.Order, error)
	listByUserFn   func(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)
	updateStatusFn func(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

func (s *stubOrderRepo) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	return s.createFn(ctx, order)
}

func (s *stubOrderRepo) Cancel(ctx context.Context, orderID, reason string) (domain.Order, error) {
	return s.cancelFn(ctx, orderID, reason)
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	return s.findByIDFn(ctx, orderID)
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	return s.updateStatusFn(ctx, orderID, status)
}

type stubTranscriptRepo struct {
	insertFn            func(ctx context.Context, record domain.TranscriptRecord) error
	findByIDFn          func(ctx context.Context, recordID string) (domain.TranscriptRecord, error)
	listBySessionFn     func(ctx context.Context, filter repositories.TranscriptFilter) ([]domain.TranscriptRecord, error)
	listConversationsFn func(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error)
	updateBodyFn        func(ctx context.Context, recordID, body string) (domain.TranscriptRecord, error)
	deleteFn            func(ctx context.Context, recordID string) error
	archiveFn           func(ctx context.Context, sessionID, userID string) (int, error)
	statsFn             func(ctx context.Context, userID string) (domain.TranscriptStats, error)
}

func (s *stubTranscriptRepo) Insert(ctx context.Context, record domain.TranscriptRecord) error {
	return s.insertFn(ctx, record)
}

func (s *stubTranscriptRepo) FindByID(ctx context.Context, recordID string) (domain.TranscriptRecord, error) {
	return s.findByIDFn(ctx, recordID)
}

func (s *stubTranscriptRepo) ListBySession(ctx context.Context, filter repositories.TranscriptFilter) ([]domain.TranscriptRecord, error) {
	return s.listBySessionFn(ctx, filter)
}

func (s *stubTranscriptRepo) ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	return s.listConversationsFn(ctx, userID, limit, offset)
}

func (s *stubTranscriptRepo) UpdateBody(ctx context.Context, recordID, body string) (domain.TranscriptRecord, error) {
	return s.updateBodyFn(ctx, recordID, body)
}

func (s *stubTranscriptRepo) Delete(ctx context.Context, recordID string) error {
	return s.deleteFn(ctx, recordID)
}

func (s *stubTranscriptRepo) ArchiveSession(ctx context.Context, sessionID, userID string) (int, error) {
	return s.archiveFn(ctx, sessionID, userID)
}

func (s *stubTranscriptRepo) Stats(ctx context.Context, userID string) (domain.TranscriptStats, error) {
	return s.statsFn(ctx, userID)
}

type stubUserRepo struct {
	insertFn         func(ctx context.Context, user domain.User) error
	findByIDFn       func(ctx context.Context, userID string) (domain.User, error)
	findByUsernameFn func(ctx context.Context, username string) (domain.User, error)
}

func (s *stubUserRepo) Insert(ctx context.Context, user domain.User) error {
	return s.insertFn(ctx, user)
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.User, error) {
	return s.findByIDFn(ctx, userID)
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.findByUsernameFn(ctx, username)
}
