package repositories

import (
	"context"

	domain "github.com/ventia/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close() error

	Products() ProductRepository
	Orders() OrderRepository
	Transcripts() TranscriptRepository
	Users() UserRepository
	Health() HealthRepository
}

// ProductRepository reads catalog rows. Stock mutation happens only inside
// order transactions, never through this interface.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	// FindByBarcodes resolves many barcodes at once, preserving input order
	// and silently skipping unknown codes.
	FindByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error)
	// SearchKeywords matches any token against name, description, brand and
	// category of active rows.
	SearchKeywords(ctx context.Context, tokens []string, limit int) ([]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category   string
	OnSaleOnly bool
	InStock    bool
	Limit      int
	Offset     int
}

// OrderRepository owns order persistence. Create and Cancel run in a single
// transaction together with the stock movements they imply.
type OrderRepository interface {
	// Create inserts the header and lines and decrements stock atomically.
	// Any unknown, inactive or under-stocked product aborts the whole order.
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	// Cancel restores stock for every line and marks the order cancelled and
	// refunded. Delivered and already-cancelled orders are refused.
	Cancel(ctx context.Context, orderID, reason string) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

// TranscriptRepository persists the durable chat log.
type TranscriptRepository interface {
	Insert(ctx context.Context, record domain.TranscriptRecord) error
	FindByID(ctx context.Context, recordID string) (domain.TranscriptRecord, error)
	ListBySession(ctx context.Context, filter TranscriptFilter) ([]domain.TranscriptRecord, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error)
	UpdateBody(ctx context.Context, recordID, body string) (domain.TranscriptRecord, error)
	Delete(ctx context.Context, recordID string) error
	ArchiveSession(ctx context.Context, sessionID, userID string) (int, error)
	Stats(ctx context.Context, userID string) (domain.TranscriptStats, error)
}

// TranscriptFilter narrows transcript reads to one session, optionally
// scoped to its owner.
type TranscriptFilter struct {
	SessionID       string
	UserID          string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// UserRepository persists accounts.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
