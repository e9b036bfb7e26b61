package services

import (
	"context"

	domain "github.com/ventia/api/internal/domain"
)

// SessionService owns the ephemeral conversation state in the session store.
type SessionService interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
	ExtendTTL(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error

	GetScript(ctx context.Context, sessionID string) (*domain.ScriptSession, error)
	SaveScript(ctx context.Context, script *domain.ScriptSession) error
	DeleteScript(ctx context.Context, sessionID string) error
}

// TranscriptService persists and serves the durable chat log.
type TranscriptService interface {
	Append(ctx context.Context, record domain.TranscriptRecord) error
	History(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.TranscriptRecord, error)
	Conversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error)
	EditMessage(ctx context.Context, recordID, userID, body string) (domain.TranscriptRecord, error)
	DeleteMessage(ctx context.Context, recordID, userID string) error
	Archive(ctx context.Context, sessionID, userID string) (int, error)
	Stats(ctx context.Context, userID string) (domain.TranscriptStats, error)
}

// CatalogService serves read-only product lookups.
type CatalogService interface {
	Product(ctx context.Context, productID string) (domain.Product, error)
	ProductByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	ProductsByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
	List(ctx context.Context, filter CatalogFilter) ([]domain.Product, error)
}

// CatalogFilter narrows catalog listings at the service boundary.
type CatalogFilter struct {
	Category   string
	OnSaleOnly bool
	InStock    bool
	Limit      int
	Offset     int
}

// OrderService creates and manages orders on behalf of the conversation.
type OrderService interface {
	CreateFromChat(ctx context.Context, input ChatOrderInput) (ChatOrderResult, error)
	Cancel(ctx context.Context, orderID, userID, reason string) (domain.Order, error)
	Get(ctx context.Context, orderID, userID string) (domain.Order, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error)
}

// ChatOrderItem is one requested product line.
type ChatOrderItem struct {
	ProductID string
	Quantity  int
}

// ChatOrderInput carries everything needed to commit an order from a chat turn.
type ChatOrderInput struct {
	UserID          string
	SessionID       string
	Items           []ChatOrderItem
	ShippingAddress string
	ContactPhone    string
	ContactEmail    string
	Notes           string
}

// ChatOrderResult pairs the committed order with the customer-facing
// confirmation message.
type ChatOrderResult struct {
	Order       domain.Order
	OrderNumber string
	Message     string
}

// ComparisonService scores script candidates deterministically.
type ComparisonService interface {
	Compare(ctx context.Context, input ComparisonInput) (domain.Recommendation, error)
}

// ComparisonCandidate pairs a product with its script priority.
type ComparisonCandidate struct {
	Product  domain.Product
	Priority domain.Priority
}

// ComparisonInput carries candidates and the stated customer preferences.
type ComparisonInput struct {
	Candidates  []ComparisonCandidate
	Preferences domain.ScriptPreferences
}

// KnowledgeService answers store questions from the FAQ corpus.
type KnowledgeService interface {
	Search(ctx context.Context, query string, limit int) []KnowledgeEntry
	Context(ctx context.Context, query string, limit int) string
	Size() int
}

// KnowledgeEntry is one FAQ document with its retrieval score.
type KnowledgeEntry struct {
	Question string
	Answer   string
	Topic    string
	Score    float64
}

// UserService manages accounts and credentials.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (domain.User, error)
	Login(ctx context.Context, username, password string) (LoginResult, error)
	Get(ctx context.Context, userID string) (domain.User, error)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     int
}

// LoginResult carries the minted token and its owner.
type LoginResult struct {
	Token string
	User  domain.User
}
