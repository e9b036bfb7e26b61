package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "DRAFT"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// PaymentStatus enumerates the payment states tracked on the order header.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// TranscriptRole enumerates who produced a transcript entry.
type TranscriptRole string

const (
	TranscriptRoleUser   TranscriptRole = "USER"
	TranscriptRoleAgent  TranscriptRole = "AGENT"
	TranscriptRoleSystem TranscriptRole = "SYSTEM"
)

// User roles. Admins may inspect other users' transcripts and manage stock.
const (
	RoleAdmin    = 1
	RoleCustomer = 2
)

// Product is a catalog row. Prices are decimal dollars; UnitCost is the
// list price before any discount is applied.
type Product struct {
	ID                  string
	Name                string
	SKU                 string
	Barcode             string
	Category            string
	Brand               string
	Description         string
	QuantityAvailable   int
	UnitCost            decimal.Decimal
	OriginalPrice       *decimal.Decimal
	DiscountPercent     *decimal.Decimal
	DiscountAmount      *decimal.Decimal
	PromotionCode       string
	PromotionText       string
	PromotionValidUntil *time.Time
	OnSale              bool
	WarehouseLocation   string
	Active              bool
	CreatedAt           time.Time
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.QuantityAvailable > 0
}

// Order is a committed purchase header. It exclusively owns its lines.
type Order struct {
	ID              string
	UserID          string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	ContactPhone    string
	ContactEmail    string
	SessionID       string
	InternalNotes   string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderLine snapshots one product at time of purchase so that later catalog
// edits never change what the customer agreed to.
type OrderLine struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	CreatedAt   time.Time
}

// Subtotal returns quantity times unit price minus the line discount,
// floored at zero.
func (l OrderLine) Subtotal() decimal.Decimal {
	subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount)
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal
}

// ItemCount returns the number of units across all lines.
func (o Order) ItemCount() int {
	count := 0
	for _, line := range o.Lines {
		count += line.Quantity
	}
	return count
}

// TranscriptRecord is one durable chat log entry.
type TranscriptRecord struct {
	ID        string
	SessionID string
	UserID    string
	OrderID   string
	Role      TranscriptRole
	Body      string
	Metadata  map[string]string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationSummary aggregates a session's transcript for listing views.
type ConversationSummary struct {
	SessionID     string
	MessageCount  int
	LastBody      string
	LastTimestamp time.Time
}

// TranscriptStats aggregates counts across a user's transcript history.
type TranscriptStats struct {
	TotalMessages int
	UserMessages  int
	AgentMessages int
	Sessions      int
}

// User is an account that can authenticate and place orders.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
