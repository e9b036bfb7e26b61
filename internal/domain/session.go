package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentSearch     Intent = "search"
	IntentPersuasion Intent = "persuasion"
	IntentCheckout   Intent = "checkout"
	IntentInfo       Intent = "info"
	IntentEnd        Intent = "end"
)

// ValidIntent reports whether the label belongs to the closed intent set.
func ValidIntent(intent Intent) bool {
	switch intent {
	case IntentSearch, IntentPersuasion, IntentCheckout, IntentInfo, IntentEnd:
		return true
	}
	return false
}

// Style is the detected conversational register of the user.
type Style string

const (
	StyleNeutral  Style = "neutral"
	StyleCuencano Style = "cuencano"
	StyleJuvenil  Style = "juvenil"
	StyleFormal   Style = "formal"
)

// AgentName identifies one of the fixed conversational agents.
type AgentName string

const (
	AgentRetriever AgentName = "retriever"
	AgentSales     AgentName = "sales"
	AgentCheckout  AgentName = "checkout"
)

// CheckoutStage tracks progress through the guided checkout flow.
type CheckoutStage string

const (
	CheckoutStageConfirm  CheckoutStage = "confirm"
	CheckoutStageAddress  CheckoutStage = "address"
	CheckoutStagePayment  CheckoutStage = "payment"
	CheckoutStageComplete CheckoutStage = "complete"
)

// SessionMessage is a recent turn kept inline with the session so agents
// can read short-range context without a transcript round trip.
type SessionMessage struct {
	Role TranscriptRole `json:"role"`
	Body string         `json:"body"`
}

// ProductHit is the slim product view stored with a session after a search.
type ProductHit struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	FinalPrice        decimal.Decimal `json:"final_price"`
	QuantityAvailable int             `json:"quantity_available"`
	Category          string          `json:"category"`
	Brand             string          `json:"brand"`
}

// CartItem is one order line held with the session between product
// selection and the committed order.
type CartItem struct {
	ProductID string          `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Session is the ephemeral conversation state. It lives in the session
// store under a TTL and is rebuilt fresh when it expires.
type Session struct {
	ID                string            `json:"session_id"`
	UserID            string            `json:"user_id"`
	CurrentAgent      AgentName         `json:"current_agent"`
	Style             Style             `json:"style"`
	StyleConfidence   float64           `json:"style_confidence"`
	Intent            Intent            `json:"intent,omitempty"`
	IntentConfidence  float64           `json:"intent_confidence,omitempty"`
	SearchResults     []ProductHit      `json:"search_results,omitempty"`
	Cart              []CartItem        `json:"cart,omitempty"`
	Slots             map[string]string `json:"slots,omitempty"`
	UnansweredCount   int               `json:"unanswered_question_count"`
	TransferCounts    map[string]int    `json:"transfer_counts,omitempty"`
	TransferTotal     int               `json:"transfer_total"`
	CheckoutStage     *CheckoutStage    `json:"checkout_stage,omitempty"`
	ConversationStage string            `json:"conversation_stage,omitempty"`
	RecentMessages    []SessionMessage  `json:"recent_messages,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewSession returns a fresh session routed to the retriever with a
// neutral style.
func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:             id,
		UserID:         userID,
		CurrentAgent:   AgentRetriever,
		Style:          StyleNeutral,
		Slots:          map[string]string{},
		TransferCounts: map[string]int{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CartTotal sums the cart lines.
func (s *Session) CartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Cart {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// RememberMessage appends a turn to the inline history, keeping at most
// the last ten entries.
func (s *Session) RememberMessage(role TranscriptRole, body string) {
	s.RecentMessages = append(s.RecentMessages, SessionMessage{Role: role, Body: body})
	if len(s.RecentMessages) > 10 {
		s.RecentMessages = s.RecentMessages[len(s.RecentMessages)-10:]
	}
}

// RecentUserMessages returns up to n of the most recent user turns,
// oldest first.
func (s *Session) RecentUserMessages(n int) []string {
	var out []string
	for _, msg := range s.RecentMessages {
		if msg.Role == TranscriptRoleUser {
			out = append(out, msg.Body)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// ScriptProductRef is one candidate carried in a script session so the
// follow-up turn can offer alternatives without re-reading the catalog.
type ScriptProductRef struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// ScriptSession is the short-lived state bridging a processed sales script
// and the customer's follow-up reply. Stored beside the session under its
// own key and TTL.
type ScriptSession struct {
	SessionID     string             `json:"session_id"`
	BestProductID string             `json:"best_product_id"`
	Products      []ScriptProductRef `json:"products"`
	CurrentIndex  int                `json:"current_index"`
	Style         Style              `json:"style"`
	Approved      bool               `json:"approved"`
	ShippingInfo  string             `json:"shipping_info,omitempty"`
	OrderID       string             `json:"order_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
