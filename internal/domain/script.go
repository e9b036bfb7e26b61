package domain

import "github.com/shopspring/decimal"

// Priority weights a script product for comparison scoring.
type Priority string

const (
	PriorityAlta  Priority = "alta"
	PriorityMedia Priority = "media"
	PriorityBaja  Priority = "baja"
)

// NextStep tells the upstream channel what the conversation needs next.
type NextStep string

const (
	NextStepConfirmBuy       NextStep = "confirm_buy"
	NextStepNeedShipping     NextStep = "need_shipping"
	NextStepMoreInfo         NextStep = "more_info"
	NextStepRetry            NextStep = "retry"
	NextStepShowAlternatives NextStep = "show_alternatives"
	NextStepOrderCompleted   NextStep = "order_completed"
	NextStepNewConversation  NextStep = "new_conversation"
)

// ScriptProduct is one candidate named by an inbound sales script.
type ScriptProduct struct {
	Barcode  string
	Priority Priority
}

// ScriptPreferences carry the customer constraints stated in the script.
type ScriptPreferences struct {
	Budget  *decimal.Decimal
	UseCase string
	Color   string
	Size    string
}

// Script is a structured sales brief: which products to pitch, what the
// customer cares about, and how the conversation started.
type Script struct {
	SessionID   string
	UserID      string
	Products    []ScriptProduct
	Preferences ScriptPreferences
	Context     string
	Style       Style
	WantAudio   bool
}

// ScoredProduct pairs a catalog product with its comparison score and the
// human-readable reasons behind it.
type ScoredProduct struct {
	Product  Product
	Priority Priority
	Score    decimal.Decimal
	Reasons  []string
}

// Recommendation is the outcome of comparing script candidates.
type Recommendation struct {
	Best      ScoredProduct
	Ranked    []ScoredProduct
	Reasoning string
}
