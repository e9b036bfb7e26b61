package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/services"
)

// defaultSalesTimeout bounds pitch generation; past it the customer gets a
// polite retry instead of silence.
const defaultSalesTimeout = 10 * time.Second

// salesContextWords pull FAQ context into the pitch when the customer mixes
// store questions into a sales conversation.
var salesContextWords = []string{"política", "devolución", "garantía", "envío", "hora"}

const salesTimeoutReply = "Disculpa la demora. ¿Puedes repetir tu pregunta?"

// ScriptContinuer advances a pending guided sale when one exists for the
// session.
type ScriptContinuer interface {
	HasScript(ctx context.Context, sessionID string) (bool, error)
	Continue(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error)
}

// SalesDeps bundles constructor inputs for the sales agent.
type SalesDeps struct {
	LLM       llm.Client
	Knowledge services.KnowledgeService
	Scripts   ScriptContinuer
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Sales is the persuasion agent, "Alex". When a guided script is pending it
// defers to the script flow; otherwise it pitches from the session's search
// results.
type Sales struct {
	llm       llm.Client
	knowledge services.KnowledgeService
	scripts   ScriptContinuer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSales constructs the sales agent.
func NewSales(deps SalesDeps) (*Sales, error) {
	if deps.LLM == nil {
		return nil, errors.New("sales: llm client is required")
	}
	if deps.Knowledge == nil {
		return nil, errors.New("sales: knowledge service is required")
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultSalesTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sales{
		llm:       deps.LLM,
		knowledge: deps.Knowledge,
		scripts:   deps.Scripts,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Name implements the Agent interface.
func (s *Sales) Name() domain.AgentName { return domain.AgentSales }

// Handle implements the Agent interface.
func (s *Sales) Handle(ctx context.Context, turn *Turn) (Response, error) {
	if s.scripts != nil {
		pending, err := s.scripts.HasScript(ctx, turn.Session.ID)
		if err != nil {
			s.logger.Warn("script lookup failed", zap.Error(err))
		} else if pending {
			text, _, err := s.scripts.Continue(ctx, turn.Session.ID, turn.Session.UserID, turn.Message)
			if err != nil {
				return Response{}, fmt.Errorf("sales: continue script: %w", err)
			}
			return Response{Text: text}, nil
		}
	}

	text, err := s.pitchLLM(ctx, turn)
	if err == nil {
		return Response{Text: text}, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Response{Text: salesTimeoutReply}, nil
	}
	if !errors.Is(err, llm.ErrUnavailable) {
		s.logger.Debug("llm pitch failed, using template", zap.Error(err))
	}
	return Response{Text: s.pitchTemplate(turn)}, nil
}

func (s *Sales) pitchLLM(ctx context.Context, turn *Turn) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("Eres Alex, asesor de ventas de una tienda deportiva. ")
	prompt.WriteString(StylePrompt(turn.Session.Style))
	prompt.WriteString("\nResponde en dos o tres frases, concreto y sin inventar productos.")

	if hits := turn.Session.SearchResults; len(hits) > 0 {
		prompt.WriteString("\nProductos sobre la mesa:\n")
		for i, hit := range hits {
			if i == 5 {
				break
			}
			fmt.Fprintf(&prompt, "- %s: $%s (%d disponibles)\n", hit.Name, hit.FinalPrice.StringFixed(2), hit.QuantityAvailable)
		}
	}
	if textutil.ContainsAnyFolded(turn.Message, salesContextWords) {
		if faq := s.knowledge.Context(ctx, turn.Message, 2); faq != "" {
			prompt.WriteString("\nInformación de la tienda:\n")
			prompt.WriteString(faq)
		}
	}

	return s.llm.Complete(ctx, llm.Request{
		System:      prompt.String(),
		User:        turn.Message,
		Timeout:     s.timeout,
		MaxTokens:   250,
		Temperature: 0.7,
	})
}

// pitchTemplate is the deterministic fallback when no model is available.
func (s *Sales) pitchTemplate(turn *Turn) string {
	hits := turn.Session.SearchResults
	if len(hits) == 0 {
		return "Cuéntame qué estás buscando y te recomiendo la mejor opción."
	}

	best := hits[0]
	for _, hit := range hits[1:] {
		if hit.FinalPrice.LessThan(best.FinalPrice) {
			best = hit
		}
	}

	text := fmt.Sprintf("Te recomiendo el %s a $%s.", best.Name, best.FinalPrice.StringFixed(2))
	if best.QuantityAvailable <= lowStockThreshold {
		text += fmt.Sprintf(" Quedan solo %d unidades.", best.QuantityAvailable)
	}
	return text + " ¿Te interesa?"
}
