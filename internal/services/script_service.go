package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/platform/tts"
)

// defaultScriptLLMTimeout bounds the persuasive-message generation.
const defaultScriptLLMTimeout = 8 * time.Second

const scriptClosing = "¿Te interesa este producto? Responde **\"sí\"** o **\"no\"**."

var (
	// ErrScriptInvalidInput indicates missing session, user or product data.
	ErrScriptInvalidInput = errors.New("script service: invalid input")

	scriptApprovalWords  = []string{"si", "sí", "yes", "ok", "dale", "va", "claro", "perfecto", "bueno"}
	scriptRejectionWords = []string{"no", "nop", "nope", "nah", "otra", "diferente", "siguiente"}

	// scriptSizePattern extracts a European shoe size from free text.
	scriptSizePattern = regexp.MustCompile(`\b(3[5-9]|4[0-9]|50)\b`)

	scriptStylePrompts = map[domain.Style]string{
		domain.StyleCuencano: "Habla como cuencano: cercano, usa \"ve\" y \"vos\" con naturalidad.",
		domain.StyleJuvenil:  "Habla juvenil y relajado: tutea, directo y con buena onda.",
		domain.StyleFormal:   "Habla formal: trate de usted, cortés y profesional.",
		domain.StyleNeutral:  "Habla en un tono amable y neutral.",
	}
)

// ScriptResult is the outcome of processing or continuing a guided sale.
type ScriptResult struct {
	Success     bool
	Message     string
	NextStep    domain.NextStep
	AudioURL    string
	OrderNumber string
	BestProduct *domain.Product
}

// ScriptService runs the guided-sale pipeline: resolve the scripted
// products, compare them, pitch the winner and walk the follow-up replies
// through to a committed order.
type ScriptService interface {
	Process(ctx context.Context, script domain.Script) (ScriptResult, error)
	ContinueScript(ctx context.Context, sessionID, userID, message string) (ScriptResult, error)

	// HasScript and Continue are the narrow view the sales agent consumes.
	HasScript(ctx context.Context, sessionID string) (bool, error)
	Continue(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error)
}

// ScriptServiceDeps bundles constructor inputs for the script service.
type ScriptServiceDeps struct {
	Sessions    SessionService
	Transcripts TranscriptService
	Catalog     CatalogService
	Comparison  ComparisonService
	Orders      OrderService
	LLM         llm.Client
	TTS         tts.Synthesizer
	Timeout     time.Duration
	Logger      *zap.Logger
}

type scriptService struct {
	sessions    SessionService
	transcripts TranscriptService
	catalog     CatalogService
	comparison  ComparisonService
	orders      OrderService
	llm         llm.Client
	tts         tts.Synthesizer
	timeout     time.Duration
	logger      *zap.Logger
}

// NewScriptService constructs the guided-sale pipeline.
func NewScriptService(deps ScriptServiceDeps) (ScriptService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("script service: session service is required")
	}
	if deps.Transcripts == nil {
		return nil, errors.New("script service: transcript service is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("script service: catalog service is required")
	}
	if deps.Comparison == nil {
		return nil, errors.New("script service: comparison service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("script service: order service is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("script service: llm client is required")
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultScriptLLMTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	synth := deps.TTS
	if synth == nil {
		synth = tts.Disabled{}
	}
	return &scriptService{
		sessions:    deps.Sessions,
		transcripts: deps.Transcripts,
		catalog:     deps.Catalog,
		comparison:  deps.Comparison,
		orders:      deps.Orders,
		llm:         deps.LLM,
		tts:         synth,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// Process resolves the scripted barcodes, ranks the candidates and opens
// the guided sale with a persuasive pitch.
func (s *scriptService) Process(ctx context.Context, script domain.Script) (ScriptResult, error) {
	if strings.TrimSpace(script.SessionID) == "" || strings.TrimSpace(script.UserID) == "" {
		return ScriptResult{}, ErrScriptInvalidInput
	}
	if len(script.Products) == 0 {
		return ScriptResult{
			Message:  "No recibí productos para recomendar. Intenta de nuevo con al menos un código.",
			NextStep: domain.NextStepRetry,
		}, nil
	}

	barcodes := make([]string, 0, len(script.Products))
	priorities := make(map[string]domain.Priority, len(script.Products))
	for _, item := range script.Products {
		barcode := strings.TrimSpace(item.Barcode)
		if barcode == "" {
			continue
		}
		barcodes = append(barcodes, barcode)
		priorities[barcode] = item.Priority
	}
	if len(barcodes) == 0 {
		return ScriptResult{
			Message:  "No recibí productos para recomendar. Intenta de nuevo con al menos un código.",
			NextStep: domain.NextStepRetry,
		}, nil
	}

	products, err := s.catalog.ProductsByBarcodes(ctx, barcodes)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("script service: resolve products: %w", err)
	}
	if len(products) == 0 {
		return ScriptResult{
			Message: fmt.Sprintf("No encontré los productos con códigos %s en el catálogo. "+
				"¿Te muestro opciones similares?", strings.Join(barcodes, ", ")),
			NextStep: domain.NextStepShowAlternatives,
		}, nil
	}

	candidates := make([]ComparisonCandidate, 0, len(products))
	for _, product := range products {
		candidates = append(candidates, ComparisonCandidate{
			Product:  product,
			Priority: priorities[product.Barcode],
		})
	}
	recommendation, err := s.comparison.Compare(ctx, ComparisonInput{
		Candidates:  candidates,
		Preferences: script.Preferences,
	})
	if err != nil {
		return ScriptResult{}, fmt.Errorf("script service: compare: %w", err)
	}

	pitch := s.pitch(ctx, script, recommendation.Best)
	message := s.composeMessage(pitch, recommendation)

	now := time.Now().UTC()
	refs := make([]domain.ScriptProductRef, 0, len(recommendation.Ranked))
	for _, scored := range recommendation.Ranked {
		refs = append(refs, domain.ScriptProductRef{
			ID:              scored.Product.ID,
			Name:            scored.Product.Name,
			FinalPrice:      scored.Product.FinalPrice(),
			DiscountPercent: scored.Product.SavingsPercent(),
		})
	}
	if err := s.sessions.SaveScript(ctx, &domain.ScriptSession{
		SessionID:     script.SessionID,
		BestProductID: recommendation.Best.Product.ID,
		Products:      refs,
		CurrentIndex:  0,
		Style:         script.Style,
		CreatedAt:     now,
	}); err != nil {
		return ScriptResult{}, fmt.Errorf("script service: save script session: %w", err)
	}

	s.record(ctx, script.SessionID, script.UserID, domain.TranscriptRoleUser, scriptContextBody(script))
	s.record(ctx, script.SessionID, script.UserID, domain.TranscriptRoleAgent, message)

	result := ScriptResult{
		Success:     true,
		Message:     message,
		NextStep:    domain.NextStepConfirmBuy,
		BestProduct: &recommendation.Best.Product,
	}
	if script.WantAudio {
		result.AudioURL = s.synthesize(ctx, pitch)
	}
	return result, nil
}

// ContinueScript reads the customer's reply to a pitched product.
func (s *scriptService) ContinueScript(ctx context.Context, sessionID, userID, message string) (ScriptResult, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(message) == "" {
		return ScriptResult{}, ErrScriptInvalidInput
	}

	script, err := s.sessions.GetScript(ctx, sessionID)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("script service: load script session: %w", err)
	}
	if script == nil || script.CurrentIndex >= len(script.Products) {
		return ScriptResult{
			Message:  "La conversación anterior expiró. Cuéntame de nuevo qué estás buscando.",
			NextStep: domain.NextStepNewConversation,
		}, nil
	}
	if script.OrderID != "" {
		// The sale already closed; a stray reply must not reorder.
		if err := s.sessions.DeleteScript(ctx, sessionID); err != nil {
			s.logger.Warn("script session cleanup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return ScriptResult{
			Message:  "Tu pedido ya quedó registrado. Cuéntame si necesitas algo más.",
			NextStep: domain.NextStepNewConversation,
		}, nil
	}

	s.record(ctx, sessionID, userID, domain.TranscriptRoleUser, message)

	var result ScriptResult
	switch {
	case containsScriptWord(message, scriptApprovalWords):
		script.Approved = true
		if err := s.sessions.SaveScript(ctx, script); err != nil {
			s.logger.Warn("script session save failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		result = ScriptResult{
			Success: true,
			Message: "¡Excelente decisión! Para coordinar la entrega necesito tu dirección. " +
				"Si es calzado, dime también tu talla.",
			NextStep: domain.NextStepNeedShipping,
		}
	case containsScriptWord(message, scriptRejectionWords):
		result = s.offerAlternative(ctx, script)
	default:
		result = s.placeOrder(ctx, script, userID, message)
	}

	s.record(ctx, sessionID, userID, domain.TranscriptRoleAgent, result.Message)
	return result, nil
}

// HasScript reports whether a guided sale is pending for the session.
func (s *scriptService) HasScript(ctx context.Context, sessionID string) (bool, error) {
	script, err := s.sessions.GetScript(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return script != nil, nil
}

// Continue is the sales-agent view of ContinueScript.
func (s *scriptService) Continue(ctx context.Context, sessionID, userID, message string) (string, domain.NextStep, error) {
	result, err := s.ContinueScript(ctx, sessionID, userID, message)
	if err != nil {
		return "", "", err
	}
	return result.Message, result.NextStep, nil
}

// offerAlternative advances to the next ranked product after a rejection.
func (s *scriptService) offerAlternative(ctx context.Context, script *domain.ScriptSession) ScriptResult {
	script.CurrentIndex++
	if script.CurrentIndex >= len(script.Products) {
		if err := s.sessions.DeleteScript(ctx, script.SessionID); err != nil {
			s.logger.Warn("script session cleanup failed", zap.String("session_id", script.SessionID), zap.Error(err))
		}
		return ScriptResult{
			Message:  "Entiendo, no hay problema. No tengo más alternativas de esa lista, pero cuéntame qué buscas y seguimos.",
			NextStep: domain.NextStepRetry,
		}
	}

	if err := s.sessions.SaveScript(ctx, script); err != nil {
		s.logger.Warn("script session save failed", zap.String("session_id", script.SessionID), zap.Error(err))
	}

	next := script.Products[script.CurrentIndex]
	message := fmt.Sprintf("Entiendo. ¿Qué te parece el %s a $%s?", next.Name, next.FinalPrice.StringFixed(2))
	if next.DiscountPercent.IsPositive() {
		message += fmt.Sprintf(" Tiene %s%% de descuento.", next.DiscountPercent.StringFixed(1))
	}
	message += " " + scriptClosing
	return ScriptResult{Success: true, Message: message, NextStep: domain.NextStepConfirmBuy}
}

// placeOrder treats the reply as shipping details and commits the order for
// the currently offered product.
func (s *scriptService) placeOrder(ctx context.Context, script *domain.ScriptSession, userID, message string) ScriptResult {
	product := script.Products[script.CurrentIndex]

	size := scriptSizePattern.FindString(message)
	if size == "" {
		size = "Sin especificar"
	}

	script.ShippingInfo = strings.TrimSpace(message)
	if err := s.sessions.SaveScript(ctx, script); err != nil {
		s.logger.Warn("script session save failed", zap.String("session_id", script.SessionID), zap.Error(err))
	}

	result, err := s.orders.CreateFromChat(ctx, ChatOrderInput{
		UserID:          userID,
		SessionID:       script.SessionID,
		Items:           []ChatOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: strings.TrimSpace(message),
		Notes:           "Talla solicitada: " + size,
	})

	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return ScriptResult{
			Message:  stockErr.CustomerMessage() + " Disculpa el inconveniente, ¿quieres ver otra opción?",
			NextStep: domain.NextStepRetry,
		}
	}
	if err != nil {
		s.logger.Error("script order failed", zap.String("session_id", script.SessionID), zap.Error(err))
		return ScriptResult{
			Message:  "No pude registrar tu pedido por un problema técnico. ¿Intentamos de nuevo?",
			NextStep: domain.NextStepRetry,
		}
	}

	// Keep the session with the order id; the completed-sale guard turns
	// any further reply into a fresh conversation.
	script.OrderID = result.Order.ID
	if err := s.sessions.SaveScript(ctx, script); err != nil {
		s.logger.Warn("script session save failed", zap.String("session_id", script.SessionID), zap.Error(err))
	}

	message = fmt.Sprintf("%s\nNúmero de pedido: %s. Te llegará a: %s. ¡Gracias por tu compra!",
		result.Message, result.OrderNumber, strings.TrimSpace(strings.Split(strings.TrimSpace(message), "\n")[0]))
	return ScriptResult{
		Success:     true,
		Message:     message,
		NextStep:    domain.NextStepOrderCompleted,
		OrderNumber: result.OrderNumber,
	}
}

// pitch generates the short persuasive opener, falling back to a template
// when no model is reachable.
func (s *scriptService) pitch(ctx context.Context, script domain.Script, best domain.ScoredProduct) string {
	prompt := "Eres Alex, asesor de ventas de una tienda deportiva. " +
		scriptStylePrompts[styleOrNeutral(script.Style)] +
		"\nEscribe un mensaje breve y persuasivo (máximo tres frases) recomendando este producto. No inventes datos." +
		fmt.Sprintf("\nProducto: %s a $%s.", best.Product.Name, best.Product.FinalPrice().StringFixed(2))
	if len(best.Reasons) > 0 {
		prompt += "\nArgumentos: " + strings.Join(best.Reasons, "; ")
	}
	if brief := strings.TrimSpace(script.Context); brief != "" {
		prompt += "\nContexto del cliente: " + brief
	}

	text, err := s.llm.Complete(ctx, llm.Request{
		System:      prompt,
		User:        "Genera la recomendación.",
		Timeout:     s.timeout,
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil && !errors.Is(err, llm.ErrUnavailable) {
			s.logger.Debug("llm pitch failed, using template", zap.Error(err))
		}
		return fmt.Sprintf("Te recomiendo el %s a $%s. Es una excelente opción. ¿Te interesa?",
			best.Product.Name, best.Product.FinalPrice().StringFixed(2))
	}
	return strings.TrimSpace(text)
}

// composeMessage appends the comparison breakdown and the closing question
// to the pitch.
func (s *scriptService) composeMessage(pitch string, recommendation domain.Recommendation) string {
	var b strings.Builder
	b.WriteString(pitch)
	b.WriteString("\n\n**Productos comparados:**\n")
	for _, scored := range recommendation.Ranked {
		bullet := "•"
		if scored.Product.ID == recommendation.Best.Product.ID {
			bullet = "⭐"
		}
		fmt.Fprintf(&b, "%s **%s** - Precio: $%s", bullet, scored.Product.Name,
			scored.Product.FinalPrice().StringFixed(2))
		if savings := scored.Product.SavingsPercent(); savings.IsPositive() {
			fmt.Fprintf(&b, " ~~$%s~~ (%s%% OFF)",
				scored.Product.ReferencePrice().StringFixed(2), savings.StringFixed(1))
		}
		fmt.Fprintf(&b, " - Score: %s/100\n", scored.Score.StringFixed(0))
	}
	b.WriteString("\n")
	b.WriteString(scriptClosing)
	return b.String()
}

func (s *scriptService) synthesize(ctx context.Context, text string) string {
	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		if !errors.Is(err, tts.ErrUnavailable) {
			s.logger.Warn("tts synthesis failed", zap.Error(err))
		}
		return ""
	}
	return tts.DataURL(audio)
}

// record writes a transcript entry, logging failures instead of surfacing
// them to the customer.
func (s *scriptService) record(ctx context.Context, sessionID, userID string, role domain.TranscriptRole, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	err := s.transcripts.Append(ctx, domain.TranscriptRecord{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Body:      body,
	})
	if err != nil {
		s.logger.Warn("transcript append failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func scriptContextBody(script domain.Script) string {
	if brief := strings.TrimSpace(script.Context); brief != "" {
		return brief
	}
	return fmt.Sprintf("[guion de venta con %d productos]", len(script.Products))
}

func styleOrNeutral(style domain.Style) domain.Style {
	if _, ok := scriptStylePrompts[style]; ok {
		return style
	}
	return domain.StyleNeutral
}

// containsScriptWord matches whole words, ignoring case, diacritics and
// punctuation stuck to them.
func containsScriptWord(message string, words []string) bool {
	fields := strings.FieldsFunc(textutil.Fold(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, field := range fields {
		for _, word := range words {
			if field == textutil.Fold(word) {
				return true
			}
		}
	}
	return false
}
