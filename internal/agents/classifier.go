package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
	"github.com/ventia/api/internal/platform/textutil"
)

// defaultClassifyTimeout bounds the LLM classification call; past it the
// keyword fallback answers instead.
const defaultClassifyTimeout = 5 * time.Second

var (
	searchKeywords = []string{
		"buscar", "busco", "mostrar", "muéstrame", "quiero ver", "tienes", "hay",
		"talla", "color", "marca", "modelo", "catálogo",
	}
	checkoutKeywords = []string{
		"comprar", "cómprame", "dámelos", "dámelo", "envíame", "envía", "quiero",
		"lo quiero", "los quiero", "confirma", "procede",
	}
	infoKeywords = []string{
		"horario", "hora", "ubicación", "dirección", "garantía", "devolución",
		"envío", "delivery", "pago", "tarjeta",
	}
	persuasionKeywords = []string{
		"caro", "precio", "barato", "descuento", "oferta", "recomienda", "mejor",
		"diferencia", "vale la pena", "duda", "por qué",
	}
	affirmativeWords = []string{"sí", "si", "ok", "dale", "bueno"}
)

// Style detection cues. Two regional or youth markers are required; a
// single formal marker is enough.
var (
	cuencanoMarkers = []string{"ayayay", " ve ", " ve,", " ve?", "full", "chevere", "lindo", "pana"}
	juvenilMarkers  = []string{"che", "bro", "tipo", " re ", "mal", "onda", "copado"}
	formalMarkers   = []string{"usted", "señor", "señora", "por favor", "disculpe", "agradezco"}
)

// Classification pairs the label with how sure the classifier is about it.
type Classification struct {
	Intent     domain.Intent
	Confidence float64
	Reasoning  string
}

// ClassifierDeps bundles constructor inputs for the classifier.
type ClassifierDeps struct {
	LLM     llm.Client
	Timeout time.Duration
	Logger  *zap.Logger
}

// Classifier labels user turns with intent and detects conversational
// style. The LLM is tried first; keyword scoring always has the last word
// when the model is unavailable or answers nonsense.
type Classifier struct {
	llm     llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClassifier constructs the intent/style classifier.
func NewClassifier(deps ClassifierDeps) (*Classifier, error) {
	if deps.LLM == nil {
		return nil, errors.New("classifier: llm client is required")
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultClassifyTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{llm: deps.LLM, timeout: timeout, logger: logger}, nil
}

const classifySystemPrompt = `Eres un clasificador de intenciones para una tienda deportiva.
Clasifica el mensaje del cliente en exactamente una de: search, persuasion, checkout, info.
- search: busca o pide ver productos
- persuasion: duda, compara precios o pide recomendaciones
- checkout: quiere comprar o confirmar un pedido
- info: pregunta por horarios, ubicación, políticas o pagos
Responde SOLO con JSON: {"intent": "...", "confidence": 0.0, "reasoning": "..."}`

// Classify labels one message. hasResults reports whether the session
// already carries product search results, which biases short affirmative
// replies toward checkout.
func (c *Classifier) Classify(ctx context.Context, message string, hasResults bool) Classification {
	if result, err := c.classifyLLM(ctx, message); err == nil {
		return result
	} else if !errors.Is(err, llm.ErrUnavailable) {
		c.logger.Debug("llm classification failed, using keywords", zap.Error(err))
	}
	return classifyKeywords(message, hasResults)
}

func (c *Classifier) classifyLLM(ctx context.Context, message string) (Classification, error) {
	raw, err := c.llm.Complete(ctx, llm.Request{
		System:      classifySystemPrompt,
		User:        message,
		Timeout:     c.timeout,
		MaxTokens:   150,
		Temperature: 0,
	})
	if err != nil {
		return Classification{}, err
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &parsed); err != nil {
		return Classification{}, fmt.Errorf("classifier: parse response: %w", err)
	}

	intent := domain.Intent(strings.ToLower(strings.TrimSpace(parsed.Intent)))
	if !domain.ValidIntent(intent) || intent == domain.IntentEnd {
		intent = domain.IntentPersuasion
	}
	confidence := parsed.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	return Classification{Intent: intent, Confidence: confidence, Reasoning: parsed.Reasoning}, nil
}

// classifyKeywords scores the folded message against the keyword lists.
// With prior search results on the table, a bare affirmation means the
// customer wants to buy what they just saw.
func classifyKeywords(message string, hasResults bool) Classification {
	folded := " " + textutil.Fold(message) + " "

	scores := map[domain.Intent]int{
		domain.IntentSearch:     keywordScore(folded, searchKeywords),
		domain.IntentCheckout:   keywordScore(folded, checkoutKeywords),
		domain.IntentInfo:       keywordScore(folded, infoKeywords),
		domain.IntentPersuasion: keywordScore(folded, persuasionKeywords),
	}

	best := domain.IntentPersuasion
	bestScore := 0
	for _, intent := range []domain.Intent{domain.IntentSearch, domain.IntentCheckout, domain.IntentInfo, domain.IntentPersuasion} {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}

	if hasResults {
		if scores[domain.IntentCheckout] > 0 || containsAnyWord(message, affirmativeWords) {
			return Classification{Intent: domain.IntentCheckout, Confidence: 1, Reasoning: "resultados previos y afirmación"}
		}
		// A fresh search or store question outranks the pending results;
		// only silence or doubt keeps the customer with the pitch.
		if scores[domain.IntentPersuasion] > 0 || bestScore == 0 {
			return Classification{Intent: domain.IntentPersuasion, Confidence: keywordConfidence(2), Reasoning: "resultados previos"}
		}
		return Classification{Intent: best, Confidence: keywordConfidence(bestScore), Reasoning: "coincidencia de palabras clave"}
	}

	if bestScore == 0 {
		return Classification{Intent: domain.IntentPersuasion, Confidence: keywordConfidence(1), Reasoning: "sin señales"}
	}
	return Classification{Intent: best, Confidence: keywordConfidence(bestScore), Reasoning: "coincidencia de palabras clave"}
}

func keywordScore(folded string, keywords []string) int {
	score := 0
	for _, keyword := range keywords {
		if strings.Contains(folded, textutil.Fold(keyword)) {
			score++
		}
	}
	return score
}

func keywordConfidence(score int) float64 {
	confidence := float64(score) / 3
	if confidence > 1 {
		return 1
	}
	return confidence
}

// containsAnyWord matches whole words, ignoring case, diacritics and
// punctuation stuck to them.
func containsAnyWord(message string, words []string) bool {
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

// AgentForIntent maps an intent to the agent that owns it.
func AgentForIntent(intent domain.Intent) domain.AgentName {
	switch intent {
	case domain.IntentSearch, domain.IntentInfo:
		return domain.AgentRetriever
	case domain.IntentCheckout:
		return domain.AgentCheckout
	default:
		return domain.AgentSales
	}
}

// DetectStyle inspects the last user messages plus the current one and
// picks the conversational register.
func DetectStyle(history []string, current string) (domain.Style, float64) {
	var sample strings.Builder
	for _, message := range history {
		sample.WriteString(" ")
		sample.WriteString(message)
	}
	sample.WriteString(" ")
	sample.WriteString(current)
	folded := " " + textutil.Fold(sample.String()) + " "

	if markerHits(folded, cuencanoMarkers) >= 2 {
		return domain.StyleCuencano, 0.9
	}
	if markerHits(folded, juvenilMarkers) >= 2 {
		return domain.StyleJuvenil, 0.9
	}
	if markerHits(folded, formalMarkers) >= 1 {
		return domain.StyleFormal, 0.8
	}
	return domain.StyleNeutral, 1.0
}

func markerHits(folded string, markers []string) int {
	hits := 0
	for _, marker := range markers {
		if strings.Contains(folded, textutil.Fold(marker)) {
			hits++
		}
	}
	return hits
}
