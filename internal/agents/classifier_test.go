package agents

import (
	"context"
	"testing"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/llm"
)

func TestClassifyKeywords(t *testing.T) {
	cases := []struct {
		name       string
		message    string
		hasResults bool
		intent     domain.Intent
	}{
		{name: "search verbs", message: "busco zapatos para correr", intent: domain.IntentSearch},
		{name: "checkout verbs", message: "quiero comprar las nike", intent: domain.IntentCheckout},
		{name: "store info", message: "¿cuál es el horario de la tienda?", intent: domain.IntentInfo},
		{name: "price doubt", message: "está muy caro, ¿hay descuento?", intent: domain.IntentPersuasion},
		{name: "no signals defaults to persuasion", message: "hola", intent: domain.IntentPersuasion},
		{name: "affirmative with results means checkout", message: "sí", hasResults: true, intent: domain.IntentCheckout},
		{name: "doubt with results stays persuasion", message: "no sé, cuéntame más", hasResults: true, intent: domain.IntentPersuasion},
		{name: "new search outranks pending results", message: "busco otra marca y modelo", hasResults: true, intent: domain.IntentSearch},
		{name: "store question outranks pending results", message: "¿cuál es el horario de la tienda?", hasResults: true, intent: domain.IntentInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyKeywords(tc.message, tc.hasResults)
			if got.Intent != tc.intent {
				t.Fatalf("intent = %q, want %q", got.Intent, tc.intent)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Fatalf("confidence %v out of range", got.Confidence)
			}
		})
	}
}

func TestClassifyLLMFirst(t *testing.T) {
	classifier, err := NewClassifier(ClassifierDeps{LLM: &stubLLM{
		completeFn: func(ctx context.Context, req llm.Request) (string, error) {
			return `{"intent": "search", "confidence": 0.92, "reasoning": "pide ver productos"}`, nil
		},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got := classifier.Classify(context.Background(), "muéstrame lo que tienes", false)
	if got.Intent != domain.IntentSearch {
		t.Fatalf("intent = %q, want search", got.Intent)
	}
	if got.Confidence != 0.92 {
		t.Fatalf("confidence = %v, want 0.92", got.Confidence)
	}
}

func TestClassifyLLMCodeFenceAndBadLabel(t *testing.T) {
	classifier, err := NewClassifier(ClassifierDeps{LLM: &stubLLM{
		completeFn: func(ctx context.Context, req llm.Request) (string, error) {
			return "```json\n{\"intent\": \"banana\", \"confidence\": 0.7}\n```", nil
		},
	}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got := classifier.Classify(context.Background(), "hola", false)
	if got.Intent != domain.IntentPersuasion {
		t.Fatalf("unknown label should map to persuasion, got %q", got.Intent)
	}
}

func TestClassifyFallsBackWhenLLMUnavailable(t *testing.T) {
	classifier, err := NewClassifier(ClassifierDeps{LLM: &stubLLM{}})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	got := classifier.Classify(context.Background(), "busco una camiseta talla M", false)
	if got.Intent != domain.IntentSearch {
		t.Fatalf("keyword fallback intent = %q, want search", got.Intent)
	}
}

func TestAgentForIntent(t *testing.T) {
	cases := map[domain.Intent]domain.AgentName{
		domain.IntentSearch:     domain.AgentRetriever,
		domain.IntentInfo:       domain.AgentRetriever,
		domain.IntentCheckout:   domain.AgentCheckout,
		domain.IntentPersuasion: domain.AgentSales,
		domain.IntentEnd:        domain.AgentSales,
	}
	for intent, want := range cases {
		if got := AgentForIntent(intent); got != want {
			t.Errorf("AgentForIntent(%q) = %q, want %q", intent, got, want)
		}
	}
}

func TestDetectStyle(t *testing.T) {
	cases := []struct {
		name    string
		history []string
		current string
		style   domain.Style
	}{
		{
			name:    "two cuencano markers",
			current: "ayayay qué chevere está eso",
			style:   domain.StyleCuencano,
		},
		{
			name:    "juvenil markers across history",
			history: []string{"che, qué onda con los precios"},
			current: "está copado eso bro",
			style:   domain.StyleJuvenil,
		},
		{
			name:    "single formal marker is enough",
			current: "disculpe, ¿tienen zapatos de cuero?",
			style:   domain.StyleFormal,
		},
		{
			name:    "one regional marker stays neutral",
			current: "qué lindo día",
			style:   domain.StyleNeutral,
		},
		{
			name:    "plain message stays neutral",
			current: "busco zapatos",
			style:   domain.StyleNeutral,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			style, confidence := DetectStyle(tc.history, tc.current)
			if style != tc.style {
				t.Fatalf("style = %q, want %q", style, tc.style)
			}
			if confidence <= 0 || confidence > 1 {
				t.Fatalf("confidence %v out of range", confidence)
			}
		})
	}
}
