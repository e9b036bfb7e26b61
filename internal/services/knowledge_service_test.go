package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKnowledgeSearchBuiltInCorpus(t *testing.T) {
	svc, err := NewKnowledgeService(KnowledgeServiceDeps{})
	if err != nil {
		t.Fatalf("NewKnowledgeService: %v", err)
	}
	if svc.Size() == 0 {
		t.Fatal("expected built-in corpus")
	}

	entries := svc.Search(context.Background(), "¿cuál es el horario de atención?", 3)
	if len(entries) == 0 {
		t.Fatal("expected results for horario query")
	}
	if entries[0].Topic != "horario" {
		t.Errorf("top topic = %s, want horario", entries[0].Topic)
	}

	if entries := svc.Search(context.Background(), "xyzzy", 3); len(entries) != 0 {
		t.Errorf("expected no results for nonsense query, got %d", len(entries))
	}
}

func TestKnowledgeSearchIgnoresAccents(t *testing.T) {
	svc, _ := NewKnowledgeService(KnowledgeServiceDeps{})

	entries := svc.Search(context.Background(), "politica de devolucion", 3)
	if len(entries) == 0 {
		t.Fatal("expected accent-insensitive match")
	}
	if entries[0].Topic != "devoluciones" {
		t.Errorf("top topic = %s, want devoluciones", entries[0].Topic)
	}
}

func TestKnowledgeLoadsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.csv")
	csv := "question,answer,topic\n" +
		"¿Tienen parqueadero?,\"Respuesta: Sí, contamos con parqueadero gratuito para clientes.\",local\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	svc, err := NewKnowledgeService(KnowledgeServiceDeps{Path: path})
	if err != nil {
		t.Fatalf("NewKnowledgeService: %v", err)
	}
	if svc.Size() != 1 {
		t.Fatalf("Size = %d, want 1", svc.Size())
	}

	got := svc.Context(context.Background(), "¿tienen parqueadero?", 3)
	if strings.Contains(got, "Respuesta:") {
		t.Errorf("expected Respuesta: prefix stripped, got %q", got)
	}
	if !strings.Contains(got, "parqueadero gratuito") {
		t.Errorf("unexpected context %q", got)
	}
}

func TestKnowledgeMissingFileFallsBack(t *testing.T) {
	svc, err := NewKnowledgeService(KnowledgeServiceDeps{Path: "/no/such/file.csv"})
	if err != nil {
		t.Fatalf("NewKnowledgeService: %v", err)
	}
	if svc.Size() == 0 {
		t.Error("expected fallback to built-in corpus")
	}
}
