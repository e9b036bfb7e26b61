package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ventia/api/internal/platform/textutil"
)

// KnowledgeServiceDeps bundles constructor inputs for the FAQ index.
type KnowledgeServiceDeps struct {
	// Path to a CSV file with question,answer,topic columns. Optional; the
	// built-in corpus is used when absent.
	Path   string
	Logger *zap.Logger
}

type knowledgeDocument struct {
	question string
	answer   string
	topic    string
	tokens   map[string]struct{}
}

type knowledgeService struct {
	documents []knowledgeDocument
}

// defaultKnowledge seeds the index so the store can answer basic questions
// before an operator loads their own corpus.
var defaultKnowledge = [][3]string{
	{"¿Cuál es el horario de atención?", "Atendemos de lunes a sábado de 9:00 a 19:00, y domingos de 10:00 a 14:00.", "horario"},
	{"¿Dónde están ubicados?", "Nuestro local principal está en el centro de Cuenca, en la Calle Larga y Hermano Miguel.", "ubicacion"},
	{"¿Cuál es la política de devoluciones?", "Aceptamos cambios y devoluciones dentro de los 30 días con la etiqueta puesta y el comprobante de compra.", "devoluciones"},
	{"¿Los productos tienen garantía?", "Todos los productos tienen garantía de fábrica de 90 días por defectos de fabricación.", "garantia"},
	{"¿Hacen envíos a domicilio?", "Sí, hacemos envíos a todo el país. Dentro de Cuenca la entrega llega en 24 horas.", "envios"},
	{"¿Qué formas de pago aceptan?", "Aceptamos efectivo, tarjeta de crédito, tarjeta de débito y transferencia bancaria.", "pagos"},
}

// NewKnowledgeService builds the in-memory FAQ index. The corpus is small
// and read-only, so it is tokenized once at construction.
func NewKnowledgeService(deps KnowledgeServiceDeps) (KnowledgeService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rows := defaultKnowledge
	if path := strings.TrimSpace(deps.Path); path != "" {
		loaded, err := loadKnowledgeCSV(path)
		switch {
		case err != nil:
			logger.Warn("knowledge corpus unreadable, using built-in FAQ",
				zap.String("path", path), zap.Error(err))
		case len(loaded) == 0:
			logger.Warn("knowledge corpus empty, using built-in FAQ", zap.String("path", path))
		default:
			rows = loaded
		}
	}

	documents := make([]knowledgeDocument, 0, len(rows))
	for _, row := range rows {
		doc := knowledgeDocument{question: row[0], answer: row[1], topic: row[2]}
		doc.tokens = knowledgeTokens(doc.question + " " + doc.answer + " " + doc.topic)
		documents = append(documents, doc)
	}
	return &knowledgeService{documents: documents}, nil
}

func loadKnowledgeCSV(path string) ([][3]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows [][3]string
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(record) < 2 {
			continue
		}
		// Skip a header row when present.
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "question") {
				continue
			}
		}
		row := [3]string{strings.TrimSpace(record[0]), strings.TrimSpace(record[1]), ""}
		if len(record) > 2 {
			row[2] = strings.TrimSpace(record[2])
		}
		if row[0] == "" || row[1] == "" {
			continue
		}
		rows = append(rows, row)
	}
}

func knowledgeTokens(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, token := range strings.Fields(textutil.Fold(text)) {
		token = strings.Trim(token, "¿?¡!.,:;()\"'")
		if len([]rune(token)) <= 2 {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

// Search returns the best-matching FAQ entries by folded token overlap,
// question hits counting double.
func (s *knowledgeService) Search(_ context.Context, query string, limit int) []KnowledgeEntry {
	queryTokens := knowledgeTokens(query)
	if len(queryTokens) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 3
	}

	var entries []KnowledgeEntry
	for _, doc := range s.documents {
		questionTokens := knowledgeTokens(doc.question)
		score := 0.0
		for token := range queryTokens {
			if _, ok := questionTokens[token]; ok {
				score += 2
				continue
			}
			if _, ok := doc.tokens[token]; ok {
				score++
			}
		}
		if score > 0 {
			entries = append(entries, KnowledgeEntry{
				Question: doc.question,
				Answer:   doc.answer,
				Topic:    doc.topic,
				Score:    score,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Context joins the best answers into a prompt-ready block, stripping any
// "Respuesta:" prefixes carried in operator corpora.
func (s *knowledgeService) Context(ctx context.Context, query string, limit int) string {
	entries := s.Search(ctx, query, limit)
	if len(entries) == 0 {
		return ""
	}

	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		answer := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(entry.Answer), "Respuesta:"))
		parts = append(parts, strings.TrimSpace(answer))
	}
	return strings.Join(parts, "\n")
}

func (s *knowledgeService) Size() int {
	return len(s.documents)
}
