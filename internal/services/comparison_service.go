package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/textutil"
)

// ErrComparisonNoCandidates indicates there is nothing to compare.
var ErrComparisonNoCandidates = errors.New("comparison service: no candidates")

// ComparisonServiceDeps bundles constructor inputs for the comparison service.
type ComparisonServiceDeps struct {
	Clock func() time.Time
}

type comparisonService struct {
	clock func() time.Time
}

// NewComparisonService constructs the deterministic product comparator.
func NewComparisonService(deps ComparisonServiceDeps) (ComparisonService, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &comparisonService{clock: clock}, nil
}

// Compare scores every candidate on priority, budget fit, promotions, stock
// and preference match, then ranks them. Equal scores break on lower final
// price, then name.
func (s *comparisonService) Compare(_ context.Context, input ComparisonInput) (domain.Recommendation, error) {
	if len(input.Candidates) == 0 {
		return domain.Recommendation{}, ErrComparisonNoCandidates
	}

	now := s.clock()
	scored := make([]domain.ScoredProduct, 0, len(input.Candidates))
	for _, candidate := range input.Candidates {
		scored = append(scored, s.score(candidate, input.Preferences, now))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if !scored[i].Score.Equal(scored[j].Score) {
			return scored[i].Score.GreaterThan(scored[j].Score)
		}
		pi, pj := scored[i].Product.FinalPrice(), scored[j].Product.FinalPrice()
		if !pi.Equal(pj) {
			return pi.LessThan(pj)
		}
		return scored[i].Product.Name < scored[j].Product.Name
	})

	best := scored[0]
	return domain.Recommendation{
		Best:      best,
		Ranked:    scored,
		Reasoning: buildReasoning(best, scored),
	}, nil
}

func (s *comparisonService) score(candidate ComparisonCandidate, prefs domain.ScriptPreferences, now time.Time) domain.ScoredProduct {
	product := candidate.Product
	score := decimal.Zero
	var reasons []string

	add := func(points int64) { score = score.Add(decimal.NewFromInt(points)) }

	switch candidate.Priority {
	case domain.PriorityAlta:
		add(25)
	case domain.PriorityMedia:
		add(15)
	case domain.PriorityBaja:
		add(5)
	default:
		add(10)
	}

	final := product.FinalPrice()
	if prefs.Budget != nil && prefs.Budget.IsPositive() {
		budget := *prefs.Budget
		stretched := budget.Mul(decimal.NewFromFloat(1.1))
		switch {
		case final.LessThanOrEqual(budget):
			add(25)
			reasons = append(reasons, fmt.Sprintf("Dentro de tu presupuesto de $%s", budget.StringFixed(2)))
		case final.LessThanOrEqual(stretched):
			add(15)
		default:
			add(5)
		}
	} else {
		add(15)
	}

	if product.HasActivePromotion(now) {
		add(20)
		savings := product.SavingsAmount()
		if savings.IsPositive() {
			reasons = append(reasons, fmt.Sprintf("🎉 En OFERTA: Ahorras $%s", savings.StringFixed(2)))
		}
		if text := strings.TrimSpace(product.PromotionText); text != "" {
			reasons = append(reasons, text)
		}
	} else if product.OnSale {
		add(15)
	}

	switch {
	case product.QuantityAvailable > 10:
		add(15)
	case product.QuantityAvailable > 5:
		add(10)
		reasons = append(reasons, "Stock limitado - ¡popular!")
	case product.QuantityAvailable > 0:
		add(5)
		reasons = append(reasons, fmt.Sprintf("¡Solo quedan %d unidades!", product.QuantityAvailable))
	default:
		add(-20)
	}

	add(useCasePoints(prefs.UseCase, product.Category))

	if prefs.Color != "" && textutil.ContainsFolded(product.Name, prefs.Color) {
		add(5)
		reasons = append(reasons, fmt.Sprintf("Disponible en color %s", prefs.Color))
	}
	if prefs.Size != "" {
		add(5)
	}

	if score.IsNegative() {
		score = decimal.Zero
	}
	if score.GreaterThan(decimal.NewFromInt(100)) {
		score = decimal.NewFromInt(100)
	}

	return domain.ScoredProduct{
		Product:  product,
		Priority: candidate.Priority,
		Score:    score.Round(1),
		Reasons:  reasons,
	}
}

// useCasePoints rewards a category that matches the stated use case. A
// near-miss category still earns partial credit for running use cases.
func useCasePoints(useCase, category string) int64 {
	use := textutil.Fold(useCase)
	cat := textutil.Fold(category)
	if use == "" || cat == "" {
		return 0
	}

	switch {
	case containsAny(use, "correr", "maraton", "running"):
		if strings.Contains(cat, "run") {
			return 15
		}
		if strings.Contains(cat, "training") {
			return 8
		}
	case containsAny(use, "gym", "gimnasio"):
		if strings.Contains(cat, "train") || strings.Contains(cat, "gym") {
			return 15
		}
	case containsAny(use, "casual", "caminar"):
		if strings.Contains(cat, "life") || strings.Contains(cat, "casual") {
			return 15
		}
	}
	return 0
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func buildReasoning(best domain.ScoredProduct, ranked []domain.ScoredProduct) string {
	product := best.Product
	final := product.FinalPrice()

	var b strings.Builder
	fmt.Fprintf(&b, "Recomendación: %s\n", product.Name)
	if savings := product.SavingsAmount(); savings.IsPositive() {
		fmt.Fprintf(&b, "Precio: $%s (antes $%s, ahorras $%s)\n",
			final.StringFixed(2), product.ReferencePrice().StringFixed(2), savings.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "Precio: $%s\n", final.StringFixed(2))
	}

	if len(best.Reasons) > 0 {
		top := best.Reasons
		if len(top) > 3 {
			top = top[:3]
		}
		fmt.Fprintf(&b, "Razones: %s\n", strings.Join(top, ". "))
	}

	if len(ranked) > 1 {
		other := ranked[1].Product
		if diff := other.FinalPrice().Sub(final); diff.IsPositive() {
			fmt.Fprintf(&b, "Comparado con %s: este ahorra $%s\n", other.Name, diff.StringFixed(2))
		}
	}

	if product.QuantityAvailable > 0 && product.QuantityAvailable <= 5 {
		fmt.Fprintf(&b, "Stock: Solo %d unidades disponibles\n", product.QuantityAvailable)
	}
	return strings.TrimRight(b.String(), "\n")
}
