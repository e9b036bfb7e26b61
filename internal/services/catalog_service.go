package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/repositories"
)

// defaultCatalogTimeout bounds every catalog read so a slow disk never
// stalls a conversation turn.
const defaultCatalogTimeout = 5 * time.Second

// ErrProductNotFound indicates the requested product is missing or inactive.
var ErrProductNotFound = errors.New("catalog service: product not found")

// searchStopwords are filler words stripped from free-text queries before
// they hit the catalog.
var searchStopwords = textutil.StopwordSet(
	"el", "la", "de", "que", "y", "un", "una", "en", "a", "los", "las", "del",
	"por", "para", "con", "me", "mi", "tu", "hay", "tiene", "tienes",
	"quiero", "busco", "mostrar", "ver",
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Timeout  time.Duration
}

type catalogService struct {
	repo    repositories.ProductRepository
	timeout time.Duration
}

// NewCatalogService constructs the catalog read service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	return &catalogService{repo: deps.Products, timeout: timeout}, nil
}

func (s *catalogService) Product(ctx context.Context, productID string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByID(ctx, productID)
	if errors.Is(err, repositories.ErrProductNotFound) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog service: product %s: %w", productID, err)
	}
	return product, nil
}

func (s *catalogService) ProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByBarcode(ctx, barcode)
	if errors.Is(err, repositories.ErrProductNotFound) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog service: barcode %s: %w", barcode, err)
	}
	return product, nil
}

func (s *catalogService) ProductsByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.repo.FindByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, fmt.Errorf("catalog service: barcodes: %w", err)
	}
	return products, nil
}

// Search tokenizes the free-text query, drops filler words, and matches the
// remaining tokens against the catalog.
func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	tokens := textutil.Tokenize(query, searchStopwords)
	if len(tokens) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.repo.SearchKeywords(ctx, tokens, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog service: search: %w", err)
	}
	return products, nil
}

func (s *catalogService) List(ctx context.Context, filter CatalogFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.repo.List(ctx, repositories.ProductListFilter{
		Category:   filter.Category,
		OnSaleOnly: filter.OnSaleOnly,
		InStock:    filter.InStock,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog service: list: %w", err)
	}
	return products, nil
}
