package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/httpx"
	"github.com/ventia/api/internal/platform/pagination"
	"github.com/ventia/api/internal/services"
)

const maxSearchResults = 20

type productPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SKU               string `json:"sku,omitempty"`
	Barcode           string `json:"barcode,omitempty"`
	Category          string `json:"category,omitempty"`
	Brand             string `json:"brand,omitempty"`
	Description       string `json:"description,omitempty"`
	Price             string `json:"price"`
	OriginalPrice     string `json:"original_price,omitempty"`
	SavingsPercent    string `json:"savings_percent,omitempty"`
	OnSale            bool   `json:"on_sale"`
	PromotionText     string `json:"promotion_text,omitempty"`
	QuantityAvailable int    `json:"quantity_available"`
	InStock           bool   `json:"in_stock"`
}

// ProductHandlersDeps bundles constructor inputs for the product handlers.
type ProductHandlersDeps struct {
	Catalog services.CatalogService
	Clock   func() time.Time
}

// ProductHandlers exposes public catalog reads.
type ProductHandlers struct {
	catalog services.CatalogService
	clock   func() time.Time
}

// NewProductHandlers constructs the product handlers.
func NewProductHandlers(deps ProductHandlersDeps) (*ProductHandlers, error) {
	if deps.Catalog == nil {
		return nil, errors.New("product handlers: catalog service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ProductHandlers{catalog: deps.Catalog, clock: clock}, nil
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/barcode/{barcode}", h.byBarcode)
	r.Get("/{productID}", h.byID)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := pagination.Parse(r, pagination.Options{DefaultLimit: 20})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit and offset must be positive integers", http.StatusBadRequest))
		return
	}

	query := r.URL.Query()
	filter := services.CatalogFilter{
		Category:   strings.TrimSpace(query.Get("category")),
		OnSaleOnly: query.Get("on_sale") == "true",
		InStock:    query.Get("in_stock") == "true",
		Limit:      params.Limit,
		Offset:     params.Offset,
	}

	products, err := h.catalog.List(ctx, filter)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_failed", "could not list products", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products": toProductPayloads(products, h.clock()),
	})
}

func (h *ProductHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "query parameter q is required", http.StatusBadRequest))
		return
	}

	products, err := h.catalog.Search(ctx, query, maxSearchResults)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_failed", "could not search products", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"query":    query,
		"products": toProductPayloads(products, h.clock()),
	})
}

func (h *ProductHandlers) byID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.catalog.Product(ctx, productID)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_failed", "could not load the product", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toProductPayload(product, h.clock()))
}

func (h *ProductHandlers) byBarcode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	barcode := strings.TrimSpace(chi.URLParam(r, "barcode"))
	product, err := h.catalog.ProductByBarcode(ctx, barcode)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_failed", "could not load the product", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toProductPayload(product, h.clock()))
}

func toProductPayloads(products []domain.Product, now time.Time) []productPayload {
	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, toProductPayload(product, now))
	}
	return payload
}

func toProductPayload(product domain.Product, now time.Time) productPayload {
	payload := productPayload{
		ID:                product.ID,
		Name:              product.Name,
		SKU:               product.SKU,
		Barcode:           product.Barcode,
		Category:          product.Category,
		Brand:             product.Brand,
		Description:       product.Description,
		Price:             product.FinalPrice().StringFixed(2),
		OnSale:            product.OnSale,
		QuantityAvailable: product.QuantityAvailable,
		InStock:           product.InStock(),
	}
	if product.HasActivePromotion(now) {
		payload.PromotionText = product.PromotionText
		if savings := product.SavingsPercent(); savings.IsPositive() {
			payload.OriginalPrice = product.ReferencePrice().StringFixed(2)
			payload.SavingsPercent = savings.StringFixed(1)
		}
	}
	return payload
}
