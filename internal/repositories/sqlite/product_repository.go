package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

const productColumns = `id, product_name, product_sku, barcode, category, brand, description,
	quantity_available, unit_cost, original_price, discount_percent, discount_amount,
	promotion_code, promotion_description, promotion_valid_until, is_on_sale,
	warehouse_location, is_active, created_at`

// ProductRepository reads catalog rows from SQLite.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository constructs a SQLite-backed product repository.
func NewProductRepository(db *sql.DB) (*ProductRepository, error) {
	if db == nil {
		return nil, errors.New("product repository requires a database handle")
	}
	return &ProductRepository{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product                                 domain.Product
		sku, barcode, category, brand, desc     sql.NullString
		unitCost                                string
		originalPrice, discountPct, discountAmt sql.NullString
		promoCode, promoText, promoUntil        sql.NullString
		warehouse                               sql.NullString
		onSale, active                          int
		createdAt                               string
	)
	if err := row.Scan(
		&product.ID, &product.Name, &sku, &barcode, &category, &brand, &desc,
		&product.QuantityAvailable, &unitCost, &originalPrice, &discountPct, &discountAmt,
		&promoCode, &promoText, &promoUntil, &onSale,
		&warehouse, &active, &createdAt,
	); err != nil {
		return domain.Product{}, err
	}

	product.SKU = sku.String
	product.Barcode = barcode.String
	product.Category = category.String
	product.Brand = brand.String
	product.Description = desc.String
	product.UnitCost = decodeDecimal(unitCost)
	product.OriginalPrice = decodeNullDecimal(originalPrice)
	product.DiscountPercent = decodeNullDecimal(discountPct)
	product.DiscountAmount = decodeNullDecimal(discountAmt)
	product.PromotionCode = promoCode.String
	product.PromotionText = promoText.String
	product.PromotionValidUntil = decodeNullTime(promoUntil)
	product.OnSale = onSale != 0
	product.WarehouseLocation = warehouse.String
	product.Active = active != 0
	product.CreatedAt = decodeTime(createdAt)
	return product, nil
}

// FindByID loads one active product by primary key.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	return r.findOne(ctx, "id", productID)
}

// FindByBarcode loads one active product by barcode.
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	return r.findOne(ctx, "barcode", barcode)
}

func (r *ProductRepository) findOne(ctx context.Context, column, value string) (domain.Product, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Product{}, repositories.ErrProductNotFound
	}

	query := fmt.Sprintf("SELECT %s FROM product_stocks WHERE %s = ? AND is_active = 1", productColumns, column)
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, repositories.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("product repository: find by %s: %w", column, err)
	}
	return product, nil
}

// FindByBarcodes resolves many barcodes, preserving input order and skipping
// unknown or inactive codes.
func (r *ProductRepository) FindByBarcodes(ctx context.Context, barcodes []string) ([]domain.Product, error) {
	cleaned := make([]string, 0, len(barcodes))
	for _, code := range barcodes {
		if code = strings.TrimSpace(code); code != "" {
			cleaned = append(cleaned, code)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	args := make([]any, len(cleaned))
	for i, code := range cleaned {
		args[i] = code
	}
	query := fmt.Sprintf(
		"SELECT %s FROM product_stocks WHERE barcode IN (%s) AND is_active = 1",
		productColumns, placeholders(len(cleaned)),
	)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("product repository: find by barcodes: %w", err)
	}
	defer rows.Close()

	byBarcode := make(map[string]domain.Product, len(cleaned))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product repository: scan: %w", err)
		}
		byBarcode[product.Barcode] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product repository: find by barcodes: %w", err)
	}

	ordered := make([]domain.Product, 0, len(byBarcode))
	seen := make(map[string]struct{}, len(byBarcode))
	for _, code := range cleaned {
		product, ok := byBarcode[code]
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		ordered = append(ordered, product)
	}
	return ordered, nil
}

// SearchKeywords matches any token against name, description, brand and
// category of active rows.
func (r *ProductRepository) SearchKeywords(ctx context.Context, tokens []string, limit int) ([]domain.Product, error) {
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			cleaned = append(cleaned, token)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var clauses []string
	var args []any
	for _, token := range cleaned {
		pattern := "%" + token + "%"
		clauses = append(clauses, "(product_name LIKE ? OR description LIKE ? OR brand LIKE ? OR category LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern)
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT %s FROM product_stocks WHERE is_active = 1 AND (%s) ORDER BY product_name ASC LIMIT ?",
		productColumns, strings.Join(clauses, " OR "),
	)
	return r.queryProducts(ctx, query, args...)
}

// List returns active products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + productColumns + " FROM product_stocks WHERE is_active = 1"
	var args []any
	if category := strings.TrimSpace(filter.Category); category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	if filter.OnSaleOnly {
		query += " AND is_on_sale = 1"
	}
	if filter.InStock {
		query += " AND quantity_available > 0"
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	return r.queryProducts(ctx, query, args...)
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("product repository: query: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("product repository: scan: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product repository: query: %w", err)
	}
	return products, nil
}

// Insert stores a catalog row. Used by seeding and stock administration.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product repository: product id is required")
	}
	if strings.TrimSpace(product.Name) == "" {
		return errors.New("product repository: product name is required")
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO product_stocks (
		id, product_name, product_sku, barcode, category, brand, description,
		quantity_available, unit_cost, original_price, discount_percent, discount_amount,
		promotion_code, promotion_description, promotion_valid_until, is_on_sale,
		warehouse_location, is_active, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, nullString(product.SKU), nullString(product.Barcode),
		nullString(product.Category), nullString(product.Brand), nullString(product.Description),
		product.QuantityAvailable, encodeDecimal(product.UnitCost),
		encodeNullDecimal(product.OriginalPrice), encodeNullDecimal(product.DiscountPercent),
		encodeNullDecimal(product.DiscountAmount),
		nullString(product.PromotionCode), nullString(product.PromotionText),
		encodeNullTime(product.PromotionValidUntil), boolToInt(product.OnSale),
		product.WarehouseLocation, boolToInt(product.Active), encodeTime(product.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("product repository: insert %s: %w", product.ID, err)
	}
	return nil
}
