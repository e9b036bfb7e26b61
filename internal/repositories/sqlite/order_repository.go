package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

const orderColumns = `id, user_id, status, payment_status, subtotal, tax_amount,
	shipping_cost, discount_amount, total_amount, shipping_address, contact_phone,
	contact_email, session_id, internal_notes, created_at, updated_at`

// OrderRepositoryDeps bundles the order repository dependencies.
type OrderRepositoryDeps struct {
	DB          *sql.DB
	Clock       func() time.Time
	IDGenerator func() string
}

// OrderRepository persists orders in SQLite. Create and Cancel move stock
// inside the same transaction as the order rows.
type OrderRepository struct {
	db    *sql.DB
	clock func() time.Time
	newID func() string
}

// NewOrderRepository constructs a SQLite-backed order repository.
func NewOrderRepository(deps OrderRepositoryDeps) (*OrderRepository, error) {
	if deps.DB == nil {
		return nil, errors.New("order repository requires a database handle")
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return ulid.Make().String() }
	}
	return &OrderRepository{db: deps.DB, clock: deps.Clock, newID: deps.IDGenerator}, nil
}

// Create inserts the order header and lines and decrements stock, all in one
// transaction. The first unknown, inactive or under-stocked product aborts
// the whole order and leaves stock untouched.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.UserID) == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order user id is required", nil)
	}
	if len(order.Lines) == 0 {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown, "order requires at least one line", nil)
	}

	now := r.clock().UTC()
	if strings.TrimSpace(order.ID) == "" {
		order.ID = r.newID()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusConfirmed
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.Quantity <= 0 {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorUnknown,
				fmt.Sprintf("line quantity must be positive for product %s", line.ProductID), nil)
		}

		product, err := lockedProduct(ctx, tx, line.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if product.QuantityAvailable < line.Quantity {
			return domain.Order{}, &repositories.OrderError{
				Code:        repositories.OrderErrorInsufficientStock,
				Message:     fmt.Sprintf("insufficient stock for %s", product.Name),
				ProductName: product.Name,
				Available:   product.QuantityAvailable,
				Requested:   line.Quantity,
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE product_stocks SET quantity_available = quantity_available - ? WHERE id = ?",
			line.Quantity, product.ID,
		); err != nil {
			return domain.Order{}, fmt.Errorf("order repository: decrement stock %s: %w", product.ID, err)
		}

		if strings.TrimSpace(line.ID) == "" {
			line.ID = r.newID()
		}
		line.OrderID = order.ID
		line.ProductName = product.Name
		line.ProductSKU = product.SKU
		line.UnitPrice = product.FinalPrice()
		line.CreatedAt = now
	}

	order.CalculateTotals()

	if _, err := tx.ExecContext(ctx, `INSERT INTO orders (
		id, user_id, status, payment_status, subtotal, tax_amount, shipping_cost,
		discount_amount, total_amount, shipping_address, contact_phone, contact_email,
		session_id, internal_notes, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, string(order.Status), string(order.PaymentStatus),
		encodeDecimal(order.Subtotal), encodeDecimal(order.Tax), encodeDecimal(order.Shipping),
		encodeDecimal(order.Discount), encodeDecimal(order.Total),
		nullString(order.ShippingAddress), nullString(order.ContactPhone), nullString(order.ContactEmail),
		nullString(order.SessionID), nullString(order.InternalNotes),
		encodeTime(order.CreatedAt), encodeTime(order.UpdatedAt),
	); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: insert order %s: %w", order.ID, err)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, `INSERT INTO order_details (
			id, order_id, product_id, product_name, product_sku, quantity,
			unit_price, discount_amount, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, line.OrderID, line.ProductID, line.ProductName, nullString(line.ProductSKU),
			line.Quantity, encodeDecimal(line.UnitPrice), encodeDecimal(line.Discount),
			encodeTime(line.CreatedAt),
		); err != nil {
			return domain.Order{}, fmt.Errorf("order repository: insert line %s: %w", line.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: commit order %s: %w", order.ID, err)
	}
	return order, nil
}

// lockedProduct reads the stock row inside the write transaction, which
// already holds the database write lock via _txlock=immediate.
func lockedProduct(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error) {
	var (
		product                                 domain.Product
		sku                                     sql.NullString
		unitCost                                string
		originalPrice, discountPct, discountAmt sql.NullString
		onSale, active                          int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, product_name, product_sku, quantity_available, unit_cost,
			original_price, discount_percent, discount_amount, is_on_sale, is_active
		FROM product_stocks WHERE id = ?`, productID,
	).Scan(&product.ID, &product.Name, &sku, &product.QuantityAvailable, &unitCost,
		&originalPrice, &discountPct, &discountAmt, &onSale, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && active == 0) {
		return domain.Product{}, repositories.NewOrderError(repositories.OrderErrorProductNotFound,
			fmt.Sprintf("product %s not found or inactive", productID), nil)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("order repository: load product %s: %w", productID, err)
	}

	product.SKU = sku.String
	product.UnitCost = decodeDecimal(unitCost)
	product.OriginalPrice = decodeNullDecimal(originalPrice)
	product.DiscountPercent = decodeNullDecimal(discountPct)
	product.DiscountAmount = decodeNullDecimal(discountAmt)
	product.OnSale = onSale == 1
	product.Active = true
	return product, nil
}

// Cancel restores stock for every line and marks the order cancelled and
// refunded. Delivered and already-cancelled orders are refused.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, reason string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, "order id is required", nil)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.IsCancelable() {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidState,
			fmt.Sprintf("order %s cannot be cancelled in status %s", orderID, order.Status), nil)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx,
			"UPDATE product_stocks SET quantity_available = quantity_available + ? WHERE id = ?",
			line.Quantity, line.ProductID,
		); err != nil {
			return domain.Order{}, fmt.Errorf("order repository: restore stock %s: %w", line.ProductID, err)
		}
	}

	now := r.clock().UTC()
	notes := order.InternalNotes
	if strings.TrimSpace(reason) != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "[CANCELLED]: " + reason
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, payment_status = ?, internal_notes = ?, updated_at = ? WHERE id = ?",
		string(domain.OrderStatusCancelled), string(domain.PaymentStatusRefunded),
		nullString(notes), encodeTime(now), orderID,
	); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: cancel %s: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: commit cancel %s: %w", orderID, err)
	}

	order.Status = domain.OrderStatusCancelled
	order.PaymentStatus = domain.PaymentStatusRefunded
	order.InternalNotes = notes
	order.UpdatedAt = now
	return order, nil
}

// FindByID loads the order header with its lines.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: commit read: %w", err)
	}
	return order, nil
}

// ListByUser returns the user's orders with lines, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?",
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: list by user: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order repository: scan: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: list by user: %w", err)
	}

	for i := range orders {
		lines, err := loadLines(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// UpdateStatus moves the order along the lifecycle graph, refusing
// transitions the graph does not allow.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order repository: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.CanTransitionTo(status) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidState,
			fmt.Sprintf("order %s cannot move from %s to %s", orderID, order.Status, status), nil)
	}

	now := r.clock().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		string(status), encodeTime(now), orderID,
	); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: update status %s: %w", orderID, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("order repository: commit status %s: %w", orderID, err)
	}

	order.Status = status
	order.UpdatedAt = now
	return order, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadOrder(ctx context.Context, tx *sql.Tx, orderID string) (domain.Order, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", orderID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound,
			fmt.Sprintf("order %s not found", orderID), nil)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("order repository: load %s: %w", orderID, err)
	}

	lines, err := loadLines(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines
	return order, nil
}

func loadLines(ctx context.Context, q queryer, orderID string) ([]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, product_sku, quantity,
			unit_price, discount_amount, created_at
		FROM order_details WHERE order_id = ? ORDER BY created_at ASC, id ASC`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("order repository: load lines %s: %w", orderID, err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line                domain.OrderLine
			sku                 sql.NullString
			unitPrice, discount string
			createdAt           string
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&sku, &line.Quantity, &unitPrice, &discount, &createdAt); err != nil {
			return nil, fmt.Errorf("order repository: scan line: %w", err)
		}
		line.ProductSKU = sku.String
		line.UnitPrice = decodeDecimal(unitPrice)
		line.Discount = decodeDecimal(discount)
		line.CreatedAt = decodeTime(createdAt)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order repository: load lines %s: %w", orderID, err)
	}
	return lines, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                                    domain.Order
		status, paymentStatus                    string
		subtotal, tax, shipping, discount, total string
		address, phone, email, sessionID, notes  sql.NullString
		createdAt, updatedAt                     string
	)
	if err := row.Scan(&order.ID, &order.UserID, &status, &paymentStatus,
		&subtotal, &tax, &shipping, &discount, &total,
		&address, &phone, &email, &sessionID, &notes,
		&createdAt, &updatedAt); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.Subtotal = decodeDecimal(subtotal)
	order.Tax = decodeDecimal(tax)
	order.Shipping = decodeDecimal(shipping)
	order.Discount = decodeDecimal(discount)
	order.Total = decodeDecimal(total)
	order.ShippingAddress = address.String
	order.ContactPhone = phone.String
	order.ContactEmail = email.String
	order.SessionID = sessionID.String
	order.InternalNotes = notes.String
	order.CreatedAt = decodeTime(createdAt)
	order.UpdatedAt = decodeTime(updatedAt)
	return order, nil
}
