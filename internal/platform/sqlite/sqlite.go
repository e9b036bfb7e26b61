package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Options configure the SQLite connection.
type Options struct {
	Path        string
	BusyTimeout time.Duration
}

// Open opens the database with the pragmas the application relies on:
// WAL journaling, enforced foreign keys, and a busy timeout so concurrent
// writers queue instead of failing immediately.
func Open(opts Options) (*sql.DB, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	// _txlock=immediate makes every transaction take the write lock up front,
	// which is what the stock-decrementing order path depends on.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY churn
	// while reads multiplex over it.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Migrate applies the schema. Statements are idempotent so the call is safe on
// every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("sqlite: database handle is required")
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role INTEGER NOT NULL DEFAULT 2,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_stocks (
		id TEXT PRIMARY KEY,
		product_name TEXT NOT NULL,
		product_sku TEXT,
		barcode TEXT UNIQUE,
		category TEXT,
		brand TEXT,
		description TEXT,
		quantity_available INTEGER NOT NULL DEFAULT 0,
		unit_cost TEXT NOT NULL DEFAULT '0',
		original_price TEXT,
		discount_percent TEXT,
		discount_amount TEXT,
		promotion_code TEXT,
		promotion_description TEXT,
		promotion_valid_until TEXT,
		is_on_sale INTEGER NOT NULL DEFAULT 0,
		warehouse_location TEXT NOT NULL DEFAULT 'CUENCA-MAIN',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_stocks_barcode ON product_stocks (barcode)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
		status TEXT NOT NULL DEFAULT 'DRAFT',
		payment_status TEXT NOT NULL DEFAULT 'PENDING',
		subtotal TEXT NOT NULL DEFAULT '0',
		tax_amount TEXT NOT NULL DEFAULT '0',
		shipping_cost TEXT NOT NULL DEFAULT '0',
		discount_amount TEXT NOT NULL DEFAULT '0',
		total_amount TEXT NOT NULL DEFAULT '0',
		shipping_address TEXT,
		contact_phone TEXT,
		contact_email TEXT,
		session_id TEXT,
		internal_notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES product_stocks (id) ON DELETE RESTRICT,
		product_name TEXT NOT NULL,
		product_sku TEXT,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		discount_amount TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details (order_id)`,
	`CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE RESTRICT,
		order_id TEXT REFERENCES orders (id) ON DELETE SET NULL,
		role TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata_json TEXT,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_order ON chat_history (order_id)`,
}
