package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	domain "github.com/ventia/api/internal/domain"
	platformsqlite "github.com/ventia/api/internal/platform/sqlite"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := platformsqlite.Open(platformsqlite.Options{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := platformsqlite.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func seedUser(t *testing.T, db *sql.DB, id string) domain.User {
	t.Helper()

	repo, err := NewUserRepository(UserRepositoryDeps{DB: db, Clock: testClock})
	if err != nil {
		t.Fatalf("NewUserRepository: %v", err)
	}
	user := domain.User{
		ID:           id,
		Username:     "user-" + id,
		Email:        id + "@example.com",
		FullName:     "Cliente " + id,
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		Active:       true,
	}
	if err := repo.Insert(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func seedProduct(t *testing.T, db *sql.DB, product domain.Product) domain.Product {
	t.Helper()

	repo, err := NewProductRepository(db)
	if err != nil {
		t.Fatalf("NewProductRepository: %v", err)
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = testClock()
	}
	if err := repo.Insert(context.Background(), product); err != nil {
		t.Fatalf("seed product %s: %v", product.ID, err)
	}
	return product
}
