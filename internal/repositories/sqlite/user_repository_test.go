package sqlite

import (
	"context"
	"errors"
	"testing"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

func TestUserInsertAndFind(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewUserRepository(UserRepositoryDeps{DB: db, Clock: testClock})
	if err != nil {
		t.Fatalf("NewUserRepository: %v", err)
	}

	user := domain.User{
		ID:           "user-1",
		Username:     "maria",
		Email:        "maria@example.com",
		FullName:     "María Pérez",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		Active:       true,
	}
	if err := repo.Insert(context.Background(), user); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	got, err := repo.FindByUsername(context.Background(), "maria")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if got.ID != "user-1" || got.Email != "maria@example.com" || !got.Active {
		t.Errorf("unexpected user %+v", got)
	}

	if _, err := repo.FindByID(context.Background(), "ghost"); !errors.Is(err, repositories.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserInsertDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo, _ := NewUserRepository(UserRepositoryDeps{DB: db, Clock: testClock})

	user := domain.User{ID: "user-1", Username: "maria", Email: "maria@example.com", PasswordHash: "hash", Role: domain.RoleCustomer, Active: true}
	if err := repo.Insert(context.Background(), user); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	dup := domain.User{ID: "user-2", Username: "maria", Email: "otra@example.com", PasswordHash: "hash", Role: domain.RoleCustomer, Active: true}
	if err := repo.Insert(context.Background(), dup); !errors.Is(err, repositories.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}
