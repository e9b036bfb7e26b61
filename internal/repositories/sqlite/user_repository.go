package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

const userColumns = `id, username, email, full_name, password_hash, role,
	is_active, created_at, updated_at`

// UserRepositoryDeps bundles the user repository dependencies.
type UserRepositoryDeps struct {
	DB    *sql.DB
	Clock func() time.Time
}

// UserRepository persists accounts in SQLite.
type UserRepository struct {
	db    *sql.DB
	clock func() time.Time
}

// NewUserRepository constructs a SQLite-backed user repository.
func NewUserRepository(deps UserRepositoryDeps) (*UserRepository, error) {
	if deps.DB == nil {
		return nil, errors.New("user repository requires a database handle")
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &UserRepository{db: deps.DB, clock: deps.Clock}, nil
}

// Insert stores a new account. Duplicate usernames or emails surface as
// ErrDuplicateUser.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("user repository: user id is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("user repository: username is required")
	}

	now := r.clock().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (
		id, username, email, full_name, password_hash, role, is_active, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.Role, boolToInt(user.Active), encodeTime(user.CreatedAt), encodeTime(user.UpdatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return repositories.ErrDuplicateUser
		}
		return fmt.Errorf("user repository: insert %s: %w", user.ID, err)
	}
	return nil
}

// FindByID loads one account by primary key.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	return r.findOne(ctx, "id", userID)
}

// FindByUsername loads one account by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (domain.User, error) {
	if strings.TrimSpace(value) == "" {
		return domain.User{}, repositories.ErrUserNotFound
	}

	var (
		user                 domain.User
		active               int
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE %s = ?", userColumns, column), value,
	).Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Role, &active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, repositories.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user repository: find by %s: %w", column, err)
	}

	user.Active = active != 0
	user.CreatedAt = decodeTime(createdAt)
	user.UpdatedAt = decodeTime(updatedAt)
	return user, nil
}
