package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/repositories"
)

var (
	// ErrUserInvalidInput indicates missing or malformed account data.
	ErrUserInvalidInput = errors.New("user service: invalid input")
	// ErrUserDuplicate indicates the username or email is already taken.
	ErrUserDuplicate = errors.New("user service: username or email already taken")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user service: user not found")
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// disabled accounts so login failures are indistinguishable.
	ErrInvalidCredentials = errors.New("user service: invalid credentials")
)

// UserServiceDeps bundles constructor inputs for the user service.
type UserServiceDeps struct {
	Users       repositories.UserRepository
	Tokens      *auth.TokenIssuer
	Clock       func() time.Time
	IDGenerator func() string
}

type userService struct {
	repo   repositories.UserRepository
	tokens *auth.TokenIssuer
	clock  func() time.Time
	newID  func() string
}

// NewUserService constructs the account service.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &userService{
		repo:   deps.Users,
		tokens: deps.Tokens,
		clock:  func() time.Time { return clock().UTC() },
		newID:  newID,
	}, nil
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || len(input.Password) < 8 {
		return domain.User{}, ErrUserInvalidInput
	}

	role := input.Role
	if role != domain.RoleAdmin {
		role = domain.RoleCustomer
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("user service: hash password: %w", err)
	}

	now := s.clock()
	user := domain.User{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return domain.User{}, ErrUserDuplicate
		}
		return domain.User{}, fmt.Errorf("user service: register: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("user service: login: %w", err)
	}
	if !user.Active {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(user.ID, user.Username, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("user service: mint token: %w", err)
	}

	user.PasswordHash = ""
	return LoginResult{Token: token, User: user}, nil
}

func (s *userService) Get(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, ErrUserInvalidInput
	}

	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user service: get: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}
