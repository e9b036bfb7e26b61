package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/httpx"
	"github.com/ventia/api/internal/services"
)

const (
	loginRateLimit     = 5
	loginRateWindow    = time.Minute
	registerRateLimit  = 10
	registerRateWindow = time.Minute
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     int    `json:"role"`
}

// AuthHandlersDeps bundles constructor inputs for the auth handlers.
type AuthHandlersDeps struct {
	Users services.UserService
	Clock func() time.Time
}

// AuthHandlers exposes account registration and login.
type AuthHandlers struct {
	users        services.UserService
	loginLimiter rateLimiter
	registerLim  rateLimiter
}

// NewAuthHandlers constructs the auth handlers.
func NewAuthHandlers(deps AuthHandlersDeps) (*AuthHandlers, error) {
	if deps.Users == nil {
		return nil, errors.New("auth handlers: user service is required")
	}
	return &AuthHandlers{
		users:        deps.Users,
		loginLimiter: newSimpleRateLimiter(loginRateLimit, loginRateWindow, deps.Clock),
		registerLim:  newSimpleRateLimiter(registerRateLimit, registerRateWindow, deps.Clock),
	}, nil
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(limitRequests(h.registerLim)).Post("/register", h.register)
	r.With(limitRequests(h.loginLimiter)).Post("/login", h.login)
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	user, err := h.users.Register(ctx, services.RegisterInput{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Password: req.Password,
		Role:     domain.RoleCustomer,
	})
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "username, email and a password of at least 8 characters are required", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrUserDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("username_taken", "username or email already registered", http.StatusConflict))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("registration_failed", "could not create the account", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusCreated, toUserPayload(user))
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	result, err := h.users.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid username or password", http.StatusUnauthorized))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("login_failed", "could not complete the login", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"access_token": result.Token,
		"token_type":   "bearer",
		"user":         toUserPayload(result.User),
	})
}

func toUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
