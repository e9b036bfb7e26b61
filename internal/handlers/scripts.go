package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/platform/httpx"
	"github.com/ventia/api/internal/services"
)

const (
	scriptRateLimit  = 10
	scriptRateWindow = time.Minute
)

type scriptProductRequest struct {
	Barcode  string `json:"barcode"`
	Priority string `json:"priority"`
}

type scriptPreferencesRequest struct {
	Budget  *float64 `json:"budget"`
	UseCase string   `json:"use_case"`
	Color   string   `json:"color"`
	Size    string   `json:"size"`
}

type processScriptRequest struct {
	SessionID   string                   `json:"session_id"`
	Products    []scriptProductRequest   `json:"products"`
	Preferences scriptPreferencesRequest `json:"preferences"`
	Context     string                   `json:"context"`
	Style       string                   `json:"style"`
	WantAudio   bool                     `json:"want_audio"`
}

type continueScriptRequest struct {
	Message string `json:"message"`
}

type scriptResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	NextStep    string `json:"next_step"`
	AudioURL    string `json:"audio_url,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// ScriptHandlersDeps bundles constructor inputs for the script handlers.
type ScriptHandlersDeps struct {
	Scripts services.ScriptService
	Clock   func() time.Time
}

// ScriptHandlers exposes the guided-sale pipeline endpoints.
type ScriptHandlers struct {
	scripts   services.ScriptService
	limiter   rateLimiter
	sanitizer *bluemonday.Policy
}

// NewScriptHandlers constructs the script handlers.
func NewScriptHandlers(deps ScriptHandlersDeps) (*ScriptHandlers, error) {
	if deps.Scripts == nil {
		return nil, errors.New("script handlers: script service is required")
	}
	return &ScriptHandlers{
		scripts:   deps.Scripts,
		limiter:   newSimpleRateLimiter(scriptRateLimit, scriptRateWindow, deps.Clock),
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Routes registers the /scripts endpoints.
func (h *ScriptHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(auth.RequireAuthenticated())
	r.Use(limitRequests(h.limiter))
	r.Post("/", h.process)
	r.Post("/{sessionID}:continue", h.continueScript)
}

func (h *ScriptHandlers) process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	var req processScriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session_id is required", http.StatusBadRequest))
		return
	}

	products := make([]domain.ScriptProduct, 0, len(req.Products))
	for _, item := range req.Products {
		products = append(products, domain.ScriptProduct{
			Barcode:  strings.TrimSpace(item.Barcode),
			Priority: domain.Priority(strings.ToLower(strings.TrimSpace(item.Priority))),
		})
	}

	preferences := domain.ScriptPreferences{
		UseCase: strings.TrimSpace(req.Preferences.UseCase),
		Color:   strings.TrimSpace(req.Preferences.Color),
		Size:    strings.TrimSpace(req.Preferences.Size),
	}
	if req.Preferences.Budget != nil && *req.Preferences.Budget > 0 {
		budget := decimal.NewFromFloat(*req.Preferences.Budget)
		preferences.Budget = &budget
	}

	result, err := h.scripts.Process(ctx, domain.Script{
		SessionID:   sessionID,
		UserID:      identity.UserID,
		Products:    products,
		Preferences: preferences,
		Context:     strings.TrimSpace(h.sanitizer.Sanitize(req.Context)),
		Style:       domain.Style(strings.ToLower(strings.TrimSpace(req.Style))),
		WantAudio:   req.WantAudio,
	})
	switch {
	case errors.Is(err, services.ErrScriptInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session_id and user are required", http.StatusBadRequest))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("script_failed", "could not process the sales script", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toScriptResponse(result))
}

func (h *ScriptHandlers) continueScript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	var req continueScriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	message := strings.TrimSpace(h.sanitizer.Sanitize(req.Message))
	if sessionID == "" || message == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id and message are required", http.StatusBadRequest))
		return
	}

	result, err := h.scripts.ContinueScript(ctx, sessionID, identity.UserID, message)
	switch {
	case errors.Is(err, services.ErrScriptInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id and message are required", http.StatusBadRequest))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("script_failed", "could not continue the guided sale", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toScriptResponse(result))
}

func toScriptResponse(result services.ScriptResult) scriptResponse {
	return scriptResponse{
		Success:     result.Success,
		Message:     result.Message,
		NextStep:    string(result.NextStep),
		AudioURL:    result.AudioURL,
		OrderNumber: result.OrderNumber,
	}
}
