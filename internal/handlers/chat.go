package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ventia/api/internal/agents"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/auth"
	"github.com/ventia/api/internal/platform/httpx"
	"github.com/ventia/api/internal/platform/pagination"
	"github.com/ventia/api/internal/platform/tts"
	"github.com/ventia/api/internal/services"
)

const (
	chatRateLimit      = 30
	chatRateWindow     = time.Minute
	maxChatMessageLen  = 2000
	defaultHistorySize = 50
)

// ConversationEngine processes one user message through the agent chain.
type ConversationEngine interface {
	ProcessTurn(ctx context.Context, sessionID, userID, message string) (agents.TurnResult, error)
}

type chatTurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	WantAudio bool   `json:"want_audio"`
}

type chatTurnResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Agent     string `json:"agent"`
	Intent    string `json:"intent,omitempty"`
	Style     string `json:"style,omitempty"`
	Ended     bool   `json:"ended,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
}

type transcriptPayload struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
}

type editMessageRequest struct {
	Body string `json:"body"`
}

// ChatHandlersDeps bundles constructor inputs for the chat handlers.
type ChatHandlersDeps struct {
	Engine      ConversationEngine
	Transcripts services.TranscriptService
	// TTS voices replies on request. Optional; absent means no audio.
	TTS   tts.Synthesizer
	Clock func() time.Time
}

// ChatHandlers exposes the conversation endpoints.
type ChatHandlers struct {
	engine      ConversationEngine
	transcripts services.TranscriptService
	tts         tts.Synthesizer
	limiter     rateLimiter
	sanitizer   *bluemonday.Policy
}

// NewChatHandlers constructs the chat handlers.
func NewChatHandlers(deps ChatHandlersDeps) (*ChatHandlers, error) {
	if deps.Engine == nil {
		return nil, errors.New("chat handlers: conversation engine is required")
	}
	if deps.Transcripts == nil {
		return nil, errors.New("chat handlers: transcript service is required")
	}
	synth := deps.TTS
	if synth == nil {
		synth = tts.Disabled{}
	}
	return &ChatHandlers{
		engine:      deps.Engine,
		transcripts: deps.Transcripts,
		tts:         synth,
		limiter:     newSimpleRateLimiter(chatRateLimit, chatRateWindow, deps.Clock),
		sanitizer:   bluemonday.StrictPolicy(),
	}, nil
}

// Routes registers the /chat endpoints.
func (h *ChatHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Use(auth.RequireAuthenticated())
	r.With(limitRequests(h.limiter)).Post("/", h.turn)
	r.Get("/history/{sessionID}", h.history)
	r.Get("/conversations", h.conversations)
	r.Get("/stats", h.stats)
	r.Patch("/messages/{messageID}", h.editMessage)
	r.Delete("/messages/{messageID}", h.deleteMessage)
	r.Post("/sessions/{sessionID}:archive", h.archive)
}

func (h *ChatHandlers) turn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	var req chatTurnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	// A missing session id starts a fresh conversation.
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	message := strings.TrimSpace(h.sanitizer.Sanitize(req.Message))
	if message == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "message is required", http.StatusBadRequest))
		return
	}
	if len(message) > maxChatMessageLen {
		httpx.WriteError(ctx, w, httpx.NewError("message_too_long", "message exceeds the allowed length", http.StatusBadRequest))
		return
	}

	result, err := h.engine.ProcessTurn(ctx, sessionID, identity.UserID, message)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("chat_failed", "could not process the message", http.StatusInternalServerError))
		return
	}

	var audioURL string
	if req.WantAudio {
		audioURL = h.synthesize(ctx, result.Reply)
	}

	writeJSONResponse(w, http.StatusOK, chatTurnResponse{
		SessionID: result.SessionID,
		Reply:     result.Reply,
		Agent:     string(result.Agent),
		Intent:    string(result.Intent),
		Style:     string(result.Style),
		Ended:     result.Ended,
		AudioURL:  audioURL,
	})
}

// synthesize voices the reply on a best-effort basis. Audio is garnish;
// any failure simply means a text-only response.
func (h *ChatHandlers) synthesize(ctx context.Context, text string) string {
	audio, err := h.tts.Synthesize(ctx, text)
	if err != nil {
		return ""
	}
	return tts.DataURL(audio)
}

func (h *ChatHandlers) history(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return
	}

	params, err := pagination.Parse(r, pagination.Options{DefaultLimit: defaultHistorySize})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit and offset must be positive integers", http.StatusBadRequest))
		return
	}

	// Admins can read any session; customers only their own.
	userScope := identity.UserID
	if identity.IsAdmin() {
		userScope = ""
	}

	records, err := h.transcripts.History(ctx, sessionID, userScope, params.Limit, params.Offset)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("history_failed", "could not load the conversation history", http.StatusInternalServerError))
		return
	}

	payload := make([]transcriptPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toTranscriptPayload(record))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   payload,
	})
}

func (h *ChatHandlers) conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	params, err := pagination.Parse(r, pagination.Options{DefaultLimit: 20})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit and offset must be positive integers", http.StatusBadRequest))
		return
	}

	summaries, err := h.transcripts.Conversations(ctx, identity.UserID, params.Limit, params.Offset)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("conversations_failed", "could not load the conversation list", http.StatusInternalServerError))
		return
	}

	payload := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, map[string]any{
			"session_id":     summary.SessionID,
			"message_count":  summary.MessageCount,
			"last_message":   summary.LastBody,
			"last_timestamp": summary.LastTimestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"conversations": payload})
}

func (h *ChatHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	stats, err := h.transcripts.Stats(ctx, identity.UserID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("stats_failed", "could not compute transcript statistics", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"total_messages": stats.TotalMessages,
		"user_messages":  stats.UserMessages,
		"agent_messages": stats.AgentMessages,
		"sessions":       stats.Sessions,
	})
}

func (h *ChatHandlers) editMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	messageID := strings.TrimSpace(chi.URLParam(r, "messageID"))
	var req editMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	body := strings.TrimSpace(h.sanitizer.Sanitize(req.Body))
	if messageID == "" || body == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "message id and body are required", http.StatusBadRequest))
		return
	}

	record, err := h.transcripts.EditMessage(ctx, messageID, identity.UserID, body)
	switch {
	case errors.Is(err, services.ErrTranscriptNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("message_not_found", "message not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrTranscriptForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "message belongs to another user", http.StatusForbidden))
		return
	case errors.Is(err, services.ErrTranscriptInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "message id and body are required", http.StatusBadRequest))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("edit_failed", "could not edit the message", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, toTranscriptPayload(record))
}

func (h *ChatHandlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	messageID := strings.TrimSpace(chi.URLParam(r, "messageID"))
	if messageID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "message id is required", http.StatusBadRequest))
		return
	}

	err := h.transcripts.DeleteMessage(ctx, messageID, identity.UserID)
	switch {
	case errors.Is(err, services.ErrTranscriptNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("message_not_found", "message not found", http.StatusNotFound))
		return
	case errors.Is(err, services.ErrTranscriptForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "message belongs to another user", http.StatusForbidden))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("delete_failed", "could not delete the message", http.StatusInternalServerError))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		writeUnauthenticated(w, r)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return
	}

	archived, err := h.transcripts.Archive(ctx, sessionID, identity.UserID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("archive_failed", "could not archive the conversation", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"archived":   archived,
	})
}

func toTranscriptPayload(record domain.TranscriptRecord) transcriptPayload {
	return transcriptPayload{
		ID:        record.ID,
		SessionID: record.SessionID,
		Role:      string(record.Role),
		Body:      record.Body,
		Metadata:  record.Metadata,
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
	}
}
