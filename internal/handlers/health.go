package handlers

import (
	"net/http"
	"time"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

// HealthHandlersDeps bundles constructor inputs for the health handlers.
type HealthHandlersDeps struct {
	Health repositories.HealthRepository
	Clock  func() time.Time
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	health  repositories.HealthRepository
	clock   func() time.Time
	started time.Time
}

// NewHealthHandlers constructs the health handlers.
func NewHealthHandlers(deps HealthHandlersDeps) *HealthHandlers {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HealthHandlers{
		health:  deps.Health,
		clock:   clock,
		started: clock(),
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz probes the backing dependencies and reports aggregate readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	report, err := h.health.Collect(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": string(domain.HealthStatusError),
			"error":  err.Error(),
		})
		return
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]any, len(report.Checks))
	for name, check := range report.Checks {
		entry := map[string]any{
			"status":     string(check.Status),
			"latency_ms": check.Latency.Milliseconds(),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Error != "" {
			entry["error"] = check.Error
		}
		checks[name] = entry
	}

	writeJSONResponse(w, status, map[string]any{
		"status":       string(report.Status),
		"checks":       checks,
		"generated_at": report.GeneratedAt.UTC().Format(time.RFC3339),
	})
}
