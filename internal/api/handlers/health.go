package handlers

import (
	"context"
	"net/http"
	"time"

	"honeypot-lab/pkg/logger"
)

// ServiceName is reported by the root status endpoint
const ServiceName = "Agentic Honey-Pot"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cache     Pinger
	sessions  SessionCounter
	version   string
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(c Pinger, sessions SessionCounter, version string, log *logger.Logger) *HealthHandler {
	if version == "" {
		version = "1.0.0"
	}
	return &HealthHandler{
		cache:     c,
		sessions:  sessions,
		version:   version,
		logger:    log.WithComponent("health"),
		startTime: time.Now(),
	}
}

// StatusResponse is the body of GET /
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Sessions  *int              `json:"sessions,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{Status: "running", Service: ServiceName})
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.response("healthy", nil))
}

// Ready handles GET /ready - checks the optional dependencies
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"sessions": "in-memory"}
	status := http.StatusOK
	overallStatus := "ready"

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("redis not ready")
			checks["redis"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			overallStatus = "not ready"
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	resp := h.response(overallStatus, checks)
	if h.sessions != nil {
		n := h.sessions.Len()
		resp.Sessions = &n
	}
	respondJSON(w, status, resp)
}

func (h *HealthHandler) response(status string, checks map[string]string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}
