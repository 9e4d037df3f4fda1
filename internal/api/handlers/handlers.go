package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health   *HealthHandler
	Honeypot *HoneypotHandler
}

// MessageHandler processes one chat platform message
type MessageHandler interface {
	HandleMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Pinger is an optional dependency pinged by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many conversations are held in memory
type SessionCounter interface {
	Len() int
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Honeypot MessageHandler
	Sessions SessionCounter
	Cache    Pinger // nil when Redis is disabled
	Version  string
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Cache, deps.Sessions, deps.Version, deps.Logger),
		Honeypot: NewHoneypotHandler(deps.Honeypot, deps.Logger),
	}
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}
