package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/pkg/logger"
)

// maxBodyBytes bounds a chat request including its replayed history
const maxBodyBytes = 1 << 20

// HoneypotHandler serves the chat platform endpoints
type HoneypotHandler struct {
	honeypot MessageHandler
	logger   *logger.Logger
}

// NewHoneypotHandler creates a new HoneypotHandler
func NewHoneypotHandler(hp MessageHandler, log *logger.Logger) *HoneypotHandler {
	return &HoneypotHandler{
		honeypot: hp,
		logger:   log.WithComponent("honeypot-handler"),
	}
}

// Analyze handles POST /analyze and its aliases
func (h *HoneypotHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = uuid.New().String()
	}
	log := h.logger.WithRequestID(reqID)

	var req models.ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		log.Debug().Err(err).Msg("invalid request body")
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body: trailing data")
		return
	}

	resp, err := h.honeypot.HandleMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to handle message")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
