package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services/ai"
	"honeypot-lab/pkg/logger"
)

// ErrInvalidRequest wraps validation failures of an incoming chat message
var ErrInvalidRequest = errors.New("invalid request")

// ProbingReply is sent while the conversation is not judged a scam
const ProbingReply = "I'm not sure I understand. Could you explain more?"

// ScamDecider makes the per-message scam decision
type ScamDecider interface {
	Decide(ctx context.Context, text string) (bool, float64)
}

// ReplyGenerator produces the persona's next message
type ReplyGenerator interface {
	Reply(ctx context.Context, req ai.ReplyRequest) string
}

// ReportDispatcher schedules a session report without blocking
type ReportDispatcher interface {
	Dispatch(session models.Session, notes string) bool
}

// HoneypotConfig holds the report completion thresholds
type HoneypotConfig struct {
	MinTurns int
	MaxTurns int
}

// Honeypot runs one incoming scammer message through detection, intel
// gathering, the persona reply and the completion check.
type Honeypot struct {
	store      *SessionStore
	detector   ScamDecider
	extractor  *ai.EntityExtractor
	personas   *ai.PersonaCatalog
	replier    ReplyGenerator
	dispatcher ReportDispatcher
	config     HoneypotConfig
	logger     *logger.Logger
}

// NewHoneypot creates the honeypot service. replier may be nil, in which
// case scam conversations get an inline configuration error as reply.
func NewHoneypot(
	store *SessionStore,
	detector ScamDecider,
	replier ReplyGenerator,
	dispatcher ReportDispatcher,
	cfg HoneypotConfig,
	log *logger.Logger,
) *Honeypot {
	return &Honeypot{
		store:      store,
		detector:   detector,
		extractor:  ai.NewEntityExtractor(),
		personas:   ai.NewPersonaCatalog(),
		replier:    replier,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     log.WithComponent("honeypot"),
	}
}

// ValidateChatRequest checks the required fields of a chat request
func ValidateChatRequest(req models.ChatRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		return fmt.Errorf("%w: message.text is required", ErrInvalidRequest)
	}
	return nil
}

// HandleMessage processes one message from the chat platform and returns the
// decoy's reply. The report, when due, is dispatched in the background.
func (h *Honeypot) HandleMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := ValidateChatRequest(req); err != nil {
		return nil, err
	}
	id := req.SessionID
	log := h.logger.WithSessionID(id)

	// The platform's replay is the source of truth for the conversation.
	turns := req.Turns()
	h.store.ReplaceHistory(id, turns)

	scam, confidence := h.detector.Decide(ctx, req.Message.Text)
	if scam {
		h.store.MarkScamDetected(id)
	}

	// Re-extract every visible turn so replays that skipped messages catch up.
	var newIntel bool
	for _, turn := range turns {
		if intel := h.extractor.Extract(turn.Text); !intel.IsEmpty() && h.store.MergeIntel(id, intel) {
			newIntel = true
		}
		h.store.MergeKeywords(id, ai.ExtractKeywords(turn.Text))
	}

	persona := h.personas.Resolve(req.Metadata.Persona)
	h.store.SetPersona(id, persona)

	session, _ := h.store.Snapshot(id)
	log.Info().
		Str("sender", req.Message.Sender).
		Int("total_messages", session.TotalMessages).
		Bool("scam_detected", session.ScamDetected).
		Float64("confidence", confidence).
		Msg("message received")
	if newIntel {
		log.Info().
			Int("intel_count", session.Extracted.Count()).
			Strs("upi_ids", session.Extracted.UPIIDs).
			Strs("bank_accounts", session.Extracted.BankAccounts).
			Strs("phone_numbers", session.Extracted.PhoneNumbers).
			Strs("urls", session.Extracted.URLs).
			Strs("crypto_wallets", session.Extracted.CryptoWallets).
			Msg("intel extracted")
	}

	reply := ProbingReply
	if session.ScamDetected {
		reply = h.reply(ctx, req, persona)
	}

	h.maybeReport(id, confidence)

	return &models.ChatResponse{Status: "success", Reply: reply}, nil
}

func (h *Honeypot) reply(ctx context.Context, req models.ChatRequest, persona string) string {
	if h.replier == nil {
		return fmt.Sprintf("[System Error: %s]", ai.ErrLLMNotConfigured)
	}

	history := make([]models.Turn, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, m.Turn())
	}

	return h.replier.Reply(ctx, ai.ReplyRequest{
		SystemPrompt: h.personas.SystemPrompt(persona),
		History:      history,
		Message:      req.Message.Text,
		BaseURL:      req.Metadata.LLMURL,
		Model:        req.Metadata.LLMModel,
	})
}

// maybeReport claims and schedules the session report once the completion
// condition holds. A claim handed to the dispatcher is kept, so a report that
// exhausted its retries is never sent again.
func (h *Honeypot) maybeReport(id string, confidence float64) {
	if h.dispatcher == nil {
		return
	}
	session, ok := h.store.ClaimCallback(id, func(s models.Session) bool {
		return ShouldReport(s, h.config.MinTurns, h.config.MaxTurns)
	})
	if !ok {
		return
	}

	notes := AgentNotes(confidence, session.SuspiciousKeywords)
	if !h.dispatcher.Dispatch(session, notes) {
		// Nothing was attempted, so a later message may claim it again.
		h.store.ReleaseCallback(id)
		h.logger.Warn().Str("session_id", id).Msg("report not scheduled, claim released")
		return
	}
	h.logger.Info().
		Str("session_id", id).
		Int("total_messages", session.TotalMessages).
		Msg("report scheduled")
}
