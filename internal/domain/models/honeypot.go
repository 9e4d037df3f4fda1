package models

import (
	"encoding/json"
	"strings"
)

// ChatMessage is a single message as sent by the chat platform
type ChatMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatMetadata carries optional per-request hints
type ChatMetadata struct {
	Persona  string `json:"persona,omitempty"`
	LLMURL   string `json:"llmUrl,omitempty"`
	LLMModel string `json:"llmModel,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// UnmarshalJSON reads the known metadata keys and ignores the rest, so the
// platform can add hints without breaking strict request decoding.
func (m *ChatMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	*m = ChatMetadata{
		Persona:  str("persona"),
		LLMURL:   str("llmUrl"),
		LLMModel: str("llmModel"),
		Channel:  str("channel"),
		Language: str("language"),
		Locale:   str("locale"),
	}
	return nil
}

// ChatRequest is the body of POST /analyze
type ChatRequest struct {
	SessionID           string        `json:"sessionId"`
	Message             ChatMessage   `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
	Metadata            ChatMetadata  `json:"metadata"`
}

// ChatResponse is the body returned to the chat platform
type ChatResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// RoleForSender maps a platform sender label onto a conversation role.
// Scammer-side labels become the user; everything else is the persona.
func RoleForSender(sender string) TurnRole {
	switch strings.ToLower(sender) {
	case "scammer", "user", "customer":
		return RoleUser
	default:
		return RoleAssistant
	}
}

// Turns returns the full replayed conversation: the platform history followed
// by the current message.
func (r ChatRequest) Turns() []Turn {
	turns := make([]Turn, 0, len(r.ConversationHistory)+1)
	for _, m := range r.ConversationHistory {
		turns = append(turns, m.Turn())
	}
	return append(turns, r.Message.Turn())
}

// Turn converts a platform message into a conversation turn
func (m ChatMessage) Turn() Turn {
	return Turn{
		Role:      RoleForSender(m.Sender),
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}
