package models

import "time"

// TurnRole identifies who authored a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"      // the scammer
	RoleAssistant TurnRole = "assistant" // the honeypot persona
)

// Turn is one message of a conversation as replayed by the chat platform
type Turn struct {
	Role      TurnRole `json:"role"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// Session is the aggregated state of one honeypot conversation.
//
// ScamDetected, CallbackClaimed and CallbackSent only ever go from false to
// true. Extracted and SuspiciousKeywords only grow.
type Session struct {
	ID                 string         `json:"session_id"`
	History            []Turn         `json:"history"`
	Persona            string         `json:"persona,omitempty"`
	ScamDetected       bool           `json:"scam_detected"`
	Extracted          ExtractedIntel `json:"extracted"`
	SuspiciousKeywords []string       `json:"suspicious_keywords"`
	TotalMessages      int            `json:"total_messages"`
	CallbackClaimed    bool           `json:"callback_claimed"`
	CallbackSent       bool           `json:"callback_sent"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// HasReportableIntel reports whether the session holds anything worth
// reporting: bank accounts, UPI ids, phone numbers, links or keywords.
func (s Session) HasReportableIntel() bool {
	return len(s.Extracted.BankAccounts) > 0 ||
		len(s.Extracted.UPIIDs) > 0 ||
		len(s.Extracted.PhoneNumbers) > 0 ||
		len(s.Extracted.URLs) > 0 ||
		len(s.SuspiciousKeywords) > 0
}

// Clone returns a deep copy that shares no slices with s
func (s Session) Clone() Session {
	out := s
	if s.History != nil {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	out.Extracted = s.Extracted.Clone()
	out.SuspiciousKeywords = cloneStrings(s.SuspiciousKeywords)
	return out
}
