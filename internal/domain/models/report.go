package models

import "sort"

// CallbackPayload is the dossier posted to the evaluation platform once per session
type CallbackPayload struct {
	SessionID              string               `json:"sessionId"`
	ScamDetected           bool                 `json:"scamDetected"`
	TotalMessagesExchanged int                  `json:"totalMessagesExchanged"`
	ExtractedIntelligence  ReportedIntelligence `json:"extractedIntelligence"`
	AgentNotes             string               `json:"agentNotes"`
}

// ReportedIntelligence is the grouped intelligence section of the payload
type ReportedIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// NewCallbackPayload builds the report for a session snapshot. List fields are
// never nil so they serialise as [] rather than null.
func NewCallbackPayload(s Session, notes string) CallbackPayload {
	keywords := nonNil(cloneStrings(s.SuspiciousKeywords))
	sort.Strings(keywords)

	return CallbackPayload{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: s.TotalMessages,
		ExtractedIntelligence: ReportedIntelligence{
			BankAccounts:       nonNil(cloneStrings(s.Extracted.BankAccounts)),
			UPIIDs:             nonNil(cloneStrings(s.Extracted.UPIIDs)),
			PhishingLinks:      nonNil(cloneStrings(s.Extracted.URLs)),
			PhoneNumbers:       nonNil(cloneStrings(s.Extracted.PhoneNumbers)),
			SuspiciousKeywords: keywords,
		},
		AgentNotes: notes,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
