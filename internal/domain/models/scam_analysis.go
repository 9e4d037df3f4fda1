package models

// RiskTag labels why a message scored the way it did. Keyword categories are
// reported upper-case (URGENCY, MONEY_REQUEST, ...); hard-evidence tags are
// already namespaced and pass through unchanged.
type RiskTag string

const (
	RiskTagCryptoScam     RiskTag = "CRYPTO_SCAM"
	RiskTagPhishingLink   RiskTag = "PHISHING_LINK"
	RiskTagFinancialFraud RiskTag = "FINANCIAL_FRAUD"
	RiskTagBankFraud      RiskTag = "BANK_FRAUD"
)

// ScoreResult is the heuristic verdict for a single message
type ScoreResult struct {
	Confidence float64  `json:"confidence"` // 0-100, one decimal
	RiskTags   []string `json:"risk_tags"`
}

// HasTag reports whether tag is among the risk tags
func (r ScoreResult) HasTag(tag string) bool {
	for _, t := range r.RiskTags {
		if t == tag {
			return true
		}
	}
	return false
}

// OracleVerdict is the outcome of asking the external yes/no classifier
type OracleVerdict string

const (
	OracleYes         OracleVerdict = "yes"
	OracleNo          OracleVerdict = "no"
	OracleUnavailable OracleVerdict = "unavailable"
)

// ScamDecision is the final per-message scam decision
type ScamDecision struct {
	Detected   bool          `json:"detected"`
	Confidence float64       `json:"confidence"`
	Heuristic  ScoreResult   `json:"heuristic"`
	Oracle     OracleVerdict `json:"oracle"`
}
