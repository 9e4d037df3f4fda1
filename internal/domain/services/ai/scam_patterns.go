package ai

import "strings"

// KeywordCategory is a family of contextual scam phrases
type KeywordCategory string

const (
	CategoryUrgency           KeywordCategory = "urgency"
	CategoryMoneyRequest      KeywordCategory = "money_request"
	CategoryImpersonation     KeywordCategory = "impersonation"
	CategoryRemoteAccess      KeywordCategory = "remote_access"
	CategorySuspiciousRequest KeywordCategory = "suspicious_request"
)

// Tag returns the display form of the category used in risk tags
func (c KeywordCategory) Tag() string {
	return strings.ToUpper(string(c))
}

// KeywordPattern binds a keyword category to its weight, its contribution to
// the combination multiplier and the phrases that trigger it.
type KeywordPattern struct {
	Category   KeywordCategory
	Weight     float64
	RiskFactor int
	Keywords   []string
}

// keywordPatterns is evaluated in order. Keywords are lower-case and matched
// as substrings of the lower-cased message.
var keywordPatterns = []KeywordPattern{
	{
		Category:   CategoryUrgency,
		Weight:     15.0,
		RiskFactor: 1,
		Keywords: []string{
			"urgently", "immediately", "as soon as possible", "right now", "expires",
			"limited time", "act now", "last chance", "blocked", "suspended", "deadline",
		},
	},
	{
		Category:   CategoryMoneyRequest,
		Weight:     15.0,
		RiskFactor: 1,
		Keywords: []string{
			"pay", "transfer", "send money", "deposit", "fee", "tax", "charge",
			"refund", "investment", "profit", "earn", "salary", "prize", "winner",
		},
	},
	{
		Category:   CategoryImpersonation,
		Weight:     15.0,
		RiskFactor: 1,
		Keywords: []string{
			"customer support", "police", "irs", "tax department", "cbi", "fbi",
			"customs", "amazon", "microsoft", "apple", "google", "bank manager",
		},
	},
	{
		Category:   CategoryRemoteAccess,
		Weight:     60.0,
		RiskFactor: 2,
		Keywords: []string{
			"anydesk", "teamviewer", "quicksupport", "screen share", "download this app",
			"apk", "install",
		},
	},
	{
		Category:   CategorySuspiciousRequest,
		Weight:     25.0,
		RiskFactor: 0,
		Keywords: []string{
			"verify otp", "share otp", "password", "pin", "cvv", "card details",
			"login credentials", "verify account", "update kyc",
		},
	},
}

// Hard-evidence weights
const (
	weightCryptoWallet     = 85.0
	weightPhishingLink     = 80.0
	weightUPICorroborated  = 70.0
	weightUPIAlone         = 30.0
	weightBankCorroborated = 60.0
	weightBankAlone        = 20.0
	combinationThreshold   = 2
	combinationMultiplier  = 1.5
	minMeaningfulTokens    = 3
	suppressionCeiling     = 50.0
	hardEvidenceFloor      = 80.0
	maxScore               = 100.0
)

// match returns the keywords of p found in lowered
func (p KeywordPattern) match(lowered string) []string {
	var hits []string
	for _, kw := range p.Keywords {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// ExtractKeywords returns every scam keyword present in text, across all
// categories, in table order and without duplicates.
func ExtractKeywords(text string) []string {
	lowered := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	for _, p := range keywordPatterns {
		for _, kw := range p.match(lowered) {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
