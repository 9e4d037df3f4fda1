package ai

import (
	"math"
	"sort"
	"strings"

	"honeypot-lab/internal/domain/models"
)

// ScoreEngine turns a message and the intel found in it into a 0-100 scam
// confidence with the tags that explain it. It is pure and safe for
// concurrent use.
type ScoreEngine struct {
	patterns []KeywordPattern
}

// NewScoreEngine creates a score engine over the built-in keyword table
func NewScoreEngine() *ScoreEngine {
	return &ScoreEngine{patterns: keywordPatterns}
}

// Score computes the heuristic confidence for text.
//
// Keyword categories are evaluated before hard evidence so that a UPI handle
// or bank account next to urgency or a money request is weighted as
// corroborated.
func (s *ScoreEngine) Score(text string, intel models.ExtractedIntel) models.ScoreResult {
	lowered := strings.ToLower(text)

	var (
		score       float64
		riskFactors int
		tags        = make(map[string]struct{})
		floored     bool
	)

	matched := make(map[KeywordCategory]bool, len(s.patterns))
	for _, p := range s.patterns {
		if len(p.match(lowered)) == 0 {
			continue
		}
		matched[p.Category] = true
		score += p.Weight
		riskFactors += p.RiskFactor
		tags[p.Category.Tag()] = struct{}{}
		if p.Category == CategoryRemoteAccess {
			floored = true
		}
	}

	if len(intel.CryptoWallets) > 0 {
		score += weightCryptoWallet
		tags[string(models.RiskTagCryptoScam)] = struct{}{}
		floored = true
	}
	if len(intel.URLs) > 0 {
		score += weightPhishingLink
		tags[string(models.RiskTagPhishingLink)] = struct{}{}
		floored = true
	}

	pressured := matched[CategoryUrgency] || matched[CategoryMoneyRequest]
	if len(intel.UPIIDs) > 0 {
		if pressured || matched[CategoryImpersonation] {
			score += weightUPICorroborated
			tags[string(models.RiskTagFinancialFraud)] = struct{}{}
		} else {
			score += weightUPIAlone
		}
	}
	if len(intel.BankAccounts) > 0 {
		if pressured {
			score += weightBankCorroborated
			tags[string(models.RiskTagBankFraud)] = struct{}{}
		} else {
			score += weightBankAlone
		}
	}

	if riskFactors >= combinationThreshold {
		score *= combinationMultiplier
	}

	// Short greetings with weak signals are noise.
	if len(strings.Fields(text)) < minMeaningfulTokens && score < suppressionCeiling {
		return models.ScoreResult{Confidence: 0, RiskTags: []string{}}
	}

	score = clamp(math.Round(score*10)/10, 0, maxScore)
	if floored && score < hardEvidenceFloor {
		score = hardEvidenceFloor
	}

	return models.ScoreResult{Confidence: score, RiskTags: sortedTags(tags)}
}

func sortedTags(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
