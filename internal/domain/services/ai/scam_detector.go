package ai

import (
	"context"
	"math"
	"sync/atomic"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

const (
	// ScamThreshold is the heuristic confidence at which a message is a scam
	ScamThreshold = 50.0
	// oracleConfidenceFloor is the confidence granted when the oracle says yes
	oracleConfidenceFloor = 75.0
)

// ScamOracle is an external yes/no scam classifier. ok is false when the
// oracle could not give a clear answer.
type ScamOracle interface {
	Classify(ctx context.Context, text string) (verdict bool, ok bool)
}

// ScamDetector makes the per-message scam decision from the heuristic score
// and, when configured, the oracle.
type ScamDetector struct {
	logger    *logger.Logger
	extractor *EntityExtractor
	engine    *ScoreEngine
	oracle    ScamOracle

	stats ScamDetectorStats
}

// ScamDetectorStats counts decisions since startup
type ScamDetectorStats struct {
	Evaluated     atomic.Int64
	Detected      atomic.Int64
	OracleUnavail atomic.Int64
}

// NewScamDetector creates a detector. oracle may be nil.
func NewScamDetector(log *logger.Logger, extractor *EntityExtractor, engine *ScoreEngine, oracle ScamOracle) *ScamDetector {
	if extractor == nil {
		extractor = NewEntityExtractor()
	}
	if engine == nil {
		engine = NewScoreEngine()
	}
	return &ScamDetector{
		logger:    log.WithComponent("scam-detector"),
		extractor: extractor,
		engine:    engine,
		oracle:    oracle,
	}
}

// Decide returns whether text is a scam and with what confidence
func (d *ScamDetector) Decide(ctx context.Context, text string) (bool, float64) {
	decision := d.Evaluate(ctx, text)
	return decision.Detected, decision.Confidence
}

// Evaluate is Decide with the heuristic and oracle details attached
func (d *ScamDetector) Evaluate(ctx context.Context, text string) models.ScamDecision {
	heuristic := d.engine.Score(text, d.extractor.Extract(text))

	decision := models.ScamDecision{
		Heuristic:  heuristic,
		Confidence: heuristic.Confidence,
		Detected:   heuristic.Confidence >= ScamThreshold,
		Oracle:     models.OracleUnavailable,
	}

	if d.oracle != nil {
		verdict, ok := d.oracle.Classify(ctx, text)
		switch {
		case !ok:
			d.stats.OracleUnavail.Add(1)
			d.logger.Warn().Msg("scam oracle unavailable, using heuristic only")
		case verdict:
			decision.Oracle = models.OracleYes
			decision.Detected = true
			decision.Confidence = math.Max(heuristic.Confidence, oracleConfidenceFloor)
		default:
			decision.Oracle = models.OracleNo
		}
	}

	d.stats.Evaluated.Add(1)
	if decision.Detected {
		d.stats.Detected.Add(1)
	}

	d.logger.Debug().
		Float64("heuristic", heuristic.Confidence).
		Strs("risk_tags", heuristic.RiskTags).
		Str("oracle", string(decision.Oracle)).
		Bool("detected", decision.Detected).
		Msg("scam decision")

	return decision
}

// Stats returns a copy of the decision counters
func (d *ScamDetector) Stats() (evaluated, detected, oracleUnavailable int64) {
	return d.stats.Evaluated.Load(), d.stats.Detected.Load(), d.stats.OracleUnavail.Load()
}
