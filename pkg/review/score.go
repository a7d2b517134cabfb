package review

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxScorePerConcept is the top of the concept rating scale.
	DefaultMaxScorePerConcept = 10
	// MinConceptScore is the bottom of the concept rating scale.
	MinConceptScore = 1
	// LatePenaltyPercent is deducted from submissions received after the due date.
	LatePenaltyPercent = 20
	scoreDecimals      = 2
)

// ScoreBreakdown is the intermediate state of a score computation, kept for
// display next to the grading form.
type ScoreBreakdown struct {
	Scored         float64 `json:"scored"`
	OutOf          float64 `json:"out_of"`
	PenaltyPercent int     `json:"penalty_percent"`
	Late           bool    `json:"late"`
	// Valid is false when a rating or scale voided the score.
	Valid bool    `json:"valid"`
	Score float64 `json:"score"`
}

// Score returns the normalized score of a submission. It never fails: an
// invalid rating or an empty concept list scores 0.
func Score(ratings []ConceptRating, maxScorePerConcept, questionMaxScore float64, submittedOn, dueDate time.Time) float64 {
	return Evaluate(ratings, maxScorePerConcept, questionMaxScore, submittedOn, dueDate).Score
}

// Evaluate computes the score along with its breakdown.
//
// The score is (scored/outOf) * questionMaxScore * (100-penalty)/100, rounded
// half away from zero to two decimals, where the penalty is LatePenaltyPercent
// when submittedOn is after dueDate and zero otherwise.
func Evaluate(ratings []ConceptRating, maxScorePerConcept, questionMaxScore float64, submittedOn, dueDate time.Time) ScoreBreakdown {
	b := ScoreBreakdown{OutOf: float64(len(ratings)) * maxScorePerConcept}
	if submittedOn.After(dueDate) {
		b.Late = true
		b.PenaltyPercent = LatePenaltyPercent
	}

	if !finite(maxScorePerConcept) || maxScorePerConcept < MinConceptScore ||
		!finite(questionMaxScore) || questionMaxScore < 0 {
		b.OutOf = 0
		return b
	}

	scored := decimal.Zero
	for _, r := range ratings {
		if !validRating(r, maxScorePerConcept) {
			return b
		}
		scored = scored.Add(decimal.NewFromFloat(*r.Score))
	}
	b.Valid = true
	b.Scored = scored.InexactFloat64()
	if len(ratings) == 0 {
		return b
	}

	// Multiply first and divide once so only the final quotient is inexact.
	numerator := scored.
		Mul(decimal.NewFromFloat(questionMaxScore)).
		Mul(decimal.NewFromInt(int64(100 - b.PenaltyPercent)))
	denominator := decimal.NewFromFloat(b.OutOf).Mul(decimal.NewFromInt(100))
	raw := numerator.Div(denominator)
	if raw.IsZero() {
		return b
	}

	// Rounding up may pass a maximum with more than two decimals.
	score := raw.Round(scoreDecimals)
	if limit := decimal.NewFromFloat(questionMaxScore); score.GreaterThan(limit) {
		score = limit.RoundFloor(scoreDecimals)
	}
	b.Score = score.InexactFloat64()
	return b
}

func validRating(r ConceptRating, maxScorePerConcept float64) bool {
	if r.Score == nil || !finite(*r.Score) {
		return false
	}
	return *r.Score >= MinConceptScore && *r.Score <= maxScorePerConcept
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
