// internal/matching/scorer.go
package matching

import (
	"math"

	"github.com/cardswap/cardswap-backend/internal/models"
)

const (
	twoWayPoints        = 30.0
	oneWayPoints        = 15.0
	priceEfficiencyMax  = 25.0
	cardCountMax        = 25.0
	cardCountCap        = 10
	valueMax            = 20.0
	valueCap            = 200.0
	distanceMax         = 15.0
	distanceDecayPerKm  = 0.3
	priceWarningPenalty = 5.0

	// DefaultPriceEfficiency is used when no line carries both an asking and a max price.
	DefaultPriceEfficiency = 0.5
)

type ScoreInput struct {
	MatchType        models.MatchType
	SelfWantsCount   int
	TheyWantCount    int
	SelfWantsValue   float64
	TheyWantValue    float64
	DistanceKm       float64
	HasPriceWarnings bool
	// PriceEfficiency is mean(asking/max) in [0,1]; lower is a better deal for the buyer.
	PriceEfficiency float64
}

// Score computes the composite 0-100 desirability of a match.
func Score(in ScoreInput) float64 {
	var score float64

	if in.MatchType == models.MatchTypeTwoWay {
		score += twoWayPoints
	} else {
		score += oneWayPoints
	}

	score += (1 - clamp(in.PriceEfficiency, 0, 1)) * priceEfficiencyMax

	totalCards := in.SelfWantsCount + in.TheyWantCount
	if totalCards > cardCountCap {
		totalCards = cardCountCap
	}
	score += float64(totalCards) / cardCountCap * cardCountMax

	totalValue := math.Min(in.SelfWantsValue+in.TheyWantValue, valueCap)
	score += totalValue / valueCap * valueMax

	score += math.Max(0, distanceMax-in.DistanceKm*distanceDecayPerKm)

	if in.HasPriceWarnings {
		score -= priceWarningPenalty
	}

	return round2(clamp(score, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
