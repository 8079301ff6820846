// internal/matching/scorer_test.go
package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cardswap/cardswap-backend/internal/models"
)

func TestScore_Maximum(t *testing.T) {
	score := Score(ScoreInput{
		MatchType:      models.MatchTypeTwoWay,
		SelfWantsCount: 6,
		TheyWantCount:  6,
		SelfWantsValue: 150,
		TheyWantValue:  150,
	})
	assert.Equal(t, 100.0, score)
}

func TestScore_Components(t *testing.T) {
	// 15 type + 12.5 efficiency + 2.5 cards + 1 value + 12 distance
	score := Score(ScoreInput{
		MatchType:       models.MatchTypeOneWaySell,
		TheyWantCount:   1,
		TheyWantValue:   10,
		DistanceKm:      10,
		PriceEfficiency: DefaultPriceEfficiency,
	})
	assert.InDelta(t, 43.0, score, 0.001)

	assert.InDelta(t, 15.0+25+25+20, Score(ScoreInput{
		MatchType:      models.MatchTypeOneWayBuy,
		SelfWantsCount: 20,
		SelfWantsValue: 1000,
		DistanceKm:     80,
	}), 0.001, "distance term bottoms out at zero")
}

func TestScore_WarningPenalty(t *testing.T) {
	in := ScoreInput{
		MatchType:       models.MatchTypeTwoWay,
		SelfWantsCount:  2,
		TheyWantCount:   1,
		SelfWantsValue:  20,
		TheyWantValue:   8,
		DistanceKm:      3.2,
		PriceEfficiency: 0.8,
	}
	clean := Score(in)
	in.HasPriceWarnings = true
	assert.InDelta(t, clean-5, Score(in), 0.001)
}

func TestScore_Bounds(t *testing.T) {
	types := []models.MatchType{models.MatchTypeTwoWay, models.MatchTypeOneWayBuy, models.MatchTypeOneWaySell}

	rapid.Check(t, func(t *rapid.T) {
		in := ScoreInput{
			MatchType:        rapid.SampledFrom(types).Draw(t, "type"),
			SelfWantsCount:   rapid.IntRange(0, 50).Draw(t, "selfCount"),
			TheyWantCount:    rapid.IntRange(0, 50).Draw(t, "theyCount"),
			SelfWantsValue:   rapid.Float64Range(0, 5000).Draw(t, "selfValue"),
			TheyWantValue:    rapid.Float64Range(0, 5000).Draw(t, "theyValue"),
			DistanceKm:       rapid.Float64Range(0, 500).Draw(t, "distance"),
			HasPriceWarnings: rapid.Bool().Draw(t, "warnings"),
			PriceEfficiency:  rapid.Float64Range(-1, 3).Draw(t, "efficiency"),
		}
		score := Score(in)
		if score < 0 || score > 100 {
			t.Fatalf("score %f out of bounds for %+v", score, in)
		}
	})
}
