// internal/matching/perspective_test.go
package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswap/cardswap-backend/internal/models"
)

func TestToPerspective(t *testing.T) {
	a, b := CanonicalPair(uuid.New(), uuid.New())
	yes := true
	m := &models.Match{
		UserAID:        a,
		UserBID:        b,
		MatchType:      models.MatchTypeOneWayBuy,
		CardsAWants:    2,
		CardsBWants:    0,
		ValueAWants:    dec("14.50"),
		ValueBWants:    dec("0"),
		Score:          62,
		Status:         models.MatchStatusRequested,
		RequestedBy:    &b,
		UserACompleted: &yes,
		Lines: []models.MatchCardLine{
			{Direction: models.DirectionAWants, QuantityAvailable: 1, QuantityWanted: 1},
			{Direction: models.DirectionAWants, QuantityAvailable: 2, QuantityWanted: 1, IsCustom: true, AddedByUserID: &b},
		},
	}

	fromA := ToPerspective(m, a)
	assert.Equal(t, b, fromA.CounterpartID)
	assert.Equal(t, models.MatchTypeOneWayBuy, fromA.MatchType)
	assert.Equal(t, 2, fromA.CardsIWant)
	assert.Len(t, fromA.CardsIReceive, 2)
	assert.Empty(t, fromA.CardsIGive)
	assert.False(t, fromA.RequestedByMe)
	require.NotNil(t, fromA.MyCompletion)
	assert.Nil(t, fromA.TheirCompletion)
	assert.Equal(t, 6.2, fromA.DisplayScore)

	fromB := ToPerspective(m, b)
	assert.Equal(t, a, fromB.CounterpartID)
	assert.Equal(t, models.MatchTypeOneWaySell, fromB.MatchType)
	assert.Equal(t, 0, fromB.CardsIWant)
	assert.Equal(t, 2, fromB.CardsTheyWant)
	assert.True(t, fromB.ValueTheyWant.Equal(dec("14.50")))
	assert.Len(t, fromB.CardsIGive, 2)
	assert.True(t, fromB.RequestedByMe)
	assert.True(t, fromB.CardsIGive[1].AddedByMe)
	assert.Nil(t, fromB.MyCompletion)
}
