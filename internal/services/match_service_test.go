// internal/services/match_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswap/cardswap-backend/internal/matching"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
)

func TestComputeMatches_TwoWay(t *testing.T) {
	f := newTradeFixture(t)

	view := f.pairMatch(t)
	assert.Equal(t, matching.MatchID(alice, bob), view.ID)
	assert.Equal(t, bob, view.CounterpartID)
	assert.Equal(t, models.MatchTypeTwoWay, view.MatchType)
	assert.Equal(t, models.MatchStatusActive, view.Status)
	assert.False(t, view.HasPriceWarnings)
	assert.Positive(t, view.Score)

	require.Len(t, view.CardsIReceive, 1)
	receive := view.CardsIReceive[0]
	assert.Equal(t, "P7", receive.PrintingID)
	assert.True(t, receive.AskingPrice.Decimal.Equal(dec("7.50")))
	assert.False(t, receive.PriceExceedsMax)

	require.Len(t, view.CardsIGive, 1)
	assert.Equal(t, "P9", view.CardsIGive[0].PrintingID)
	assert.True(t, view.CardsIGive[0].AskingPrice.Decimal.Equal(dec("4.00")))
}

func TestComputeMatches_Idempotent(t *testing.T) {
	f := newTradeFixture(t)

	first := f.pairMatch(t)
	second := f.pairMatch(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.CardsIReceive[0].ID, second.CardsIReceive[0].ID)

	matches, err := f.st.ListUserMatches(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestComputeMatches_SymmetricPair(t *testing.T) {
	f := newTradeFixture(t)

	fromAlice := f.pairMatch(t)
	fromBob := f.compute(t, bob)

	require.Len(t, fromBob, 1)
	assert.Equal(t, fromAlice.ID, fromBob[0].ID)
	assert.Equal(t, alice, fromBob[0].CounterpartID)
	require.Len(t, fromBob[0].CardsIReceive, 1)
	assert.Equal(t, "P9", fromBob[0].CardsIReceive[0].PrintingID)
	assert.True(t, fromAlice.ValueIWant.Equal(fromBob[0].ValueTheyWant))
}

func TestComputeMatches_PriceWarning(t *testing.T) {
	f := newFixture(t)
	f.card("P7", "O1", "15.00")
	f.locate(t, alice, 40.0, -74.0, 25)
	f.locate(t, bob, 40.01, -74.0, 25)
	f.own(t, bob, "P7", 1, "80")
	f.want(t, alice, "O1", 1, "10")

	views := f.compute(t, alice)

	require.Len(t, views, 1)
	assert.Equal(t, models.MatchTypeOneWayBuy, views[0].MatchType)
	assert.True(t, views[0].HasPriceWarnings)
	require.Len(t, views[0].CardsIReceive, 1)
	assert.True(t, views[0].CardsIReceive[0].AskingPrice.Decimal.Equal(dec("12.00")))
	assert.True(t, views[0].CardsIReceive[0].PriceExceedsMax)
}

func TestComputeMatches_Preconditions(t *testing.T) {
	f := newTradeFixture(t)

	_, err := f.matches.ComputeMatches(f.ctx, carol)
	assert.ErrorIs(t, err, ErrNoLocation)

	f.locate(t, carol, 40.0, -74.0, 25)
	_, err = f.matches.ComputeMatches(f.ctx, carol)
	assert.ErrorIs(t, err, ErrNoInventory)
}

func TestComputeMatches_SkipsPausedEntries(t *testing.T) {
	f := newTradeFixture(t)
	entry := f.entryOf(t, bob, "P7")
	entry.IsPaused = true
	require.NoError(t, f.st.UpdateCollectionEntry(f.ctx, entry))

	view := f.pairMatch(t)
	assert.Empty(t, view.CardsIReceive)
	assert.Equal(t, models.MatchTypeOneWaySell, view.MatchType)
}

func TestComputeMatches_OutOfReach(t *testing.T) {
	f := newTradeFixture(t)
	f.locate(t, bob, 41.0, -74.0, 25)

	assert.Empty(t, f.compute(t, alice))
}

func TestComputeMatches_PreservesRequestedMatch(t *testing.T) {
	f := newTradeFixture(t)
	view := f.requested(t)

	entry := f.entryOf(t, bob, "P7")
	entry.Percentage = dec("80")
	require.NoError(t, f.st.UpdateCollectionEntry(f.ctx, entry))

	assert.Empty(t, f.compute(t, bob))

	m := f.stored(t, view.ID)
	assert.Equal(t, models.MatchStatusRequested, m.Status)
	for _, l := range m.Lines {
		if l.PrintingID == "P7" {
			assert.True(t, l.AskingPrice.Decimal.Equal(dec("7.50")))
		}
	}
}

func TestComputeMatches_KeepsLateralStatus(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	_, err := f.trades.SetStatus(f.ctx, view.ID, bob, &SetStatusRequest{Status: models.MatchStatusDismissed})
	require.NoError(t, err)

	again := f.pairMatch(t)
	assert.Equal(t, view.ID, again.ID)
	assert.Equal(t, models.MatchStatusDismissed, again.Status)
}

func TestComputeMatches_PrunesStalePairs(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	f.clearWishlists(t, alice, bob)

	assert.Empty(t, f.compute(t, alice))
	_, err := f.st.GetMatch(f.ctx, view.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComputeMatches_KeepsModifiedPairWhenNothingMatches(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	_, err := f.trades.SetLineExclusion(f.ctx, view.ID, view.CardsIGive[0].ID, alice, &SetExclusionRequest{Excluded: true})
	require.NoError(t, err)
	f.clearWishlists(t, alice, bob)

	assert.Empty(t, f.compute(t, alice))
	m := f.stored(t, view.ID)
	assert.True(t, m.IsUserModified)
}

func TestRecalculateMatch_Refreshes(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	entry := f.entryOf(t, bob, "P7")
	entry.Percentage = dec("80")
	require.NoError(t, f.st.UpdateCollectionEntry(f.ctx, entry))

	result, err := f.matches.RecalculateMatch(f.ctx, view.ID, alice)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRecalculated, result.Outcome)
	assert.Equal(t, view.ID, result.Match.ID)
	assert.True(t, result.Match.HasPriceWarnings)
	require.Len(t, result.Match.CardsIReceive, 1)
	assert.True(t, result.Match.CardsIReceive[0].AskingPrice.Decimal.Equal(dec("12.00")))
	assert.True(t, result.Match.CardsIReceive[0].PriceExceedsMax)
}

func TestRecalculateMatch_KeepsCustomCards(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	p8 := f.entryOf(t, bob, "P8")
	_, err := f.trades.AddCustomCard(f.ctx, view.ID, alice, &AddCustomCardRequest{CollectionEntryID: p8.ID, Quantity: 1})
	require.NoError(t, err)
	f.clearWishlists(t, alice, bob)

	result, err := f.matches.RecalculateMatch(f.ctx, view.ID, bob)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCustomCardsPreserved, result.Outcome)
	assert.Empty(t, result.Match.CardsIReceive)
	require.Len(t, result.Match.CardsIGive, 1)
	assert.True(t, result.Match.CardsIGive[0].IsCustom)
	assert.Zero(t, result.Match.Score)
	assert.Zero(t, result.Match.CardsIWant)
	assert.True(t, result.Match.IsUserModified)
}

func TestRecalculateMatch_NoMatches(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	_, err := f.trades.SetStatus(f.ctx, view.ID, alice, &SetStatusRequest{Status: models.MatchStatusContacted})
	require.NoError(t, err)
	f.clearWishlists(t, alice, bob)

	result, err := f.matches.RecalculateMatch(f.ctx, view.ID, alice)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoMatches, result.Outcome)
	assert.Empty(t, result.Match.CardsIReceive)
	assert.Empty(t, result.Match.CardsIGive)
	assert.False(t, result.Match.IsUserModified)
	assert.Equal(t, models.MatchStatusContacted, result.Match.Status)
}

func TestRecalculateMatch_Rejected(t *testing.T) {
	f := newTradeFixture(t)
	view := f.confirmed(t)

	_, err := f.matches.RecalculateMatch(f.ctx, view.ID, alice)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.matches.RecalculateMatch(f.ctx, view.ID, carol)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMatch_HidesOtherUsersMatches(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	got, err := f.matches.GetMatch(f.ctx, view.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, got.CounterpartID)

	_, err = f.matches.GetMatch(f.ctx, view.ID, carol)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMatches(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	page, err := f.matches.ListMatches(f.ctx, alice, &ListMatchesRequest{IncludeCounts: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, page.Matches, 1)
	assert.Equal(t, view.ID, page.Matches[0].ID)
	assert.EqualValues(t, 1, page.Counts[models.MatchStatusActive])
	assert.EqualValues(t, 0, page.Counts[models.MatchStatusRequested])

	page, err = f.matches.ListMatches(f.ctx, alice, &ListMatchesRequest{
		Statuses: []models.MatchStatus{models.MatchStatusDismissed},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Matches)
	assert.Nil(t, page.Counts)

	_, err = f.matches.ListMatches(f.ctx, alice, &ListMatchesRequest{SortBy: "price"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCounterpartCollection(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)

	entries, err := f.matches.CounterpartCollection(f.ctx, view.ID, alice)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, bob, e.UserID)
		require.NotNil(t, e.Card)
	}
}

func TestRecalculateMatch_ConfirmedMeanwhile(t *testing.T) {
	f := newTradeFixture(t)
	view := f.requested(t)

	matches, _ := f.interleaved(func() {
		_, err := f.trades.ConfirmTrade(f.ctx, view.ID, bob)
		require.NoError(t, err)
	})
	entry := f.entryOf(t, bob, "P7")
	entry.Percentage = dec("80")
	require.NoError(t, f.st.UpdateCollectionEntry(f.ctx, entry))

	_, err := matches.RecalculateMatch(f.ctx, view.ID, alice)
	assert.ErrorIs(t, err, ErrInvalidState)

	m := f.stored(t, view.ID)
	assert.Equal(t, models.MatchStatusConfirmed, m.Status)
	require.NotNil(t, m.RequestedBy)
	assert.Equal(t, alice, *m.RequestedBy)
	assert.NotNil(t, m.ConfirmedAt)
	assert.NotNil(t, m.EscrowExpiresAt)
	for _, l := range m.Lines {
		if l.Direction == models.DirectionAWants {
			assert.True(t, l.AskingPrice.Decimal.Equal(dec("7.50")), "escrowed terms are kept")
		}
	}
}

func TestRecalculateMatch_ScoresFromCaller(t *testing.T) {
	f := newTradeFixture(t)
	view := f.pairMatch(t)
	fromAlice := f.stored(t, view.ID).Score

	require.Len(t, f.compute(t, bob), 1)
	fromBob := f.stored(t, view.ID).Score

	_, err := f.matches.RecalculateMatch(f.ctx, view.ID, alice)
	require.NoError(t, err)
	assert.InDelta(t, fromAlice, f.stored(t, view.ID).Score, 1e-9)

	result, err := f.matches.RecalculateMatch(f.ctx, view.ID, bob)
	require.NoError(t, err)
	assert.InDelta(t, fromBob, f.stored(t, view.ID).Score, 1e-9)

	// counts and directions stay canonical whoever recalculates
	m := f.stored(t, view.ID)
	assert.Equal(t, models.MatchTypeTwoWay, m.MatchType)
	assert.Equal(t, 1, m.CardsAWants)
	assert.Equal(t, 1, m.CardsBWants)
	require.Len(t, result.Match.CardsIReceive, 1)
	assert.Equal(t, "P9", result.Match.CardsIReceive[0].PrintingID)
}
