// internal/services/fixture_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/matching"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store/memstore"
)

var testMatching = config.MatchingConfig{
	FloorPrice:      0.10,
	EscrowWindow:    72 * time.Hour,
	DefaultRadiusKm: 25,
}

// Fixed identities so alice is always user A of the alice/bob pair.
var (
	alice = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	carol = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// sent returns the notification types delivered to recipient, in order.
func (n *recordingNotifier) sent(recipient uuid.UUID) []models.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NotificationType
	for _, ev := range n.events {
		if ev.Recipient == recipient {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type fixture struct {
	ctx        context.Context
	st         *memstore.Store
	catalog    *CatalogService
	notifier   *recordingNotifier
	matches    *MatchService
	trades     *TradeService
	settlement *SettlementService
	inventory  *InventoryService
	clock      time.Time
}

// newFixture builds the service graph on an empty in-memory store.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	catalog, err := NewCatalogService(st, config.CatalogConfig{CacheSize: 64, SearchLimit: 20})
	require.NoError(t, err)

	f := &fixture{
		ctx:        context.Background(),
		st:         st,
		catalog:    catalog,
		notifier:   &recordingNotifier{},
		settlement: NewSettlementService(st),
		clock:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.matches = NewMatchService(st, catalog, nil, testMatching)
	f.trades = NewTradeService(st, catalog, f.notifier, f.settlement, testMatching)
	f.trades.now = func() time.Time { return f.clock }
	f.inventory = NewInventoryService(st, catalog, testMatching)
	return f
}

// newTradeFixture seeds the two-way alice/bob scenario:
// bob sells P7 (oracle O1, $15) at 50% to alice whose max is $10, alice
// sells P9 (oracle O2, $4) to bob, and bob also holds three P8 (oracle O3)
// that nobody wants.
func newTradeFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.card("P7", "O1", "15.00")
	f.card("P9", "O2", "4.00")
	f.card("P8", "O3", "2.00")

	f.locate(t, alice, 40.0, -74.0, 25)
	f.locate(t, bob, 40.01, -74.0, 25)

	f.own(t, bob, "P7", 1, "50")
	f.want(t, alice, "O1", 1, "10")
	f.own(t, alice, "P9", 2, "100")
	f.want(t, bob, "O2", 1, "")
	f.own(t, bob, "P8", 3, "100")
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) card(printingID, oracleID, price string) {
	card := models.CardCatalogEntry{
		PrintingID: printingID,
		OracleID:   oracleID,
		Name:       "Card " + oracleID,
		SetCode:    "TST",
		SetName:    "Test Set",
	}
	if price != "" {
		card.PriceUSD = decimal.NewNullDecimal(dec(price))
	}
	f.st.PutCard(card)
}

func (f *fixture) locate(t *testing.T, user uuid.UUID, lat, lon, radius float64) {
	t.Helper()
	require.NoError(t, f.st.SetActiveLocation(f.ctx, &models.Location{
		UserID:    user,
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  radius,
	}))
}

func (f *fixture) own(t *testing.T, user uuid.UUID, printingID string, qty int, percentage string) *models.CollectionEntry {
	t.Helper()
	entry := &models.CollectionEntry{
		UserID:      user,
		PrintingID:  printingID,
		Quantity:    qty,
		Condition:   models.ConditionNM,
		PricingMode: models.PricingModePercentage,
		Percentage:  dec(percentage),
	}
	require.NoError(t, f.st.CreateCollectionEntry(f.ctx, entry))
	return entry
}

func (f *fixture) want(t *testing.T, user uuid.UUID, oracleID string, qty int, maxPrice string) *models.WishlistEntry {
	t.Helper()
	entry := &models.WishlistEntry{
		UserID:            user,
		OracleID:          oracleID,
		Quantity:          qty,
		MinCondition:      models.ConditionDMG,
		FoilPreference:    models.FoilAny,
		EditionPreference: models.EditionAny,
		Priority:          5,
	}
	if maxPrice != "" {
		entry.MaxPrice = decimal.NewNullDecimal(dec(maxPrice))
	}
	require.NoError(t, f.st.CreateWishlistEntry(f.ctx, entry))
	return entry
}

// entryOf finds user's collection entry for a printing.
func (f *fixture) entryOf(t *testing.T, user uuid.UUID, printingID string) *models.CollectionEntry {
	t.Helper()
	entries, err := f.st.ListCollection(f.ctx, user)
	require.NoError(t, err)
	for _, e := range entries {
		if e.PrintingID == printingID {
			return e
		}
	}
	t.Fatalf("no collection entry for %s", printingID)
	return nil
}

func (f *fixture) clearWishlists(t *testing.T, users ...uuid.UUID) {
	t.Helper()
	for _, user := range users {
		entries, err := f.st.ListWishlist(f.ctx, user)
		require.NoError(t, err)
		for _, e := range entries {
			require.NoError(t, f.st.DeleteWishlistEntry(f.ctx, e.ID))
		}
	}
}

// compute runs a global recompute for user and expects success.
func (f *fixture) compute(t *testing.T, user uuid.UUID) []matching.MatchView {
	t.Helper()
	views, err := f.matches.ComputeMatches(f.ctx, user)
	require.NoError(t, err)
	return views
}

// pairMatch computes from alice and returns the alice/bob match.
func (f *fixture) pairMatch(t *testing.T) matching.MatchView {
	t.Helper()
	views := f.compute(t, alice)
	require.Len(t, views, 1)
	return views[0]
}

func (f *fixture) stored(t *testing.T, matchID uuid.UUID) *models.Match {
	t.Helper()
	m, err := f.st.GetMatch(f.ctx, matchID)
	require.NoError(t, err)
	return m
}

// requested computes the pair and has alice request the trade.
func (f *fixture) requested(t *testing.T) matching.MatchView {
	t.Helper()
	view := f.pairMatch(t)
	_, err := f.trades.RequestTrade(f.ctx, view.ID, alice)
	require.NoError(t, err)
	return view
}

// confirmed takes the pair through request and bob's confirmation.
func (f *fixture) confirmed(t *testing.T) matching.MatchView {
	t.Helper()
	view := f.requested(t)
	_, err := f.trades.ConfirmTrade(f.ctx, view.ID, bob)
	require.NoError(t, err)
	return view
}

func boolPtr(v bool) *bool {
	return &v
}

// interleavedStore runs before once, right ahead of the next locked edit, to
// stand in for a counterpart acting between a service's read and its write.
type interleavedStore struct {
	*memstore.Store
	before func()
}

func (s *interleavedStore) EditMatchLocked(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error) {
	if hook := s.before; hook != nil {
		s.before = nil
		hook()
	}
	return s.Store.EditMatchLocked(ctx, id, fn)
}

// interleaved returns match and trade services whose next locked edit is
// preceded by before. The fixture's own services act on the same data.
func (f *fixture) interleaved(before func()) (*MatchService, *TradeService) {
	st := &interleavedStore{Store: f.st, before: before}
	trades := NewTradeService(st, f.catalog, f.notifier, f.settlement, testMatching)
	trades.now = func() time.Time { return f.clock }
	return NewMatchService(st, f.catalog, nil, testMatching), trades
}
