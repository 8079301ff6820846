// internal/store/memstore/memstore.go
package memstore

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
)

// Store is an in-process store.Store used by service and handler tests.
// Rows are copied on the way in and out so callers never share memory with it.
type Store struct {
	mu sync.Mutex

	users         map[uuid.UUID]models.User
	locations     map[uuid.UUID]models.Location
	cards         map[string]models.CardCatalogEntry
	collection    map[uuid.UUID]models.CollectionEntry
	wishlist      map[uuid.UUID]models.WishlistEntry
	matches       map[uuid.UUID]models.Match
	lines         map[uuid.UUID]models.MatchCardLine
	notifications map[uuid.UUID]models.Notification
	events        map[uuid.UUID]models.InventoryEvent

	seq int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         map[uuid.UUID]models.User{},
		locations:     map[uuid.UUID]models.Location{},
		cards:         map[string]models.CardCatalogEntry{},
		collection:    map[uuid.UUID]models.CollectionEntry{},
		wishlist:      map[uuid.UUID]models.WishlistEntry{},
		matches:       map[uuid.UUID]models.Match{},
		lines:         map[uuid.UUID]models.MatchCardLine{},
		notifications: map[uuid.UUID]models.Notification{},
		events:        map[uuid.UUID]models.InventoryEvent{},
	}
}

// PutCard seeds the catalog.
func (s *Store) PutCard(card models.CardCatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.PrintingID] = card
}

// Notifications returns every stored notification for userID, oldest first.
func (s *Store) Notifications(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PendingEvents returns the queued inventory events.
func (s *Store) PendingEvents() []models.InventoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InventoryEvent
	for _, ev := range s.events {
		if ev.Status == models.EventStatusPending {
			out = append(out, ev)
		}
	}
	return out
}

// Events returns every inventory event, oldest first.
func (s *Store) Events() []models.InventoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InventoryEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// stamp fills identity and timestamps. Timestamps advance by a microsecond
// per write so ordering by time is stable.
func (s *Store) stamp(b *models.BaseModel) {
	s.seq++
	now := time.Unix(1_700_000_000, 0).Add(time.Duration(s.seq) * time.Microsecond)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&user.BaseModel)
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetActiveLocation(_ context.Context, userID uuid.UUID) (*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.locations {
		if l.UserID == userID && l.IsActive {
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListActiveLocations(_ context.Context, excludeUserID uuid.UUID) ([]*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Location
	for _, l := range s.locations {
		if l.IsActive && l.UserID != excludeUserID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].UserID, out[j].UserID) })
	return out, nil
}

func (s *Store) SetActiveLocation(_ context.Context, loc *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.locations {
		if l.UserID == loc.UserID && l.IsActive {
			l.IsActive = false
			s.locations[id] = l
		}
	}
	loc.IsActive = true
	s.stamp(&loc.BaseModel)
	s.locations[loc.ID] = *loc
	return nil
}

func (s *Store) GetCards(_ context.Context, printingIDs []string) (map[string]*models.CardCatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.CardCatalogEntry, len(printingIDs))
	for _, id := range printingIDs {
		if c, ok := s.cards[id]; ok {
			out[id] = &c
		}
	}
	return out, nil
}

func (s *Store) FindCardsByName(_ context.Context, term string, limit int) ([]*models.CardCatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	term = strings.ToLower(term)
	var out []*models.CardCatalogEntry
	for _, c := range s.cards {
		if strings.Contains(strings.ToLower(c.Name), term) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PrintingID < out[j].PrintingID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListCollection(_ context.Context, userID uuid.UUID) ([]*models.CollectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CollectionEntry
	for _, e := range s.collection {
		if e.UserID == userID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetCollectionEntry(_ context.Context, id uuid.UUID) (*models.CollectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.collection[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateCollectionEntry(_ context.Context, entry *models.CollectionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&entry.BaseModel)
	e := *entry
	e.Card = nil
	s.collection[e.ID] = e
	return nil
}

func (s *Store) UpdateCollectionEntry(ctx context.Context, entry *models.CollectionEntry) error {
	return s.CreateCollectionEntry(ctx, entry)
}

func (s *Store) DeleteCollectionEntry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collection, id)
	return nil
}

func (s *Store) ApplyDefaultPercentage(_ context.Context, userID uuid.UUID, percentage decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.collection {
		if e.UserID == userID && !e.IsOverride {
			e.Percentage = percentage
			e.PricingMode = models.PricingModePercentage
			s.collection[id] = e
			n++
		}
	}
	return n, nil
}

func (s *Store) DecrementCollectionEntry(_ context.Context, id uuid.UUID, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.collection[id]
	if !ok {
		return 0, false, store.ErrNotFound
	}
	removed := min(qty, e.Quantity)
	e.Quantity -= removed
	if e.Quantity <= 0 {
		delete(s.collection, id)
		return removed, true, nil
	}
	s.collection[id] = e
	return removed, false, nil
}

func (s *Store) ListWishlist(_ context.Context, userID uuid.UUID) ([]*models.WishlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WishlistEntry
	for _, e := range s.wishlist {
		if e.UserID == userID {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetWishlistEntry(_ context.Context, id uuid.UUID) (*models.WishlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.wishlist[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateWishlistEntry(_ context.Context, entry *models.WishlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&entry.BaseModel)
	s.wishlist[entry.ID] = *entry
	return nil
}

func (s *Store) UpdateWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	return s.CreateWishlistEntry(ctx, entry)
}

func (s *Store) DeleteWishlistEntry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wishlist, id)
	return nil
}

func (s *Store) DecrementWishlistEntry(_ context.Context, id uuid.UUID, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.wishlist[id]
	if !ok {
		return 0, false, store.ErrNotFound
	}
	removed := min(qty, e.Quantity)
	e.Quantity -= removed
	if e.Quantity <= 0 {
		delete(s.wishlist, id)
		return removed, true, nil
	}
	s.wishlist[id] = e
	return removed, false, nil
}

// loadMatch returns a copy of the match with its lines; s.mu must be held.
func (s *Store) loadMatch(id uuid.UUID, withLines bool) (*models.Match, bool) {
	m, ok := s.matches[id]
	if !ok {
		return nil, false
	}
	m.Lines = nil
	if withLines {
		for _, l := range s.lines {
			if l.MatchID == id {
				m.Lines = append(m.Lines, l)
			}
		}
		sortLines(m.Lines)
	}
	return &m, true
}

func sortLines(lines []models.MatchCardLine) {
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		if a.IsCustom != b.IsCustom {
			return !a.IsCustom
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return less(a.ID, b.ID)
	})
}

func (s *Store) GetMatch(_ context.Context, id uuid.UUID) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.loadMatch(id, true)
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListUserMatches(_ context.Context, userID uuid.UUID) ([]*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Match
	for id, m := range s.matches {
		if m.IsParticipant(userID) {
			mm, _ := s.loadMatch(id, false)
			out = append(out, mm)
		}
	}
	return out, nil
}

func (s *Store) ListMatches(_ context.Context, filter store.MatchFilter) ([]*models.Match, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := map[models.MatchStatus]bool{}
	for _, st := range filter.Statuses {
		wanted[st] = true
	}

	var out []*models.Match
	for id, m := range s.matches {
		if !m.IsParticipant(filter.UserID) {
			continue
		}
		if len(wanted) > 0 && !wanted[m.Status] {
			continue
		}
		mm, _ := s.loadMatch(id, true)
		out = append(out, mm)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch filter.SortBy {
		case store.SortByDistance:
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
		case store.SortByCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case store.SortByUpdatedAt:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		return less(a.ID, b.ID)
	})

	total := int64(len(out))
	if filter.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (s *Store) CountMatchesByStatus(_ context.Context, userID uuid.UUID) (map[models.MatchStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.MatchStatus]int64, len(models.AllMatchStatuses))
	for _, st := range models.AllMatchStatuses {
		counts[st] = 0
	}
	for _, m := range s.matches {
		if m.IsParticipant(userID) {
			counts[m.Status]++
		}
	}
	return counts, nil
}

func (s *Store) DeleteMatches(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m, ok := s.matches[id]; !ok || m.IsPreserved() {
			continue
		}
		delete(s.matches, id)
		s.deleteLinesWhere(func(l models.MatchCardLine) bool { return l.MatchID == id })
	}
	return nil
}

func (s *Store) deleteLinesWhere(pred func(models.MatchCardLine) bool) {
	for id, l := range s.lines {
		if pred(l) {
			delete(s.lines, id)
		}
	}
}

func (s *Store) UpsertComputedMatch(_ context.Context, m *models.Match) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.matches {
		if existing.UserAID != m.UserAID || existing.UserBID != m.UserBID {
			continue
		}
		if existing.IsUserModified || !existing.Status.IsOpen() {
			return false, nil
		}
		existing.MatchType = m.MatchType
		existing.DistanceKm = m.DistanceKm
		existing.CardsAWants, existing.CardsBWants = m.CardsAWants, m.CardsBWants
		existing.ValueAWants, existing.ValueBWants = m.ValueAWants, m.ValueBWants
		existing.Score = m.Score
		existing.HasPriceWarnings = m.HasPriceWarnings
		s.stamp(&existing.BaseModel)
		s.matches[id] = existing
		m.ID = id
		m.Status = existing.Status
		s.replaceLines(id, m.Lines)
		return true, nil
	}

	s.stamp(&m.BaseModel)
	row := *m
	row.Lines = nil
	s.matches[m.ID] = row
	s.replaceLines(m.ID, m.Lines)
	return true, nil
}

func (s *Store) replaceLines(matchID uuid.UUID, lines []models.MatchCardLine) {
	s.deleteLinesWhere(func(l models.MatchCardLine) bool { return l.MatchID == matchID && !l.IsCustom })
	for i := range lines {
		lines[i].MatchID = matchID
		s.stamp(&lines[i].BaseModel)
		s.lines[lines[i].ID] = lines[i]
	}
}

func (s *Store) SaveMatch(_ context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveMatch(m)
	return nil
}

func (s *Store) saveMatch(m *models.Match) {
	s.stamp(&m.BaseModel)
	row := *m
	row.Lines = nil
	s.matches[m.ID] = row
}

func (s *Store) UpdateMatchLocked(_ context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.loadMatch(id, true)
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	s.saveMatch(m)
	return m, nil
}

func (s *Store) EditMatchLocked(_ context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.loadMatch(id, true)
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	s.saveMatch(m)

	keep := make(map[uuid.UUID]bool, len(m.Lines))
	for i := range m.Lines {
		l := &m.Lines[i]
		l.MatchID = id
		s.stamp(&l.BaseModel)
		keep[l.ID] = true
		s.lines[l.ID] = *l
	}
	s.deleteLinesWhere(func(l models.MatchCardLine) bool { return l.MatchID == id && !keep[l.ID] })

	fresh, _ := s.loadMatch(id, true)
	return fresh, nil
}

func (s *Store) EscrowedCollectionIDs(_ context.Context, excludeMatchID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]struct{}{}
	for _, l := range s.lines {
		if l.IsExcluded || l.CollectionEntryID == nil || l.MatchID == excludeMatchID {
			continue
		}
		if m, ok := s.matches[l.MatchID]; ok && m.Status == models.MatchStatusConfirmed {
			out[*l.CollectionEntryID] = struct{}{}
		}
	}
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&n.BaseModel)
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.ReadAt = &at
	s.notifications[id] = n
	return nil
}

func (s *Store) EnqueueInventoryEvent(_ context.Context, ev *models.InventoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Status == "" {
		ev.Status = models.EventStatusPending
	}
	s.stamp(&ev.BaseModel)
	s.events[ev.ID] = *ev
	return nil
}

func (s *Store) ClaimInventoryEvents(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*models.InventoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.InventoryEvent
	for _, ev := range s.events {
		if ev.Status == models.EventStatusPending && !ev.ProcessAfter.After(now) {
			ev := ev
			out = append(out, &ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, ev := range out {
		ev.ProcessAfter = now.Add(lease)
		s.events[ev.ID] = *ev
	}
	return out, nil
}

func (s *Store) SaveInventoryEvent(_ context.Context, ev *models.InventoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&ev.BaseModel)
	s.events[ev.ID] = *ev
	return nil
}

func less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
