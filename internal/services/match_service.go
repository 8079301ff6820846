// internal/services/match_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/matching"
	"github.com/cardswap/cardswap-backend/internal/metrics"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

type RecalculateOutcome string

const (
	OutcomeRecalculated         RecalculateOutcome = "recalculated"
	OutcomeCustomCardsPreserved RecalculateOutcome = "custom_cards_preserved"
	OutcomeNoMatches            RecalculateOutcome = "no_matches"
)

type RecalculateResult struct {
	Outcome RecalculateOutcome `json:"outcome"`
	Match   matching.MatchView `json:"match"`
}

type ListMatchesRequest struct {
	Statuses      []models.MatchStatus `json:"status,omitempty" validate:"omitempty,dive,match_status"`
	SortBy        string               `json:"sort,omitempty" validate:"omitempty,oneof=score distance created_at updated_at"`
	Page          int                  `json:"page"`
	Limit         int                  `json:"limit"`
	IncludeCounts bool                 `json:"counts"`
}

type MatchPage struct {
	Matches []matching.MatchView         `json:"matches"`
	Total   int64                        `json:"total"`
	Page    int                          `json:"page"`
	Limit   int                          `json:"limit"`
	Counts  map[models.MatchStatus]int64 `json:"counts,omitempty"`
}

type MatchService struct {
	store   store.Store
	catalog *CatalogService
	locker  Locker
	floor   decimal.Decimal
}

func NewMatchService(st store.Store, catalog *CatalogService, locker Locker, cfg config.MatchingConfig) *MatchService {
	if locker == nil {
		locker = NewNoopLocker()
	}
	return &MatchService{
		store:   st,
		catalog: catalog,
		locker:  locker,
		floor:   decimal.NewFromFloat(cfg.FloorPrice).Round(2),
	}
}

type inventory struct {
	wishlist   []*models.WishlistEntry
	collection []*models.CollectionEntry
}

func (s *MatchService) loadInventory(ctx context.Context, userID uuid.UUID) (*inventory, error) {
	wishlist, err := s.store.ListWishlist(ctx, userID)
	if err != nil {
		return nil, upstream("load wishlist", err)
	}
	collection, err := s.store.ListCollection(ctx, userID)
	if err != nil {
		return nil, upstream("load collection", err)
	}
	if err := s.catalog.Attach(ctx, collection); err != nil {
		return nil, err
	}
	return &inventory{wishlist: wishlist, collection: collection}, nil
}

// offered drops paused entries and entries held in escrow by a confirmed trade.
func offered(entries []*models.CollectionEntry, escrowed map[uuid.UUID]struct{}) []*models.CollectionEntry {
	out := make([]*models.CollectionEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsPaused {
			continue
		}
		if _, held := escrowed[e.ID]; held {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ComputeMatches rebuilds every non-preserved match of userID against all
// counterparts in reach and returns the result best score first.
func (s *MatchService) ComputeMatches(ctx context.Context, userID uuid.UUID) ([]matching.MatchView, error) {
	start := time.Now()
	views, err := s.computeMatches(ctx, userID)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrNoLocation), errors.Is(err, ErrNoInventory):
		outcome = "precondition"
	case err != nil:
		outcome = "error"
	}
	metrics.MatchComputationsTotal.WithLabelValues("global", outcome).Inc()
	metrics.MatchComputationDuration.Observe(time.Since(start).Seconds())

	return views, err
}

func (s *MatchService) computeMatches(ctx context.Context, userID uuid.UUID) ([]matching.MatchView, error) {
	release, err := s.locker.Acquire(ctx, "recompute:"+userID.String())
	if err != nil {
		return nil, fmt.Errorf("acquire recompute lock: %w", err)
	}
	defer release()

	self, err := s.store.GetActiveLocation(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoLocation
		}
		return nil, upstream("load location", err)
	}

	mine, err := s.loadInventory(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(mine.wishlist) == 0 && len(mine.collection) == 0 {
		return nil, ErrNoInventory
	}

	locations, err := s.store.ListActiveLocations(ctx, userID)
	if err != nil {
		return nil, upstream("load locations", err)
	}

	existing, err := s.store.ListUserMatches(ctx, userID)
	if err != nil {
		return nil, upstream("load matches", err)
	}
	preserved := make(map[uuid.UUID]bool)
	stale := make(map[uuid.UUID]uuid.UUID)
	for _, m := range existing {
		if m.IsPreserved() {
			preserved[m.Counterpart(userID)] = true
		} else {
			stale[m.Counterpart(userID)] = m.ID
		}
	}

	escrowed, err := s.store.EscrowedCollectionIDs(ctx, uuid.Nil)
	if err != nil {
		return nil, upstream("load escrow", err)
	}
	myOffer := offered(mine.collection, escrowed)

	var written []*models.Match
	for _, loc := range locations {
		other := loc.UserID
		if preserved[other] {
			continue
		}
		distance := matching.DistanceKm(self.Latitude, self.Longitude, loc.Latitude, loc.Longitude)
		if !matching.WithinReach(distance, self.RadiusKm, loc.RadiusKm) {
			continue
		}

		theirs, err := s.loadInventory(ctx, other)
		if err != nil {
			return nil, err
		}
		iWant := matching.FindCandidates(mine.wishlist, offered(theirs.collection, escrowed), s.floor)
		theyWant := matching.FindCandidates(theirs.wishlist, myOffer, s.floor)

		ev := matching.EvaluatePair(iWant, theyWant, distance)
		if ev.Empty() {
			continue
		}

		m := matching.BuildMatch(userID, other, ev)
		applied, err := s.store.UpsertComputedMatch(ctx, m)
		if err != nil {
			return nil, upstream("save match", err)
		}
		delete(stale, other)
		if !applied {
			continue
		}
		written = append(written, m)
	}

	// Pairs that no longer match or moved out of reach.
	if len(stale) > 0 {
		ids := make([]uuid.UUID, 0, len(stale))
		for _, id := range stale {
			ids = append(ids, id)
		}
		if err := s.store.DeleteMatches(ctx, ids); err != nil {
			return nil, upstream("delete stale matches", err)
		}
	}

	metrics.MatchesWrittenTotal.Add(float64(len(written)))
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"matches":   len(written),
		"preserved": len(preserved),
		"removed":   len(stale),
	}).Info("Matches computed")

	sort.SliceStable(written, func(i, j int) bool {
		if written[i].Score != written[j].Score {
			return written[i].Score > written[j].Score
		}
		return bytes.Compare(written[i].ID[:], written[j].ID[:]) < 0
	})

	views := make([]matching.MatchView, len(written))
	for i, m := range written {
		views[i] = matching.ToPerspective(m, userID)
	}
	return views, nil
}

// RecalculateMatch refreshes the computed lines of one match from both users'
// current inventories. Custom lines and the trade status are left as they are.
func (s *MatchService) RecalculateMatch(ctx context.Context, matchID, userID uuid.UUID) (*RecalculateResult, error) {
	result, err := s.recalculate(ctx, matchID, userID)
	outcome := "error"
	if err == nil {
		outcome = string(result.Outcome)
	}
	metrics.MatchComputationsTotal.WithLabelValues("single", outcome).Inc()
	return result, err
}

func (s *MatchService) recalculate(ctx context.Context, matchID, userID uuid.UUID) (*RecalculateResult, error) {
	current, err := loadParticipantMatch(ctx, s.store, matchID, userID)
	if err != nil {
		return nil, err
	}
	if err := recalculable(current); err != nil {
		return nil, err
	}

	// Scored from the caller's side, as the caller's own recompute would.
	other := current.Counterpart(userID)
	mine, err := s.loadInventory(ctx, userID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.loadInventory(ctx, other)
	if err != nil {
		return nil, err
	}
	escrowed, err := s.store.EscrowedCollectionIDs(ctx, current.ID)
	if err != nil {
		return nil, upstream("load escrow", err)
	}

	distance := current.DistanceKm
	if d, ok := s.pairDistance(ctx, userID, other); ok {
		distance = d
	}

	iWant := matching.FindCandidates(mine.wishlist, offered(theirs.collection, escrowed), s.floor)
	theyWant := matching.FindCandidates(theirs.wishlist, offered(mine.collection, escrowed), s.floor)
	ev := matching.EvaluatePair(iWant, theyWant, distance)

	var outcome RecalculateOutcome
	var computed int
	fresh, err := s.store.EditMatchLocked(ctx, matchID, func(m *models.Match) error {
		if err := recalculable(m); err != nil {
			return err
		}

		custom := make([]models.MatchCardLine, 0, len(m.Lines))
		for _, l := range m.Lines {
			if l.IsCustom {
				custom = append(custom, l)
			}
		}

		switch {
		case !ev.Empty():
			outcome = OutcomeRecalculated
			matching.ApplyEvaluation(m, userID, ev)
			m.DistanceKm = round2(distance)
			lines := append(
				matching.BuildLines(m.ID, m.ReceiveDirection(userID), ev.CardsIWant),
				matching.BuildLines(m.ID, m.ReceiveDirection(other), ev.CardsTheyWant)...,
			)
			computed = len(lines)
			m.Lines = append(lines, custom...)
		case len(custom) > 0:
			outcome = OutcomeCustomCardsPreserved
			resetCounted(m)
			m.Lines = custom
		default:
			outcome = OutcomeNoMatches
			resetCounted(m)
			m.IsUserModified = false
			m.Lines = nil
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, upstream("recalculate match", err)
	}

	logrus.WithFields(logrus.Fields{
		"match_id": matchID,
		"user_id":  userID,
		"outcome":  outcome,
		"lines":    computed,
	}).Info("Match recalculated")

	return &RecalculateResult{Outcome: outcome, Match: matching.ToPerspective(fresh, userID)}, nil
}

// recalculable rejects matches whose terms are in escrow or settled.
func recalculable(m *models.Match) error {
	switch m.Status {
	case models.MatchStatusConfirmed, models.MatchStatusCompleted, models.MatchStatusCancelled:
		return ErrInvalidState
	}
	return nil
}

func (s *MatchService) pairDistance(ctx context.Context, a, b uuid.UUID) (float64, bool) {
	la, err := s.store.GetActiveLocation(ctx, a)
	if err != nil {
		return 0, false
	}
	lb, err := s.store.GetActiveLocation(ctx, b)
	if err != nil {
		return 0, false
	}
	return matching.DistanceKm(la.Latitude, la.Longitude, lb.Latitude, lb.Longitude), true
}

func resetCounted(m *models.Match) {
	m.CardsAWants, m.CardsBWants = 0, 0
	m.ValueAWants, m.ValueBWants = decimal.Zero, decimal.Zero
	m.Score = 0
	m.HasPriceWarnings = false
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func (s *MatchService) GetMatch(ctx context.Context, matchID, userID uuid.UUID) (*matching.MatchView, error) {
	m, err := loadParticipantMatch(ctx, s.store, matchID, userID)
	if err != nil {
		return nil, err
	}
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

func (s *MatchService) ListMatches(ctx context.Context, userID uuid.UUID, req *ListMatchesRequest) (*MatchPage, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	paging := utils.PaginationParams{Page: req.Page, Limit: req.Limit}.Normalize()
	req.Page, req.Limit = paging.Page, paging.Limit

	matches, total, err := s.store.ListMatches(ctx, store.MatchFilter{
		UserID:   userID,
		Statuses: req.Statuses,
		SortBy:   req.SortBy,
		Limit:    req.Limit,
		Offset:   paging.Offset(),
	})
	if err != nil {
		return nil, upstream("list matches", err)
	}

	page := &MatchPage{
		Matches: make([]matching.MatchView, len(matches)),
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
	}
	for i, m := range matches {
		page.Matches[i] = matching.ToPerspective(m, userID)
	}

	if req.IncludeCounts {
		page.Counts, err = s.store.CountMatchesByStatus(ctx, userID)
		if err != nil {
			return nil, upstream("count matches", err)
		}
	}
	return page, nil
}

// CounterpartCollection lists what the counterpart can still offer in this
// match, for picking custom cards.
func (s *MatchService) CounterpartCollection(ctx context.Context, matchID, userID uuid.UUID) ([]*models.CollectionEntry, error) {
	m, err := loadParticipantMatch(ctx, s.store, matchID, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListCollection(ctx, m.Counterpart(userID))
	if err != nil {
		return nil, upstream("load collection", err)
	}
	escrowed, err := s.store.EscrowedCollectionIDs(ctx, m.ID)
	if err != nil {
		return nil, upstream("load escrow", err)
	}
	entries = offered(entries, escrowed)
	if err := s.catalog.Attach(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadParticipantMatch hides matches the caller is not part of behind ErrNotFound.
func loadParticipantMatch(ctx context.Context, st store.Store, matchID, userID uuid.UUID) (*models.Match, error) {
	m, err := st.GetMatch(ctx, matchID)
	if err != nil {
		return nil, upstream("load match", err)
	}
	if !m.IsParticipant(userID) {
		return nil, ErrNotFound
	}
	return m, nil
}
