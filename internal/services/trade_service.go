// internal/services/trade_service.go
package services

import (
	"context"
	"fmt"
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

type SetStatusRequest struct {
	Status models.MatchStatus `json:"status" validate:"required,oneof=active contacted dismissed"`
}

type SetExclusionRequest struct {
	Excluded bool `json:"excluded"`
}

type BulkExclusionRequest struct {
	ExcludedLineIDs []uuid.UUID `json:"excluded_line_ids"`
}

type AddCustomCardRequest struct {
	CollectionEntryID uuid.UUID `json:"collection_entry_id" validate:"required"`
	Quantity          int       `json:"quantity" validate:"required,min=1"`
}

type MarkCompletedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type CancelRequestResult struct {
	Withdrawn bool               `json:"withdrawn"`
	Match     matching.MatchView `json:"match"`
}

type CompletionResult struct {
	FinalStatus     models.MatchStatus `json:"final_status,omitempty"`
	HasConflict     bool               `json:"has_conflict"`
	WaitingForOther bool               `json:"waiting_for_other"`
	Match           matching.MatchView `json:"match"`
}

// TradeService drives a match from proposal to a completed or cancelled trade.
type TradeService struct {
	store        store.Store
	catalog      *CatalogService
	notifier     Notifier
	settlement   *SettlementService
	floor        decimal.Decimal
	escrowWindow time.Duration
	now          func() time.Time
}

func NewTradeService(st store.Store, catalog *CatalogService, notifier Notifier, settlement *SettlementService, cfg config.MatchingConfig) *TradeService {
	return &TradeService{
		store:        st,
		catalog:      catalog,
		notifier:     notifier,
		settlement:   settlement,
		floor:        decimal.NewFromFloat(cfg.FloorPrice).Round(2),
		escrowWindow: cfg.EscrowWindow,
		now:          time.Now,
	}
}

func (s *TradeService) notify(ctx context.Context, m *models.Match, actor uuid.UUID, t models.NotificationType, data models.JSONB) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, NotificationEvent{
		Recipient: m.Counterpart(actor),
		Actor:     actor,
		Type:      t,
		MatchID:   m.ID,
		Data:      data,
	})
}

type lockedUpdate func(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error)

// transition changes match columns under the row lock.
func (s *TradeService) transition(ctx context.Context, matchID, userID uuid.UUID, name string, fn func(m *models.Match) error) (*models.Match, error) {
	return s.locked(ctx, s.store.UpdateMatchLocked, matchID, userID, name, fn)
}

// edit changes the lines of an editable match under the row lock. The match
// becomes user modified, and a request the counterpart made against the old
// terms is dropped.
func (s *TradeService) edit(ctx context.Context, matchID, userID uuid.UUID, name string, fn func(m *models.Match) error) (*models.Match, error) {
	var invalidated bool
	m, err := s.locked(ctx, s.store.EditMatchLocked, matchID, userID, name, func(m *models.Match) error {
		if err := editable(m); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		m.IsUserModified = true
		if m.Status == models.MatchStatusRequested && m.RequestedBy != nil && *m.RequestedBy != userID {
			m.Status = models.MatchStatusActive
			m.ClearRequest()
			invalidated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if invalidated {
		s.notify(ctx, m, userID, models.NotificationRequestInvalidated, nil)
	}
	return m, nil
}

func (s *TradeService) locked(ctx context.Context, update lockedUpdate, matchID, userID uuid.UUID, name string, fn func(m *models.Match) error) (*models.Match, error) {
	m, err := update(ctx, matchID, func(m *models.Match) error {
		if !m.IsParticipant(userID) {
			return ErrNotFound
		}
		return fn(m)
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, upstream(name, err)
	}
	metrics.TradeTransitionsTotal.WithLabelValues(name).Inc()
	logrus.WithFields(logrus.Fields{
		"match_id":   m.ID,
		"user_id":    userID,
		"transition": name,
		"status":     m.Status,
	}).Info("Trade transition")
	return m, nil
}

// SetStatus moves a match between the lateral states. From requested it also
// drops the outstanding request.
func (s *TradeService) SetStatus(ctx context.Context, matchID, userID uuid.UUID, req *SetStatusRequest) (*matching.MatchView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	m, err := s.transition(ctx, matchID, userID, "set_status", func(m *models.Match) error {
		if err := editable(m); err != nil {
			return err
		}
		m.Status = req.Status
		m.ClearRequest()
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

func (s *TradeService) RequestTrade(ctx context.Context, matchID, userID uuid.UUID) (*matching.MatchView, error) {
	m, err := s.transition(ctx, matchID, userID, "request", func(m *models.Match) error {
		if m.Status.IsFinal() {
			return ErrFinalizedTrade
		}
		if !m.Status.IsOpen() {
			return ErrInvalidState
		}
		if includedLines(m) == 0 {
			return ErrEmptyTrade
		}
		now := s.now()
		m.Status = models.MatchStatusRequested
		m.RequestedBy = &userID
		m.RequestedAt = &now
		m.IsUserModified = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, m, userID, models.NotificationTradeRequested, nil)
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

// CancelRequest withdraws the caller's own request or rejects the counterpart's.
func (s *TradeService) CancelRequest(ctx context.Context, matchID, userID uuid.UUID) (*CancelRequestResult, error) {
	var withdrawn bool
	m, err := s.transition(ctx, matchID, userID, "cancel_request", func(m *models.Match) error {
		if m.Status.IsFinal() {
			return ErrFinalizedTrade
		}
		if m.Status != models.MatchStatusRequested || m.RequestedBy == nil {
			return ErrInvalidState
		}
		withdrawn = *m.RequestedBy == userID
		m.Status = models.MatchStatusActive
		m.ClearRequest()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if withdrawn {
		s.notify(ctx, m, userID, models.NotificationRequestWithdrawn, nil)
	} else {
		s.notify(ctx, m, userID, models.NotificationRequestRejected, nil)
	}
	return &CancelRequestResult{Withdrawn: withdrawn, Match: matching.ToPerspective(m, userID)}, nil
}

// ConfirmTrade accepts the counterpart's request and starts the escrow window.
func (s *TradeService) ConfirmTrade(ctx context.Context, matchID, userID uuid.UUID) (*matching.MatchView, error) {
	m, err := s.transition(ctx, matchID, userID, "confirm", func(m *models.Match) error {
		if m.Status.IsFinal() {
			return ErrFinalizedTrade
		}
		if m.Status != models.MatchStatusRequested || m.RequestedBy == nil || *m.RequestedBy == userID {
			return ErrInvalidState
		}
		now := s.now()
		expires := now.Add(s.escrowWindow)
		m.Status = models.MatchStatusConfirmed
		m.ConfirmedAt = &now
		m.EscrowExpiresAt = &expires
		m.UserACompleted, m.UserBCompleted = nil, nil
		m.HasConflict = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, m, userID, models.NotificationTradeConfirmed, nil)
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

// MarkCompleted records the caller's report. Once both participants have
// reported, agreement completes the trade and settles inventories; any
// disagreement cancels it.
func (s *TradeService) MarkCompleted(ctx context.Context, matchID, userID uuid.UUID, req *MarkCompletedRequest) (*CompletionResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	completed := *req.Completed

	m, err := s.transition(ctx, matchID, userID, "mark_completed", func(m *models.Match) error {
		if m.Status.IsFinal() {
			return ErrFinalizedTrade
		}
		if m.Status != models.MatchStatusConfirmed {
			return ErrInvalidState
		}
		m.SetCompletion(userID, completed)
		if m.UserACompleted == nil || m.UserBCompleted == nil {
			return nil
		}
		a, b := *m.UserACompleted, *m.UserBCompleted
		switch {
		case a && b:
			m.Status = models.MatchStatusCompleted
		case !a && !b:
			m.Status = models.MatchStatusCancelled
		default:
			m.Status = models.MatchStatusCancelled
			m.HasConflict = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{HasConflict: m.HasConflict}
	switch m.Status {
	case models.MatchStatusCompleted:
		result.FinalStatus = m.Status
		s.settlement.Settle(ctx, m)
		s.notify(ctx, m, userID, models.NotificationTradeCompleted, nil)
	case models.MatchStatusCancelled:
		result.FinalStatus = m.Status
		s.notify(ctx, m, userID, models.NotificationTradeCancelled, models.JSONB{"has_conflict": m.HasConflict})
	default:
		result.WaitingForOther = true
		s.notify(ctx, m, userID, models.NotificationCompletionReported, models.JSONB{"completed": completed})
	}
	result.Match = matching.ToPerspective(m, userID)
	return result, nil
}

func (s *TradeService) SetLineExclusion(ctx context.Context, matchID, lineID, userID uuid.UUID, req *SetExclusionRequest) (*matching.MatchView, error) {
	m, err := s.edit(ctx, matchID, userID, "set_exclusion", func(m *models.Match) error {
		line := findLine(m, lineID)
		if line == nil {
			return ErrNotFound
		}
		line.IsExcluded = req.Excluded
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

// BulkSetExclusions includes every line except the listed ones.
func (s *TradeService) BulkSetExclusions(ctx context.Context, matchID, userID uuid.UUID, req *BulkExclusionRequest) (*matching.MatchView, error) {
	m, err := s.edit(ctx, matchID, userID, "bulk_exclusions", func(m *models.Match) error {
		excluded := make(map[uuid.UUID]bool, len(req.ExcludedLineIDs))
		for _, id := range req.ExcludedLineIDs {
			if findLine(m, id) == nil {
				return ErrNotFound
			}
			excluded[id] = true
		}
		for i := range m.Lines {
			m.Lines[i].IsExcluded = excluded[m.Lines[i].ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

// AddCustomCard puts a card from the counterpart's collection on the caller's
// receive side, outside what the wishlist matching found.
func (s *TradeService) AddCustomCard(ctx context.Context, matchID, userID uuid.UUID, req *AddCustomCardRequest) (*matching.MatchView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		if req.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	current, err := loadParticipantMatch(ctx, s.store, matchID, userID)
	if err != nil {
		return nil, err
	}
	if err := editable(current); err != nil {
		return nil, err
	}

	entry, err := s.store.GetCollectionEntry(ctx, req.CollectionEntryID)
	if err != nil {
		return nil, upstream("load collection entry", err)
	}
	if entry.UserID != current.Counterpart(userID) {
		return nil, ErrOwnership
	}
	quantity := min(req.Quantity, entry.Quantity)
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	card, err := s.catalog.Get(ctx, entry.PrintingID)
	if err != nil {
		return nil, err
	}

	m, err := s.edit(ctx, matchID, userID, "add_custom_card", func(m *models.Match) error {
		dir := m.ReceiveDirection(userID)
		if existing := findCollectionLine(m, dir, entry.ID); existing != nil {
			existing.IsExcluded = false
			if existing.IsCustom {
				existing.QuantityWanted = quantity
				existing.QuantityAvailable = entry.Quantity
			}
			return nil
		}
		m.Lines = append(m.Lines, models.MatchCardLine{
			BaseModel:         models.BaseModel{ID: uuid.New()},
			MatchID:           m.ID,
			Direction:         dir,
			CollectionEntryID: &entry.ID,
			CardSnapshot:      card.Snapshot(),
			AskingPrice:       matching.AskingPrice(entry, card, s.floor),
			Condition:         entry.Condition,
			IsFoil:            entry.IsFoil,
			QuantityAvailable: entry.Quantity,
			QuantityWanted:    quantity,
			IsCustom:          true,
			AddedByUserID:     &userID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, m, userID, models.NotificationCustomCardAdded, models.JSONB{
		"card_name":   card.Name,
		"printing_id": card.PrintingID,
		"quantity":    quantity,
	})
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

func (s *TradeService) DeleteCustomCard(ctx context.Context, matchID, lineID, userID uuid.UUID) (*matching.MatchView, error) {
	m, err := s.edit(ctx, matchID, userID, "delete_custom_card", func(m *models.Match) error {
		idx := -1
		for i := range m.Lines {
			if m.Lines[i].ID == lineID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotFound
		}
		line := m.Lines[idx]
		if !line.IsCustom {
			return ErrInvalidState
		}
		if line.AddedByUserID == nil || *line.AddedByUserID != userID {
			return ErrOwnership
		}
		m.Lines = append(m.Lines[:idx], m.Lines[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := matching.ToPerspective(m, userID)
	return &view, nil
}

// editable rejects edits once terms are locked in escrow or the trade is over.
func editable(m *models.Match) error {
	switch {
	case m.Status.IsFinal():
		return ErrFinalizedTrade
	case m.Status == models.MatchStatusConfirmed:
		return ErrInvalidState
	}
	return nil
}

func includedLines(m *models.Match) int {
	n := 0
	for i := range m.Lines {
		if !m.Lines[i].IsExcluded {
			n++
		}
	}
	return n
}

func findLine(m *models.Match, lineID uuid.UUID) *models.MatchCardLine {
	for i := range m.Lines {
		if m.Lines[i].ID == lineID {
			return &m.Lines[i]
		}
	}
	return nil
}

func findCollectionLine(m *models.Match, dir models.Direction, collectionID uuid.UUID) *models.MatchCardLine {
	for i := range m.Lines {
		l := &m.Lines[i]
		if l.Direction == dir && l.CollectionEntryID != nil && *l.CollectionEntryID == collectionID {
			return l
		}
	}
	return nil
}
