// internal/services/settlement_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/metrics"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
)

const ReasonTradeSettled = "trade_settled"

// SettlementReport summarizes what a completed trade removed from inventories.
type SettlementReport struct {
	CollectionRemoved int
	WishlistRemoved   int
	EntriesDeleted    int
	Failures          int
}

type SettlementService struct {
	store store.Store
}

func NewSettlementService(st store.Store) *SettlementService {
	return &SettlementService{store: st}
}

// Settle moves the traded copies of every included line out of the giver's
// collection and the receiver's wishlist. Failures are logged per line and
// never returned; the trade is already completed when this runs.
func (s *SettlementService) Settle(ctx context.Context, m *models.Match) SettlementReport {
	var report SettlementReport
	log := logrus.WithField("match_id", m.ID)

	for i := range m.Lines {
		line := &m.Lines[i]
		if line.IsExcluded {
			continue
		}
		traded := line.TradedQuantity()
		if traded <= 0 {
			continue
		}

		if line.CollectionEntryID != nil {
			removed, deleted, err := s.store.DecrementCollectionEntry(ctx, *line.CollectionEntryID, traded)
			if s.record(log, "collection", line, err) {
				report.CollectionRemoved += removed
				if deleted {
					report.EntriesDeleted++
				}
			} else {
				report.Failures++
			}
		}

		if line.WishlistEntryID != nil {
			removed, deleted, err := s.store.DecrementWishlistEntry(ctx, *line.WishlistEntryID, traded)
			if s.record(log, "wishlist", line, err) {
				report.WishlistRemoved += removed
				if deleted {
					report.EntriesDeleted++
				}
			} else {
				report.Failures++
			}
		}
	}

	// Both inventories changed; their other matches need a refresh.
	for _, ev := range []*models.InventoryEvent{
		{UserID: m.UserAID, Reason: ReasonTradeSettled, ProcessAfter: time.Now()},
		{UserID: m.UserBID, Reason: ReasonTradeSettled, ProcessAfter: time.Now()},
	} {
		if err := s.store.EnqueueInventoryEvent(ctx, ev); err != nil {
			log.WithError(err).WithField("user_id", ev.UserID).Warn("Failed to enqueue inventory event after settlement")
		}
	}

	log.WithFields(logrus.Fields{
		"collection_removed": report.CollectionRemoved,
		"wishlist_removed":   report.WishlistRemoved,
		"entries_deleted":    report.EntriesDeleted,
		"failures":           report.Failures,
	}).Info("Trade settled")

	return report
}

func (s *SettlementService) record(log *logrus.Entry, side string, line *models.MatchCardLine, err error) bool {
	switch {
	case err == nil:
		metrics.SettlementOperationsTotal.WithLabelValues(side, "ok").Inc()
		return true
	case errors.Is(err, store.ErrNotFound):
		// Already gone, e.g. removed by the owner before completion.
		metrics.SettlementOperationsTotal.WithLabelValues(side, "missing").Inc()
		return true
	default:
		metrics.SettlementOperationsTotal.WithLabelValues(side, "error").Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"line_id": line.ID,
			"side":    side,
		}).Error("Settlement decrement failed")
		return false
	}
}
