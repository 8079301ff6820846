// internal/store/pg.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardswap/cardswap-backend/internal/models"
)

// A computed match may only overwrite a row nobody has acted on yet.
const replaceableMatchSQL = "matches.is_user_modified = false AND matches.status IN ('active', 'contacted', 'dismissed')"

const lineOrder = "direction, is_custom, created_at, id"

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *pgStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *pgStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *pgStore) GetActiveLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	var loc models.Location
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		First(&loc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

func (s *pgStore) ListActiveLocations(ctx context.Context, excludeUserID uuid.UUID) ([]*models.Location, error) {
	var locs []*models.Location
	err := s.db.WithContext(ctx).
		Where("user_id <> ? AND is_active = ?", excludeUserID, true).
		Order("user_id").
		Find(&locs).Error
	return locs, err
}

func (s *pgStore) SetActiveLocation(ctx context.Context, loc *models.Location) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Location{}).
			Where("user_id = ? AND is_active = ?", loc.UserID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate locations: %w", err)
		}
		loc.IsActive = true
		return tx.Save(loc).Error
	})
}

func (s *pgStore) GetCards(ctx context.Context, printingIDs []string) (map[string]*models.CardCatalogEntry, error) {
	out := make(map[string]*models.CardCatalogEntry, len(printingIDs))
	if len(printingIDs) == 0 {
		return out, nil
	}
	var cards []*models.CardCatalogEntry
	if err := s.db.WithContext(ctx).Where("printing_id IN ?", printingIDs).Find(&cards).Error; err != nil {
		return nil, err
	}
	for _, c := range cards {
		out[c.PrintingID] = c
	}
	return out, nil
}

func (s *pgStore) FindCardsByName(ctx context.Context, term string, limit int) ([]*models.CardCatalogEntry, error) {
	var cards []*models.CardCatalogEntry
	err := s.db.WithContext(ctx).
		Where("name ILIKE ?", "%"+term+"%").
		Order("name, released_at DESC").
		Limit(limit).
		Find(&cards).Error
	return cards, err
}

func (s *pgStore) ListCollection(ctx context.Context, userID uuid.UUID) ([]*models.CollectionEntry, error) {
	var entries []*models.CollectionEntry
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&entries).Error
	return entries, err
}

func (s *pgStore) GetCollectionEntry(ctx context.Context, id uuid.UUID) (*models.CollectionEntry, error) {
	var entry models.CollectionEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *pgStore) CreateCollectionEntry(ctx context.Context, entry *models.CollectionEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *pgStore) UpdateCollectionEntry(ctx context.Context, entry *models.CollectionEntry) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

func (s *pgStore) DeleteCollectionEntry(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.CollectionEntry{}, "id = ?", id).Error
}

func (s *pgStore) ApplyDefaultPercentage(ctx context.Context, userID uuid.UUID, percentage decimal.Decimal) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.CollectionEntry{}).
		Where("user_id = ? AND is_override = ?", userID, false).
		Updates(map[string]interface{}{
			"percentage":   percentage,
			"pricing_mode": models.PricingModePercentage,
		})
	return res.RowsAffected, res.Error
}

func (s *pgStore) DecrementCollectionEntry(ctx context.Context, id uuid.UUID, qty int) (int, bool, error) {
	return decrement(s.db.WithContext(ctx), &models.CollectionEntry{}, id, qty)
}

func (s *pgStore) ListWishlist(ctx context.Context, userID uuid.UUID) ([]*models.WishlistEntry, error) {
	var entries []*models.WishlistEntry
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("priority DESC, created_at, id").Find(&entries).Error
	return entries, err
}

func (s *pgStore) GetWishlistEntry(ctx context.Context, id uuid.UUID) (*models.WishlistEntry, error) {
	var entry models.WishlistEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *pgStore) CreateWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *pgStore) UpdateWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

func (s *pgStore) DeleteWishlistEntry(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.WishlistEntry{}, "id = ?", id).Error
}

func (s *pgStore) DecrementWishlistEntry(ctx context.Context, id uuid.UUID, qty int) (int, bool, error) {
	return decrement(s.db.WithContext(ctx), &models.WishlistEntry{}, id, qty)
}

// decrement locks the row, lowers quantity by min(qty, quantity) and deletes it at zero.
func decrement(db *gorm.DB, model interface{}, id uuid.UUID, qty int) (removed int, deleted bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		var current struct{ Quantity int }
		res := tx.Model(model).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("quantity").
			Where("id = ?", id).
			Take(&current)
		if res.Error != nil {
			return notFound(res.Error)
		}

		removed = qty
		if removed > current.Quantity {
			removed = current.Quantity
		}
		if current.Quantity-removed <= 0 {
			deleted = true
			return tx.Where("id = ?", id).Delete(model).Error
		}
		return tx.Model(model).Where("id = ?", id).
			Update("quantity", gorm.Expr("quantity - ?", removed)).Error
	})
	return removed, deleted, err
}

func (s *pgStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order(lineOrder) }).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *pgStore) ListUserMatches(ctx context.Context, userID uuid.UUID) ([]*models.Match, error) {
	var matches []*models.Match
	err := s.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Find(&matches).Error
	return matches, err
}

func (s *pgStore) ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("(user_a_id = ? OR user_b_id = ?)", filter.UserID, filter.UserID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var matches []*models.Match
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order(lineOrder) }).
		Order(matchOrder(filter.SortBy)).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&matches).Error
	return matches, total, err
}

func matchOrder(sortBy string) string {
	switch sortBy {
	case SortByDistance:
		return "distance_km ASC, score DESC, id"
	case SortByCreatedAt:
		return "created_at DESC, id"
	case SortByUpdatedAt:
		return "updated_at DESC, id"
	default:
		return "score DESC, distance_km ASC, id"
	}
}

func (s *pgStore) CountMatchesByStatus(ctx context.Context, userID uuid.UUID) (map[models.MatchStatus]int64, error) {
	var rows []struct {
		Status models.MatchStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Match{}).
		Select("status, COUNT(*) AS count").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.MatchStatus]int64, len(models.AllMatchStatuses))
	for _, st := range models.AllMatchStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *pgStore) DeleteMatches(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deletable := tx.Model(&models.Match{}).Select("id").Where("id IN ?", ids).Where(replaceableMatchSQL)
		if err := tx.Where("match_id IN (?)", deletable).Delete(&models.MatchCardLine{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Where(replaceableMatchSQL).Delete(&models.Match{}).Error
	})
}

func (s *pgStore) UpsertComputedMatch(ctx context.Context, m *models.Match) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"match_type", "distance_km", "cards_a_wants", "cards_b_wants",
				"value_a_wants", "value_b_wants", "score", "has_price_warnings", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: replaceableMatchSQL}}},
		}).Create(m)
		if res.Error != nil {
			return fmt.Errorf("failed to upsert match: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		// An older row for the pair keeps its own id and lateral status.
		var row struct {
			ID     uuid.UUID
			Status models.MatchStatus
		}
		if err := tx.Model(&models.Match{}).Select("id", "status").
			Where("user_a_id = ? AND user_b_id = ?", m.UserAID, m.UserBID).
			Scan(&row).Error; err != nil {
			return err
		}
		m.ID, m.Status = row.ID, row.Status

		return replaceLines(tx, m.ID, m.Lines)
	})
	return applied, err
}

func replaceLines(tx *gorm.DB, matchID uuid.UUID, lines []models.MatchCardLine) error {
	if err := tx.Where("match_id = ? AND is_custom = ?", matchID, false).
		Delete(&models.MatchCardLine{}).Error; err != nil {
		return fmt.Errorf("failed to clear computed lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].MatchID = matchID
	}
	if err := tx.CreateInBatches(lines, 200).Error; err != nil {
		return fmt.Errorf("failed to insert computed lines: %w", err)
	}
	return nil
}

func (s *pgStore) SaveMatch(ctx context.Context, m *models.Match) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error
}

func (s *pgStore) UpdateMatchLocked(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error) {
	return s.lockedMatch(ctx, id, fn, false)
}

func (s *pgStore) EditMatchLocked(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error) {
	return s.lockedMatch(ctx, id, fn, true)
}

func (s *pgStore) lockedMatch(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error, withLines bool) (*models.Match, error) {
	var m models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("match_id = ?", id).Order(lineOrder).Find(&m.Lines).Error; err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&m).Error; err != nil {
			return err
		}
		if !withLines {
			return nil
		}
		return syncLines(tx, m.ID, m.Lines)
	})
	if err != nil {
		return nil, err
	}
	if withLines {
		return s.GetMatch(ctx, id)
	}
	return &m, nil
}

// syncLines makes the stored lines of a match equal to lines.
func syncLines(tx *gorm.DB, matchID uuid.UUID, lines []models.MatchCardLine) error {
	keep := make([]uuid.UUID, 0, len(lines))
	for i := range lines {
		lines[i].MatchID = matchID
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		keep = append(keep, lines[i].ID)
	}

	del := tx.Where("match_id = ?", matchID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.MatchCardLine{}).Error; err != nil {
		return fmt.Errorf("failed to delete dropped lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(lines, 200).Error; err != nil {
		return fmt.Errorf("failed to upsert lines: %w", err)
	}
	return nil
}

func (s *pgStore) EscrowedCollectionIDs(ctx context.Context, excludeMatchID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.MatchCardLine{}).
		Joins("JOIN matches ON matches.id = match_card_lines.match_id").
		Where("matches.status = ? AND matches.id <> ?", models.MatchStatusConfirmed, excludeMatchID).
		Where("match_card_lines.is_excluded = ? AND match_card_lines.collection_entry_id IS NOT NULL", false).
		Distinct().
		Pluck("match_card_lines.collection_entry_id", &ids).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *pgStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *pgStore) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*models.Notification
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, total, err
}

func (s *pgStore) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) EnqueueInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error {
	if ev.Status == "" {
		ev.Status = models.EventStatusPending
	}
	if ev.ProcessAfter.IsZero() {
		ev.ProcessAfter = time.Now()
	}
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *pgStore) ClaimInventoryEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.InventoryEvent, error) {
	var events []*models.InventoryEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND process_after <= ?", models.EventStatusPending, now).
			Order("process_after, id").
			Limit(limit).
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(events))
		for i, ev := range events {
			ids[i] = ev.ID
			ev.ProcessAfter = now.Add(lease)
		}
		return tx.Model(&models.InventoryEvent{}).
			Where("id IN ?", ids).
			Update("process_after", now.Add(lease)).Error
	})
	return events, err
}

func (s *pgStore) SaveInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error {
	return s.db.WithContext(ctx).Save(ev).Error
}
