// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// Match list sort keys.
const (
	SortByScore     = "score"
	SortByDistance  = "distance"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
)

type MatchFilter struct {
	UserID   uuid.UUID
	Statuses []models.MatchStatus
	SortBy   string
	Limit    int
	Offset   int
}

// Store is the persistence boundary for the matching and trade services.
// Every method is independent unless its comment says otherwise.
type Store interface {
	// GetUser retrieves a local user profile
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	// SaveUser creates or updates a user profile
	SaveUser(ctx context.Context, user *models.User) error

	// GetActiveLocation returns the user's single active location
	GetActiveLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error)
	// ListActiveLocations returns the active location of every user except excludeUserID
	ListActiveLocations(ctx context.Context, excludeUserID uuid.UUID) ([]*models.Location, error)
	// SetActiveLocation stores loc as the user's only active location
	SetActiveLocation(ctx context.Context, loc *models.Location) error

	// GetCards resolves printings by id; missing ids are absent from the map
	GetCards(ctx context.Context, printingIDs []string) (map[string]*models.CardCatalogEntry, error)
	// FindCardsByName returns catalog rows whose name contains term
	FindCardsByName(ctx context.Context, term string, limit int) ([]*models.CardCatalogEntry, error)

	ListCollection(ctx context.Context, userID uuid.UUID) ([]*models.CollectionEntry, error)
	GetCollectionEntry(ctx context.Context, id uuid.UUID) (*models.CollectionEntry, error)
	CreateCollectionEntry(ctx context.Context, entry *models.CollectionEntry) error
	UpdateCollectionEntry(ctx context.Context, entry *models.CollectionEntry) error
	DeleteCollectionEntry(ctx context.Context, id uuid.UUID) error
	// ApplyDefaultPercentage sets the percentage of every non-override entry of the user
	ApplyDefaultPercentage(ctx context.Context, userID uuid.UUID, percentage decimal.Decimal) (int64, error)
	// DecrementCollectionEntry lowers the quantity by at most qty and deletes the
	// entry once it reaches zero. It returns how many copies were removed.
	DecrementCollectionEntry(ctx context.Context, id uuid.UUID, qty int) (removed int, deleted bool, err error)

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]*models.WishlistEntry, error)
	GetWishlistEntry(ctx context.Context, id uuid.UUID) (*models.WishlistEntry, error)
	CreateWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error
	UpdateWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error
	DeleteWishlistEntry(ctx context.Context, id uuid.UUID) error
	DecrementWishlistEntry(ctx context.Context, id uuid.UUID, qty int) (removed int, deleted bool, err error)

	// GetMatch loads a match with its lines
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	// ListUserMatches loads every match the user takes part in, without lines
	ListUserMatches(ctx context.Context, userID uuid.UUID) ([]*models.Match, error)
	// ListMatches pages through a user's matches with their lines
	ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, int64, error)
	CountMatchesByStatus(ctx context.Context, userID uuid.UUID) (map[models.MatchStatus]int64, error)
	// DeleteMatches removes the listed matches and their lines, skipping any
	// that became preserved since they were read.
	DeleteMatches(ctx context.Context, ids []uuid.UUID) error
	// UpsertComputedMatch inserts m and its lines, or replaces an existing
	// non-preserved row for the same pair. It reports false when the existing
	// row is preserved and was left alone.
	UpsertComputedMatch(ctx context.Context, m *models.Match) (bool, error)
	// SaveMatch persists the match columns only
	SaveMatch(ctx context.Context, m *models.Match) error
	// UpdateMatchLocked runs fn on a row-locked copy of the match and saves
	// its columns when fn succeeds. Changes fn makes to m.Lines are ignored.
	UpdateMatchLocked(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error)
	// EditMatchLocked is UpdateMatchLocked that also writes back m.Lines as fn
	// left them: lines no longer in the slice are deleted, the rest upserted.
	EditMatchLocked(ctx context.Context, id uuid.UUID, fn func(m *models.Match) error) (*models.Match, error)
	// EscrowedCollectionIDs lists collection entries on included lines of confirmed matches
	EscrowedCollectionIDs(ctx context.Context, excludeMatchID uuid.UUID) (map[uuid.UUID]struct{}, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error

	EnqueueInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error
	// ClaimInventoryEvents leases up to limit due pending events until now+lease
	ClaimInventoryEvents(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.InventoryEvent, error)
	SaveInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error
}
