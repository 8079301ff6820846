// internal/services/inventory_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// Inventory event reasons.
const (
	ReasonCollectionChanged = "collection_changed"
	ReasonWishlistChanged   = "wishlist_changed"
	ReasonLocationChanged   = "location_changed"
	ReasonDiscountApplied   = "discount_applied"
)

type CreateCollectionEntryRequest struct {
	PrintingID  string             `json:"printing_id" validate:"required,max=64"`
	Quantity    int                `json:"quantity" validate:"required,min=1"`
	Condition   models.Condition   `json:"condition,omitempty" validate:"omitempty,card_condition"`
	IsFoil      bool               `json:"is_foil"`
	PricingMode models.PricingMode `json:"pricing_mode,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Percentage  *decimal.Decimal   `json:"percentage,omitempty"`
	FixedPrice  *decimal.Decimal   `json:"fixed_price,omitempty"`
	IsPaused    bool               `json:"is_paused"`
}

type UpdateCollectionEntryRequest struct {
	Quantity    *int               `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Condition   models.Condition   `json:"condition,omitempty" validate:"omitempty,card_condition"`
	IsFoil      *bool              `json:"is_foil,omitempty"`
	PricingMode models.PricingMode `json:"pricing_mode,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Percentage  *decimal.Decimal   `json:"percentage,omitempty"`
	FixedPrice  *decimal.Decimal   `json:"fixed_price,omitempty"`
	IsPaused    *bool              `json:"is_paused,omitempty"`
}

type WishlistEntryRequest struct {
	OracleID          string                   `json:"oracle_id" validate:"required,max=64"`
	Quantity          int                      `json:"quantity" validate:"required,min=1"`
	MaxPrice          *decimal.Decimal         `json:"max_price,omitempty"`
	MinCondition      models.Condition         `json:"min_condition,omitempty" validate:"omitempty,card_condition"`
	FoilPreference    models.FoilPreference    `json:"foil_preference,omitempty" validate:"omitempty,oneof=any foil_only non_foil"`
	EditionPreference models.EditionPreference `json:"edition_preference,omitempty" validate:"omitempty,oneof=any specific"`
	PrintingIDs       []string                 `json:"printing_ids,omitempty" validate:"required_if=EditionPreference specific,dive,max=64"`
	Priority          int                      `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
}

type LocationRequest struct {
	Label     string  `json:"label,omitempty" validate:"max=100"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusKm  float64 `json:"radius_km,omitempty" validate:"omitempty,gt=0,max=500"`
}

type DiscountRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
}

type DiscountResult struct {
	Percentage decimal.Decimal `json:"percentage"`
	Updated    int64           `json:"updated"`
}

// InventoryService owns collections, wishlists and locations. Every change
// queues an inventory event so the owner's matches get recomputed.
type InventoryService struct {
	store           store.Store
	catalog         *CatalogService
	defaultRadiusKm float64
}

func NewInventoryService(st store.Store, catalog *CatalogService, cfg config.MatchingConfig) *InventoryService {
	return &InventoryService{
		store:           st,
		catalog:         catalog,
		defaultRadiusKm: cfg.DefaultRadiusKm,
	}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func checkPrices(percentage, fixed *decimal.Decimal) error {
	if percentage != nil && !percentage.IsPositive() {
		return validationError(errors.New("percentage must be greater than zero"))
	}
	if fixed != nil && fixed.IsNegative() {
		return validationError(errors.New("fixed_price must not be negative"))
	}
	return nil
}

func (s *InventoryService) changed(ctx context.Context, userID uuid.UUID, reason string) {
	ev := &models.InventoryEvent{UserID: userID, Reason: reason, ProcessAfter: time.Now()}
	if err := s.store.EnqueueInventoryEvent(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"reason":  reason,
		}).Warn("Failed to enqueue inventory event")
	}
}

func (s *InventoryService) defaultPercentage(ctx context.Context, userID uuid.UUID) decimal.Decimal {
	if u, err := s.store.GetUser(ctx, userID); err == nil && u.DefaultPercentage.IsPositive() {
		return u.DefaultPercentage
	}
	return hundredPercent
}

var hundredPercent = decimal.NewFromInt(100)

func (s *InventoryService) ListCollection(ctx context.Context, userID uuid.UUID) ([]*models.CollectionEntry, error) {
	entries, err := s.store.ListCollection(ctx, userID)
	if err != nil {
		return nil, upstream("list collection", err)
	}
	if err := s.catalog.Attach(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *InventoryService) AddCollectionEntry(ctx context.Context, userID uuid.UUID, req *CreateCollectionEntryRequest) (*models.CollectionEntry, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if err := checkPrices(req.Percentage, req.FixedPrice); err != nil {
		return nil, err
	}
	card, err := s.catalog.Get(ctx, req.PrintingID)
	if err != nil {
		return nil, err
	}

	def := s.defaultPercentage(ctx, userID)
	entry := &models.CollectionEntry{
		UserID:      userID,
		PrintingID:  card.PrintingID,
		Quantity:    req.Quantity,
		Condition:   req.Condition,
		IsFoil:      req.IsFoil,
		PricingMode: req.PricingMode,
		Percentage:  def,
		IsPaused:    req.IsPaused,
	}
	if entry.Condition == "" {
		entry.Condition = models.ConditionNM
	}
	if entry.PricingMode == "" {
		entry.PricingMode = models.PricingModePercentage
	}
	applyPricing(entry, req.Percentage, req.FixedPrice, def)

	if err := s.store.CreateCollectionEntry(ctx, entry); err != nil {
		return nil, upstream("create collection entry", err)
	}
	entry.Card = card
	s.changed(ctx, userID, ReasonCollectionChanged)
	return entry, nil
}

// applyPricing sets explicit prices and marks entries whose price departs from
// the user's default so a later global discount leaves them alone.
func applyPricing(entry *models.CollectionEntry, percentage, fixed *decimal.Decimal, def decimal.Decimal) {
	if percentage != nil {
		entry.Percentage = *percentage
	}
	if fixed != nil {
		entry.FixedPrice = decimal.NewNullDecimal(fixed.Round(2))
	}
	entry.IsOverride = entry.PricingMode == models.PricingModeFixed || !entry.Percentage.Equal(def)
}

func (s *InventoryService) ownedCollectionEntry(ctx context.Context, userID, id uuid.UUID) (*models.CollectionEntry, error) {
	entry, err := s.store.GetCollectionEntry(ctx, id)
	if err != nil {
		return nil, upstream("load collection entry", err)
	}
	if entry.UserID != userID {
		return nil, ErrOwnership
	}
	return entry, nil
}

func (s *InventoryService) UpdateCollectionEntry(ctx context.Context, userID, id uuid.UUID, req *UpdateCollectionEntryRequest) (*models.CollectionEntry, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if err := checkPrices(req.Percentage, req.FixedPrice); err != nil {
		return nil, err
	}
	entry, err := s.ownedCollectionEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		entry.Quantity = *req.Quantity
	}
	if req.Condition != "" {
		entry.Condition = req.Condition
	}
	if req.IsFoil != nil {
		entry.IsFoil = *req.IsFoil
	}
	if req.IsPaused != nil {
		entry.IsPaused = *req.IsPaused
	}
	if req.PricingMode != "" {
		entry.PricingMode = req.PricingMode
	}
	if req.Percentage != nil || req.FixedPrice != nil || req.PricingMode != "" {
		applyPricing(entry, req.Percentage, req.FixedPrice, s.defaultPercentage(ctx, userID))
	}

	if err := s.store.UpdateCollectionEntry(ctx, entry); err != nil {
		return nil, upstream("update collection entry", err)
	}
	s.changed(ctx, userID, ReasonCollectionChanged)
	return entry, nil
}

// SetPaused hides or re-offers an entry without touching anything else.
func (s *InventoryService) SetPaused(ctx context.Context, userID, id uuid.UUID, paused bool) (*models.CollectionEntry, error) {
	return s.UpdateCollectionEntry(ctx, userID, id, &UpdateCollectionEntryRequest{IsPaused: &paused})
}

func (s *InventoryService) DeleteCollectionEntry(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.ownedCollectionEntry(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteCollectionEntry(ctx, id); err != nil {
		return upstream("delete collection entry", err)
	}
	s.changed(ctx, userID, ReasonCollectionChanged)
	return nil
}

// ApplyDiscount sets the user's default percentage and rewrites every entry
// that has not been priced individually.
func (s *InventoryService) ApplyDiscount(ctx context.Context, userID uuid.UUID, req *DiscountRequest) (*DiscountResult, error) {
	pct := req.Percentage.Round(2)
	if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(1000)) {
		return nil, validationError(errors.New("percentage must be between 0 and 1000"))
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, upstream("load user", err)
	}
	if user == nil {
		user = &models.User{BaseModel: models.BaseModel{ID: userID}, Username: userID.String()}
	}
	user.DefaultPercentage = pct
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, upstream("save user", err)
	}

	updated, err := s.store.ApplyDefaultPercentage(ctx, userID, pct)
	if err != nil {
		return nil, upstream("apply discount", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"percentage": pct.String(),
		"updated":    updated,
	}).Info("Global discount applied")

	s.changed(ctx, userID, ReasonDiscountApplied)
	return &DiscountResult{Percentage: pct, Updated: updated}, nil
}

func (s *InventoryService) ListWishlist(ctx context.Context, userID uuid.UUID) ([]*models.WishlistEntry, error) {
	entries, err := s.store.ListWishlist(ctx, userID)
	if err != nil {
		return nil, upstream("list wishlist", err)
	}
	return entries, nil
}

func (s *InventoryService) AddWishlistEntry(ctx context.Context, userID uuid.UUID, req *WishlistEntryRequest) (*models.WishlistEntry, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if req.MaxPrice != nil && req.MaxPrice.IsNegative() {
		return nil, validationError(errors.New("max_price must not be negative"))
	}
	entry := &models.WishlistEntry{UserID: userID}
	fillWishlist(entry, req)
	if err := s.store.CreateWishlistEntry(ctx, entry); err != nil {
		return nil, upstream("create wishlist entry", err)
	}
	s.changed(ctx, userID, ReasonWishlistChanged)
	return entry, nil
}

func (s *InventoryService) UpdateWishlistEntry(ctx context.Context, userID, id uuid.UUID, req *WishlistEntryRequest) (*models.WishlistEntry, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if req.MaxPrice != nil && req.MaxPrice.IsNegative() {
		return nil, validationError(errors.New("max_price must not be negative"))
	}
	entry, err := s.ownedWishlistEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	fillWishlist(entry, req)
	if err := s.store.UpdateWishlistEntry(ctx, entry); err != nil {
		return nil, upstream("update wishlist entry", err)
	}
	s.changed(ctx, userID, ReasonWishlistChanged)
	return entry, nil
}

func fillWishlist(entry *models.WishlistEntry, req *WishlistEntryRequest) {
	entry.OracleID = req.OracleID
	entry.Quantity = req.Quantity
	entry.MaxPrice = decimal.NullDecimal{}
	if req.MaxPrice != nil {
		entry.MaxPrice = decimal.NewNullDecimal(req.MaxPrice.Round(2))
	}
	entry.MinCondition = req.MinCondition
	if entry.MinCondition == "" {
		entry.MinCondition = models.ConditionDMG
	}
	entry.FoilPreference = req.FoilPreference
	if entry.FoilPreference == "" {
		entry.FoilPreference = models.FoilAny
	}
	entry.EditionPreference = req.EditionPreference
	if entry.EditionPreference == "" {
		entry.EditionPreference = models.EditionAny
	}
	entry.PrintingIDs = pq.StringArray(req.PrintingIDs)
	entry.Priority = req.Priority
	if entry.Priority == 0 {
		entry.Priority = 5
	}
}

func (s *InventoryService) ownedWishlistEntry(ctx context.Context, userID, id uuid.UUID) (*models.WishlistEntry, error) {
	entry, err := s.store.GetWishlistEntry(ctx, id)
	if err != nil {
		return nil, upstream("load wishlist entry", err)
	}
	if entry.UserID != userID {
		return nil, ErrOwnership
	}
	return entry, nil
}

func (s *InventoryService) DeleteWishlistEntry(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.ownedWishlistEntry(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteWishlistEntry(ctx, id); err != nil {
		return upstream("delete wishlist entry", err)
	}
	s.changed(ctx, userID, ReasonWishlistChanged)
	return nil
}

func (s *InventoryService) GetLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	loc, err := s.store.GetActiveLocation(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoLocation
		}
		return nil, upstream("load location", err)
	}
	return loc, nil
}

// SetLocation replaces the user's active location.
func (s *InventoryService) SetLocation(ctx context.Context, userID uuid.UUID, req *LocationRequest) (*models.Location, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	radius := req.RadiusKm
	if radius == 0 {
		radius = s.defaultRadiusKm
	}
	loc := &models.Location{
		UserID:    userID,
		Label:     req.Label,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  radius,
		IsActive:  true,
	}
	if err := s.store.SetActiveLocation(ctx, loc); err != nil {
		return nil, upstream("save location", err)
	}
	s.changed(ctx, userID, ReasonLocationChanged)
	return loc, nil
}
