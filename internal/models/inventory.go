// internal/models/inventory.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CollectionEntry is one stack of identical cards a user owns.
type CollectionEntry struct {
	BaseModel
	UserID      uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;index"`
	PrintingID  string              `json:"printing_id" gorm:"size:64;not null;index"`
	Quantity    int                 `json:"quantity" gorm:"not null"`
	Condition   Condition           `json:"condition" gorm:"type:varchar(3);not null;default:'NM'"`
	IsFoil      bool                `json:"is_foil" gorm:"default:false"`
	PricingMode PricingMode         `json:"pricing_mode" gorm:"type:varchar(12);not null;default:'percentage'"`
	Percentage  decimal.Decimal     `json:"percentage" gorm:"type:decimal(6,2);not null;default:100"`
	FixedPrice  decimal.NullDecimal `json:"fixed_price" gorm:"type:decimal(10,2)"`
	IsPaused    bool                `json:"is_paused" gorm:"default:false;index"`
	// IsOverride marks a price that intentionally differs from the user's global default.
	IsOverride bool `json:"is_override" gorm:"default:false"`

	Card *CardCatalogEntry `json:"card,omitempty" gorm:"-"`
}

// WishlistEntry is one sought card, identified by oracle id so any printing can match.
type WishlistEntry struct {
	BaseModel
	UserID            uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;index"`
	OracleID          string              `json:"oracle_id" gorm:"size:64;not null;index"`
	Quantity          int                 `json:"quantity" gorm:"not null;default:1"`
	MaxPrice          decimal.NullDecimal `json:"max_price" gorm:"type:decimal(10,2)"`
	MinCondition      Condition           `json:"min_condition" gorm:"type:varchar(3);not null;default:'DMG'"`
	FoilPreference    FoilPreference      `json:"foil_preference" gorm:"type:varchar(10);not null;default:'any'"`
	EditionPreference EditionPreference   `json:"edition_preference" gorm:"type:varchar(10);not null;default:'any'"`
	PrintingIDs       pq.StringArray      `json:"printing_ids" gorm:"type:text[]"`
	Priority          int                 `json:"priority" gorm:"default:5"`
}

// Location is a user's geo-point. Only the active one takes part in matching.
type Location struct {
	BaseModel
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Label     string    `json:"label" gorm:"size:100"`
	Latitude  float64   `json:"latitude" gorm:"not null"`
	Longitude float64   `json:"longitude" gorm:"not null"`
	RadiusKm  float64   `json:"radius_km" gorm:"not null;default:25"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
}
