// internal/models/card.go
package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CardCatalogEntry is the reference data for one printing. Several rows share
// one OracleID when a card has been reprinted.
type CardCatalogEntry struct {
	PrintingID      string              `json:"printing_id" gorm:"primaryKey;size:64"`
	OracleID        string              `json:"oracle_id" gorm:"size:64;not null;index"`
	Name            string              `json:"name" gorm:"size:255;not null;index"`
	SetCode         string              `json:"set_code" gorm:"size:16;not null"`
	SetName         string              `json:"set_name" gorm:"size:255"`
	CollectorNumber string              `json:"collector_number" gorm:"size:16"`
	ImageSmall      string              `json:"image_small" gorm:"type:text"`
	ImageNormal     string              `json:"image_normal" gorm:"type:text"`
	PriceUSD        decimal.NullDecimal `json:"price_usd" gorm:"type:decimal(10,2)"`
	PriceUSDFoil    decimal.NullDecimal `json:"price_usd_foil" gorm:"type:decimal(10,2)"`
	Rarity          string              `json:"rarity" gorm:"size:20"`
	TypeLine        string              `json:"type_line" gorm:"size:255"`
	ManaCost        string              `json:"mana_cost" gorm:"size:100"`
	CMC             float64             `json:"cmc"`
	Colors          pq.StringArray      `json:"colors" gorm:"type:text[]"`
	Legalities      JSONB               `json:"legalities" gorm:"type:jsonb"`
	ReleasedAt      *time.Time          `json:"released_at" gorm:"type:date"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (CardCatalogEntry) TableName() string {
	return "card_catalog"
}

// ReferencePrice returns the foil price for foil copies, falling back to the
// non-foil price when no foil price is listed.
func (c *CardCatalogEntry) ReferencePrice(foil bool) decimal.NullDecimal {
	if foil && c.PriceUSDFoil.Valid {
		return c.PriceUSDFoil
	}
	return c.PriceUSD
}

// Snapshot copies the display fields a trade line keeps after the catalog changes.
func (c *CardCatalogEntry) Snapshot() CardSnapshot {
	return CardSnapshot{
		PrintingID:      c.PrintingID,
		OracleID:        c.OracleID,
		CardName:        c.Name,
		SetCode:         c.SetCode,
		SetName:         c.SetName,
		CollectorNumber: c.CollectorNumber,
		ImageURL:        c.ImageNormal,
	}
}

// CardSnapshot is the card as it looked when a line was created. It is never
// refreshed from the catalog so past trade terms stay stable.
type CardSnapshot struct {
	PrintingID      string `json:"printing_id" gorm:"size:64"`
	OracleID        string `json:"oracle_id" gorm:"size:64"`
	CardName        string `json:"card_name" gorm:"size:255"`
	SetCode         string `json:"set_code" gorm:"size:16"`
	SetName         string `json:"set_name" gorm:"size:255"`
	CollectorNumber string `json:"collector_number" gorm:"size:16"`
	ImageURL        string `json:"image_url" gorm:"type:text"`
}
