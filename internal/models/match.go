// internal/models/match.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Match pairs two users. UserAID is always the lower identity so a pair maps to one row.
type Match struct {
	BaseModel
	UserAID          uuid.UUID       `json:"user_a_id" gorm:"type:uuid;not null;uniqueIndex:idx_matches_pair"`
	UserBID          uuid.UUID       `json:"user_b_id" gorm:"type:uuid;not null;uniqueIndex:idx_matches_pair;index"`
	MatchType        MatchType       `json:"match_type" gorm:"type:varchar(16);not null"`
	DistanceKm       float64         `json:"distance_km"`
	CardsAWants      int             `json:"cards_a_wants"`
	CardsBWants      int             `json:"cards_b_wants"`
	ValueAWants      decimal.Decimal `json:"value_a_wants" gorm:"type:decimal(12,2);not null;default:0"`
	ValueBWants      decimal.Decimal `json:"value_b_wants" gorm:"type:decimal(12,2);not null;default:0"`
	Score            float64         `json:"score" gorm:"index"`
	HasPriceWarnings bool            `json:"has_price_warnings"`
	IsUserModified   bool            `json:"is_user_modified"`
	Status           MatchStatus     `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	RequestedBy      *uuid.UUID      `json:"requested_by" gorm:"type:uuid"`
	RequestedAt      *time.Time      `json:"requested_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	EscrowExpiresAt  *time.Time      `json:"escrow_expires_at"`
	UserACompleted   *bool           `json:"user_a_completed"`
	UserBCompleted   *bool           `json:"user_b_completed"`
	HasConflict      bool            `json:"has_conflict"`

	Lines []MatchCardLine `json:"lines,omitempty" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// IsUserA reports whether userID sits on the canonical A side.
func (m *Match) IsUserA(userID uuid.UUID) bool {
	return m.UserAID == userID
}

// Counterpart returns the other participant. The caller must be a participant.
func (m *Match) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// ReceiveDirection is the line direction under which userID receives cards.
func (m *Match) ReceiveDirection(userID uuid.UUID) Direction {
	if m.UserAID == userID {
		return DirectionAWants
	}
	return DirectionBWants
}

// IsPreserved reports whether a global recompute must leave this match alone.
func (m *Match) IsPreserved() bool {
	if m.IsUserModified {
		return true
	}
	switch m.Status {
	case MatchStatusRequested, MatchStatusConfirmed, MatchStatusCompleted, MatchStatusCancelled:
		return true
	}
	return false
}

func (m *Match) ClearRequest() {
	m.RequestedBy = nil
	m.RequestedAt = nil
}

// SetCompletion records one participant's report.
func (m *Match) SetCompletion(userID uuid.UUID, completed bool) {
	v := completed
	if m.UserAID == userID {
		m.UserACompleted = &v
	} else {
		m.UserBCompleted = &v
	}
}

func (m *Match) IsEscrowExpired(now time.Time) bool {
	return m.Status == MatchStatusConfirmed && m.EscrowExpiresAt != nil && now.After(*m.EscrowExpiresAt)
}

// DisplayScore is the 0-10 score shown to users.
func (m *Match) DisplayScore() float64 {
	return m.Score / 10
}

// MatchCardLine is one card in a proposed trade.
type MatchCardLine struct {
	BaseModel
	MatchID           uuid.UUID  `json:"match_id" gorm:"type:uuid;not null;index"`
	Direction         Direction  `json:"direction" gorm:"type:varchar(8);not null"`
	WishlistEntryID   *uuid.UUID `json:"wishlist_entry_id" gorm:"type:uuid;index"`
	CollectionEntryID *uuid.UUID `json:"collection_entry_id" gorm:"type:uuid;index"`
	CardSnapshot      `gorm:"embedded"`
	AskingPrice       decimal.NullDecimal `json:"asking_price" gorm:"type:decimal(10,2)"`
	MaxPrice          decimal.NullDecimal `json:"max_price" gorm:"type:decimal(10,2)"`
	PriceExceedsMax   bool                `json:"price_exceeds_max"`
	Condition         Condition           `json:"condition" gorm:"type:varchar(3)"`
	IsFoil            bool                `json:"is_foil"`
	QuantityAvailable int                 `json:"quantity_available"`
	QuantityWanted    int                 `json:"quantity_wanted"`
	IsExcluded        bool                `json:"is_excluded" gorm:"default:false"`
	IsCustom          bool                `json:"is_custom" gorm:"default:false"`
	AddedByUserID     *uuid.UUID          `json:"added_by_user_id" gorm:"type:uuid"`
}

// TradedQuantity is the number of copies that change hands for this line.
func (l *MatchCardLine) TradedQuantity() int {
	if l.QuantityAvailable < l.QuantityWanted {
		return l.QuantityAvailable
	}
	return l.QuantityWanted
}
