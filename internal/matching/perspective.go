// internal/matching/perspective.go
package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardswap/cardswap-backend/internal/models"
)

// MatchView is a match as one participant sees it: "I" is always the viewer.
type MatchView struct {
	ID               uuid.UUID          `json:"id"`
	CounterpartID    uuid.UUID          `json:"counterpart_id"`
	MatchType        models.MatchType   `json:"match_type"`
	DistanceKm       float64            `json:"distance_km"`
	CardsIWant       int                `json:"cards_i_want"`
	CardsTheyWant    int                `json:"cards_they_want"`
	ValueIWant       decimal.Decimal    `json:"value_i_want"`
	ValueTheyWant    decimal.Decimal    `json:"value_they_want"`
	Score            float64            `json:"score"`
	DisplayScore     float64            `json:"display_score"`
	HasPriceWarnings bool               `json:"has_price_warnings"`
	IsUserModified   bool               `json:"is_user_modified"`
	Status           models.MatchStatus `json:"status"`
	RequestedByMe    bool               `json:"requested_by_me"`
	RequestedAt      *time.Time         `json:"requested_at,omitempty"`
	ConfirmedAt      *time.Time         `json:"confirmed_at,omitempty"`
	EscrowExpiresAt  *time.Time         `json:"escrow_expires_at,omitempty"`
	MyCompletion     *bool              `json:"my_completion"`
	TheirCompletion  *bool              `json:"their_completion"`
	HasConflict      bool               `json:"has_conflict"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	CardsIReceive []LineView `json:"cards_i_receive,omitempty"`
	CardsIGive    []LineView `json:"cards_i_give,omitempty"`
}

type LineView struct {
	ID uuid.UUID `json:"id"`
	models.CardSnapshot
	AskingPrice       decimal.NullDecimal `json:"asking_price"`
	MaxPrice          decimal.NullDecimal `json:"max_price"`
	PriceExceedsMax   bool                `json:"price_exceeds_max"`
	Condition         models.Condition    `json:"condition"`
	IsFoil            bool                `json:"is_foil"`
	QuantityAvailable int                 `json:"quantity_available"`
	QuantityWanted    int                 `json:"quantity_wanted"`
	IsExcluded        bool                `json:"is_excluded"`
	IsCustom          bool                `json:"is_custom"`
	AddedByMe         bool                `json:"added_by_me"`
}

// ToPerspective projects a canonical match onto viewer. It has no side effects
// and does not check participation.
func ToPerspective(m *models.Match, viewer uuid.UUID) MatchView {
	v := MatchView{
		ID:               m.ID,
		CounterpartID:    m.Counterpart(viewer),
		MatchType:        m.MatchType,
		DistanceKm:       m.DistanceKm,
		CardsIWant:       m.CardsAWants,
		CardsTheyWant:    m.CardsBWants,
		ValueIWant:       m.ValueAWants,
		ValueTheyWant:    m.ValueBWants,
		Score:            m.Score,
		DisplayScore:     m.DisplayScore(),
		HasPriceWarnings: m.HasPriceWarnings,
		IsUserModified:   m.IsUserModified,
		Status:           m.Status,
		RequestedByMe:    m.RequestedBy != nil && *m.RequestedBy == viewer,
		RequestedAt:      m.RequestedAt,
		ConfirmedAt:      m.ConfirmedAt,
		EscrowExpiresAt:  m.EscrowExpiresAt,
		MyCompletion:     m.UserACompleted,
		TheirCompletion:  m.UserBCompleted,
		HasConflict:      m.HasConflict,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	if !m.IsUserA(viewer) {
		v.MatchType = m.MatchType.Mirror()
		v.CardsIWant, v.CardsTheyWant = m.CardsBWants, m.CardsAWants
		v.ValueIWant, v.ValueTheyWant = m.ValueBWants, m.ValueAWants
		v.MyCompletion, v.TheirCompletion = m.UserBCompleted, m.UserACompleted
	}

	receive := m.ReceiveDirection(viewer)
	for i := range m.Lines {
		l := &m.Lines[i]
		lv := LineView{
			ID:                l.ID,
			CardSnapshot:      l.CardSnapshot,
			AskingPrice:       l.AskingPrice,
			MaxPrice:          l.MaxPrice,
			PriceExceedsMax:   l.PriceExceedsMax,
			Condition:         l.Condition,
			IsFoil:            l.IsFoil,
			QuantityAvailable: l.QuantityAvailable,
			QuantityWanted:    l.QuantityWanted,
			IsExcluded:        l.IsExcluded,
			IsCustom:          l.IsCustom,
			AddedByMe:         l.AddedByUserID != nil && *l.AddedByUserID == viewer,
		}
		if l.Direction == receive {
			v.CardsIReceive = append(v.CardsIReceive, lv)
		} else {
			v.CardsIGive = append(v.CardsIGive, lv)
		}
	}

	return v
}
