// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Base model with common fields. Rows are hard-deleted: settlement and
// recompute rely on deleted rows being gone, not hidden.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type Condition string

const (
	ConditionNM  Condition = "NM"
	ConditionLP  Condition = "LP"
	ConditionMP  Condition = "MP"
	ConditionHP  Condition = "HP"
	ConditionDMG Condition = "DMG"
)

// conditionRank orders conditions best (0) to worst.
var conditionRank = map[Condition]int{
	ConditionNM:  0,
	ConditionLP:  1,
	ConditionMP:  2,
	ConditionHP:  3,
	ConditionDMG: 4,
}

// Rank returns the position of c in the NM..DMG ordering, or -1 when c is unknown.
func (c Condition) Rank() int {
	if r, ok := conditionRank[c]; ok {
		return r
	}
	return -1
}

func (c Condition) Valid() bool {
	return c.Rank() >= 0
}

type FoilPreference string

const (
	FoilAny     FoilPreference = "any"
	FoilOnly    FoilPreference = "foil_only"
	FoilNonFoil FoilPreference = "non_foil"
)

type EditionPreference string

const (
	EditionAny      EditionPreference = "any"
	EditionSpecific EditionPreference = "specific"
)

type PricingMode string

const (
	PricingModePercentage PricingMode = "percentage"
	PricingModeFixed      PricingMode = "fixed"
)

type MatchType string

const (
	MatchTypeTwoWay     MatchType = "two_way"
	MatchTypeOneWayBuy  MatchType = "one_way_buy"
	MatchTypeOneWaySell MatchType = "one_way_sell"
)

// Mirror swaps the buy/sell orientation; two_way is symmetric.
func (t MatchType) Mirror() MatchType {
	switch t {
	case MatchTypeOneWayBuy:
		return MatchTypeOneWaySell
	case MatchTypeOneWaySell:
		return MatchTypeOneWayBuy
	default:
		return t
	}
}

type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusContacted MatchStatus = "contacted"
	MatchStatusDismissed MatchStatus = "dismissed"
	MatchStatusRequested MatchStatus = "requested"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// AllMatchStatuses is the order used for category counts.
var AllMatchStatuses = []MatchStatus{
	MatchStatusActive,
	MatchStatusContacted,
	MatchStatusDismissed,
	MatchStatusRequested,
	MatchStatusConfirmed,
	MatchStatusCompleted,
	MatchStatusCancelled,
}

func (s MatchStatus) IsFinal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// IsOpen reports the lateral states from which a trade can be requested or edited freely.
func (s MatchStatus) IsOpen() bool {
	return s == MatchStatusActive || s == MatchStatusContacted || s == MatchStatusDismissed
}

type Direction string

const (
	DirectionAWants Direction = "a_wants"
	DirectionBWants Direction = "b_wants"
)

type NotificationType string

const (
	NotificationTradeRequested     NotificationType = "trade_requested"
	NotificationRequestWithdrawn   NotificationType = "request_withdrawn"
	NotificationRequestRejected    NotificationType = "request_rejected"
	NotificationRequestInvalidated NotificationType = "request_invalidated"
	NotificationTradeConfirmed     NotificationType = "trade_confirmed"
	NotificationCompletionReported NotificationType = "completion_reported"
	NotificationTradeCompleted     NotificationType = "trade_completed"
	NotificationTradeCancelled     NotificationType = "trade_cancelled"
	NotificationCustomCardAdded    NotificationType = "custom_card_added"
)

type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusDone    EventStatus = "done"
	EventStatusFailed  EventStatus = "failed"
)
