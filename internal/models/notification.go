// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	BaseModel
	UserID  uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;index"`
	ActorID *uuid.UUID       `json:"actor_id" gorm:"type:uuid"`
	Type    NotificationType `json:"type" gorm:"type:varchar(32);not null;index"`
	Title   string           `json:"title" gorm:"size:255;not null"`
	Message string           `json:"message" gorm:"type:text"`
	MatchID *uuid.UUID       `json:"match_id" gorm:"type:uuid;index"`
	Data    JSONB            `json:"data" gorm:"type:jsonb"`
	ReadAt  *time.Time       `json:"read_at"`
}

// InventoryEvent is an outbox row asking for a recompute of one user's matches.
type InventoryEvent struct {
	BaseModel
	UserID       uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	Reason       string      `json:"reason" gorm:"size:50;not null"`
	Status       EventStatus `json:"status" gorm:"type:varchar(10);not null;default:'pending';index"`
	Attempts     int         `json:"attempts" gorm:"default:0"`
	LastError    string      `json:"last_error,omitempty" gorm:"type:text"`
	ProcessAfter time.Time   `json:"process_after" gorm:"index"`
	ProcessedAt  *time.Time  `json:"processed_at"`
}
