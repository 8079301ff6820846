// internal/models/user.go
package models

import (
	"github.com/shopspring/decimal"
)

// User is the local profile of an account managed by the auth service.
type User struct {
	BaseModel
	Username    string `json:"username" gorm:"uniqueIndex;size:50;not null"`
	DisplayName string `json:"display_name" gorm:"size:100"`
	Email       string `json:"email" gorm:"size:255"`
	// DefaultPercentage is the user's global discount applied to non-override collection entries.
	DefaultPercentage decimal.Decimal `json:"default_percentage" gorm:"type:decimal(6,2);default:100"`
	PushEnabled       bool            `json:"push_enabled" gorm:"default:true"`
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
