package models

import (
	"time"

	"gorm.io/datatypes"
)

// Customer is the per-customer profile plus the serialized conversation
// window used as LLM context.
type Customer struct {
	Phone       string         `gorm:"primaryKey" json:"phone"`
	History     datatypes.JSON `gorm:"default:'[]'" json:"-"`
	Rating      int            `gorm:"default:3" json:"rating"`
	Escalations int            `gorm:"default:0" json:"escalations"`
	BotPaused   bool           `gorm:"default:false" json:"bot_paused"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Customer model
func (Customer) TableName() string {
	return "customers"
}

// RatingLabel maps a 1-5 rating to the owner-facing segment label.
func RatingLabel(rating int) string {
	switch {
	case rating >= 5:
		return "VIP Safi ⭐⭐⭐⭐⭐"
	case rating >= 4:
		return "Mteja Mzuri ⭐⭐⭐⭐"
	case rating >= 3:
		return "Kawaida ⭐⭐⭐"
	case rating >= 2:
		return "Mgumu ⭐⭐"
	default:
		return "Hatari ⭐"
	}
}
