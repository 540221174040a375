package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon tracks usage so cancellations can hand the redemption back.
type Coupon struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string    `gorm:"column:code;type:text;not null;uniqueIndex"`
	DiscountCents int       `gorm:"column:discount_cents;not null"`
	UsedCount     int       `gorm:"column:used_count;not null;default:0"`
	MaxUses       *int      `gorm:"column:max_uses"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
