package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/pkg/enums"
)

// Coupon is a discount definition. UsedCount only moves through the atomic
// increment issued inside an order transaction, so it can never exceed
// MaxUses even under concurrent checkouts.
type Coupon struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string           `gorm:"column:code;not null;uniqueIndex"`
	Type      enums.CouponType `gorm:"column:type;type:text;not null"`
	Value     int              `gorm:"column:value;not null"`
	Active    bool             `gorm:"column:active;not null;default:true"`
	ExpiresAt *time.Time       `gorm:"column:expires_at"`
	MaxUses   *int             `gorm:"column:max_uses"`
	UsedCount int              `gorm:"column:used_count;not null;default:0"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
