package models

import (
	"time"

	"github.com/google/uuid"
)

// RefundTimelineItem is one entry in an order's refund audit log.
// Append-only; insertion order is significant.
type RefundTimelineItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Status    string    `gorm:"column:status;not null"`
	Note      string    `gorm:"column:note;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
