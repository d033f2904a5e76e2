package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntry records an auditable account-level event (refund decisions,
// admin credits). Append-only.
type ActivityEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	Action    string    `gorm:"column:action;not null"`
	Details   string    `gorm:"column:details;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
