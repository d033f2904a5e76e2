package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/pkg/enums"
)

// WalletTransaction is one immutable entry in an account's wallet ledger.
// Rows are append-only; the single allowed follow-up write is filling
// RelatedOrderID once the funded order's id has been allocated.
type WalletTransaction struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      uuid.UUID                   `gorm:"column:account_id;type:uuid;not null;index"`
	Type           enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	AmountCents    int                         `gorm:"column:amount_cents;not null"`
	RelatedOrderID *uuid.UUID                  `gorm:"column:related_order_id;type:uuid"`
	Note           string                      `gorm:"column:note;not null;default:''"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
