package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/pkg/enums"
)

// Account is a storefront user. WalletBalanceCents is never written directly;
// every change flows through the wallet ledger so the balance always equals
// the signed sum of WalletTransactions.
type Account struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string              `gorm:"column:name;not null"`
	Email              string              `gorm:"column:email;not null;uniqueIndex"`
	Role               enums.AccountRole   `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive           bool                `gorm:"column:is_active;not null;default:true"`
	WalletBalanceCents int                 `gorm:"column:wallet_balance_cents;not null;default:0"`
	WalletTransactions []WalletTransaction `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	ActivityEntries    []ActivityEntry     `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
