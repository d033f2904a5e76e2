package models

import "time"

// StoreSettings is the storefront singleton row (id pinned to 1).
type StoreSettings struct {
	ID              int       `gorm:"column:id;primaryKey"`
	MaintenanceMode bool      `gorm:"column:maintenance_mode;not null;default:false"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
