package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/pkg/db/models"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

const singletonID = 1

// Service reads and updates the storefront settings row.
type Service interface {
	Get(ctx context.Context) (*models.StoreSettings, error)
	SetMaintenanceMode(ctx context.Context, enabled bool) (*models.StoreSettings, error)
	// RequireOpen returns a maintenance error when the store is closed.
	RequireOpen(ctx context.Context) error
}

type service struct {
	db *gorm.DB
}

// NewService wires the settings service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: db}, nil
}

func (s *service) Get(ctx context.Context) (*models.StoreSettings, error) {
	var settings models.StoreSettings
	err := s.db.WithContext(ctx).Where("id = ?", singletonID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Missing row means defaults: store open.
		return &models.StoreSettings{ID: singletonID}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store settings")
	}
	return &settings, nil
}

func (s *service) SetMaintenanceMode(ctx context.Context, enabled bool) (*models.StoreSettings, error) {
	settings := &models.StoreSettings{ID: singletonID, MaintenanceMode: enabled}
	err := s.db.WithContext(ctx).
		Where("id = ?", singletonID).
		Assign(map[string]any{"maintenance_mode": enabled}).
		FirstOrCreate(settings).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating store settings")
	}
	settings.MaintenanceMode = enabled
	return settings, nil
}

func (s *service) RequireOpen(ctx context.Context) error {
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if settings.MaintenanceMode {
		return pkgerrors.New(pkgerrors.CodeMaintenance, "store is under maintenance")
	}
	return nil
}
