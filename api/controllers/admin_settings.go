package controllers

import (
	"net/http"

	"github.com/exrstore/exr-backend/api/responses"
	"github.com/exrstore/exr-backend/api/validators"
	settingssvc "github.com/exrstore/exr-backend/internal/settings"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/logger"
)

type settingsUpdateRequest struct {
	MaintenanceMode *bool `json:"maintenance_mode" validate:"required"`
}

type settingsResponse struct {
	MaintenanceMode bool `json:"maintenance_mode"`
}

// AdminUpdateSettings toggles store-wide switches, currently maintenance mode.
func AdminUpdateSettings(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload settingsUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetMaintenanceMode(r.Context(), *payload.MaintenanceMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, settingsResponse{MaintenanceMode: updated.MaintenanceMode})
	}
}

// AdminGetSettings returns the current store switches.
func AdminGetSettings(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		current, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, settingsResponse{MaintenanceMode: current.MaintenanceMode})
	}
}
