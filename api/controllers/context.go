package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/api/middleware"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

func accountIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AccountIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing")
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid account context")
	}
	return accountID, nil
}
