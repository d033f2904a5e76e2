package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/api/responses"
	"github.com/exrstore/exr-backend/api/validators"
	walletsvc "github.com/exrstore/exr-backend/internal/wallet"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/logger"
)

type walletCreditRequest struct {
	AmountCents int    `json:"amount_cents" validate:"required,min=1"`
	Note        string `json:"note" validate:"omitempty,max=280"`
}

// AdminCreditWallet tops up an account's wallet and records the audit entry.
func AdminCreditWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		adminID, err := accountIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawAccountID := strings.TrimSpace(chi.URLParam(r, "accountId"))
		if rawAccountID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "account id is required"))
			return
		}
		accountID, err := uuid.Parse(rawAccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		var payload walletCreditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.AdminCredit(r.Context(), adminID, accountID, payload.AmountCents, validators.SanitizeString(payload.Note, 280))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTransactionResponse(txn))
	}
}
