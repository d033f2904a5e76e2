package controllers

import (
	"net/http"

	"github.com/exrstore/exr-backend/api/responses"
	"github.com/exrstore/exr-backend/api/validators"
	couponsvc "github.com/exrstore/exr-backend/internal/coupons"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/logger"
)

type couponQuoteRequest struct {
	Code          string `json:"code" validate:"required,min=1,max=64"`
	SubtotalCents int    `json:"subtotal_cents" validate:"required,min=1"`
}

type couponQuoteResponse struct {
	Code          string `json:"code"`
	Type          string `json:"type"`
	Value         int    `json:"value"`
	DiscountCents int    `json:"discount_cents"`
}

// ApplyCoupon quotes a discount without consuming a use. The authoritative
// consumption happens inside checkout.
func ApplyCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var payload couponQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Quote(r.Context(), payload.Code, payload.SubtotalCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, couponQuoteResponse{
			Code:          snapshot.Code,
			Type:          string(snapshot.Type),
			Value:         snapshot.Value,
			DiscountCents: snapshot.DiscountCents,
		})
	}
}
