package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/types"
)

// Service validates coupons and computes discounts. Quote is a read-only
// preview; Apply additionally consumes one use inside the caller's
// transaction so the cap can never be overrun.
type Service interface {
	Quote(ctx context.Context, code string, subtotalCents int) (*types.CouponSnapshot, error)
	Apply(ctx context.Context, tx *gorm.DB, code string, subtotalCents int) (*types.CouponSnapshot, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a coupons service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Quote(ctx context.Context, code string, subtotalCents int) (*types.CouponSnapshot, error) {
	coupon, err := s.validate(ctx, s.repo, code, subtotalCents)
	if err != nil {
		return nil, err
	}
	// Read-side cap check only; the authoritative guard lives in Apply.
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return nil, exhaustedError(coupon.Code)
	}
	return snapshot(coupon, subtotalCents), nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, code string, subtotalCents int) (*types.CouponSnapshot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}

	repo := s.repo.WithTx(tx)
	coupon, err := s.validate(ctx, repo, code, subtotalCents)
	if err != nil {
		return nil, err
	}

	consumed, err := repo.IncrementUsage(ctx, coupon.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consuming coupon use")
	}
	if !consumed {
		return nil, exhaustedError(coupon.Code)
	}
	return snapshot(coupon, subtotalCents), nil
}

func (s *service) validate(ctx context.Context, repo Repository, code string, subtotalCents int) (*models.Coupon, error) {
	if normalizeCode(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if subtotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}

	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidError(code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coupon")
	}
	if !coupon.Active {
		return nil, invalidError(coupon.Code)
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired").
			WithDetails(map[string]any{"code": coupon.Code})
	}
	return coupon, nil
}

func snapshot(coupon *models.Coupon, subtotalCents int) *types.CouponSnapshot {
	return &types.CouponSnapshot{
		Code:          coupon.Code,
		Type:          coupon.Type,
		Value:         coupon.Value,
		DiscountCents: Discount(coupon.Type, coupon.Value, subtotalCents),
	}
}

// Discount computes the discount in cents for the given subtotal. Percent
// discounts round half up; both kinds clamp so the discount never exceeds
// the subtotal.
func Discount(couponType enums.CouponType, value, subtotalCents int) int {
	if subtotalCents <= 0 || value <= 0 {
		return 0
	}

	var discount int
	switch couponType {
	case enums.CouponTypePercent:
		discount = (subtotalCents*value + 50) / 100
	case enums.CouponTypeFixed:
		discount = value
	default:
		return 0
	}

	if discount > subtotalCents {
		return subtotalCents
	}
	return discount
}

func invalidError(code string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code").
		WithDetails(map[string]any{"code": normalizeCode(code)})
}

func exhaustedError(code string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached").
		WithDetails(map[string]any{"code": code})
}
