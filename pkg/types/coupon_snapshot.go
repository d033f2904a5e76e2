package types

import "github.com/exrstore/exr-backend/pkg/enums"

// CouponSnapshot freezes the coupon terms applied to an order at creation
// time, so later coupon edits never change what the order recorded.
type CouponSnapshot struct {
	Code          string           `json:"code"`
	Type          enums.CouponType `json:"type"`
	Value         int              `json:"value"`
	DiscountCents int              `json:"discount_cents"`
}
