package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/pkg/enums"
	"github.com/exrstore/exr-backend/pkg/types"
)

// Order is the committed result of a checkout. Items, shipping, totals and
// the coupon snapshot are immutable after creation; the lifecycle fields and
// the refund sub-record are mutated only through the orders/refunds services.
type Order struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID     *uuid.UUID            `gorm:"column:account_id;type:uuid;index"`
	Items         []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping      *types.ShippingInfo   `gorm:"column:shipping;type:jsonb;serializer:json"`
	SubtotalCents int                   `gorm:"column:subtotal_cents;not null"`
	DiscountCents int                   `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int                   `gorm:"column:total_cents;not null"`
	PaymentMethod enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	OrderStatus   enums.OrderStatus     `gorm:"column:order_status;type:text;not null;default:'pending'"`
	Coupon        *types.CouponSnapshot `gorm:"column:coupon;type:jsonb;serializer:json"`

	RefundRequested    bool                 `gorm:"column:refund_requested;not null;default:false"`
	RefundRequestedAt  *time.Time           `gorm:"column:refund_requested_at"`
	RefundReason       *enums.RefundReason  `gorm:"column:refund_reason;type:text"`
	RefundStatus       enums.RefundStatus   `gorm:"column:refund_status;type:text;not null;default:'none'"`
	RefundRejectReason *string              `gorm:"column:refund_reject_reason"`
	RefundRejectedAt   *time.Time           `gorm:"column:refund_rejected_at"`
	RefundAmountCents  int                  `gorm:"column:refund_amount_cents;not null;default:0"`
	RefundedAt         *time.Time           `gorm:"column:refunded_at"`
	RefundedBy         *uuid.UUID           `gorm:"column:refunded_by;type:uuid"`
	RefundTimeline     []RefundTimelineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
