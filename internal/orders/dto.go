package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	"github.com/exrstore/exr-backend/pkg/types"
)

// CartLine is one requested purchase line. Quantity is client input; price
// never is.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// CreateOrderInput carries everything a checkout needs.
type CreateOrderInput struct {
	Items         []CartLine          `json:"items" validate:"required,min=1,dive"`
	Shipping      *types.ShippingInfo `json:"shipping"`
	CouponCode    string              `json:"coupon_code"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
}

// OrderFilters describe the inputs supported by the admin order list.
type OrderFilters struct {
	OrderStatus   *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	RefundStatus  *enums.RefundStatus
	AccountID     *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
