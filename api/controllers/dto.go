package controllers

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/exrstore/exr-backend/internal/orders"
	"github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/types"
)

type orderResponse struct {
	OrderID       uuid.UUID             `json:"order_id"`
	AccountID     *uuid.UUID            `json:"account_id,omitempty"`
	Items         []orderItemResponse   `json:"items"`
	Shipping      *types.ShippingInfo   `json:"shipping,omitempty"`
	SubtotalCents int                   `json:"subtotal_cents"`
	DiscountCents int                   `json:"discount_cents"`
	TotalCents    int                   `json:"total_cents"`
	Coupon        *types.CouponSnapshot `json:"coupon,omitempty"`
	PaymentMethod string                `json:"payment_method"`
	PaymentStatus string                `json:"payment_status"`
	OrderStatus   string                `json:"order_status"`
	Refund        *refundResponse       `json:"refund,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
}

type refundResponse struct {
	Status       string                `json:"status"`
	Reason       string                `json:"reason,omitempty"`
	RejectReason string                `json:"reject_reason,omitempty"`
	AmountCents  int                   `json:"amount_cents,omitempty"`
	RequestedAt  *time.Time            `json:"requested_at,omitempty"`
	RejectedAt   *time.Time            `json:"rejected_at,omitempty"`
	RefundedAt   *time.Time            `json:"refunded_at,omitempty"`
	Timeline     []refundTimelineEntry `json:"timeline,omitempty"`
}

type refundTimelineEntry struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type walletStatementResponse struct {
	AccountID    uuid.UUID                   `json:"account_id"`
	BalanceCents int                         `json:"balance_cents"`
	Transactions []walletTransactionResponse `json:"transactions"`
	NextCursor   string                      `json:"next_cursor,omitempty"`
}

type walletTransactionResponse struct {
	TransactionID  uuid.UUID  `json:"transaction_id"`
	Type           string     `json:"type"`
	AmountCents    int        `json:"amount_cents"`
	RelatedOrderID *uuid.UUID `json:"related_order_id,omitempty"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
		})
	}
	resp := orderResponse{
		OrderID:       order.ID,
		AccountID:     order.AccountID,
		Items:         items,
		Shipping:      order.Shipping,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TotalCents:    order.TotalCents,
		Coupon:        order.Coupon,
		PaymentMethod: string(order.PaymentMethod),
		PaymentStatus: string(order.PaymentStatus),
		OrderStatus:   string(order.OrderStatus),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if order.RefundRequested || len(order.RefundTimeline) > 0 {
		refund := &refundResponse{
			Status:      string(order.RefundStatus),
			AmountCents: order.RefundAmountCents,
			RequestedAt: order.RefundRequestedAt,
			RejectedAt:  order.RefundRejectedAt,
			RefundedAt:  order.RefundedAt,
		}
		if order.RefundReason != nil {
			refund.Reason = string(*order.RefundReason)
		}
		if order.RefundRejectReason != nil {
			refund.RejectReason = *order.RefundRejectReason
		}
		for _, entry := range order.RefundTimeline {
			refund.Timeline = append(refund.Timeline, refundTimelineEntry{
				Status:    entry.Status,
				Note:      entry.Note,
				CreatedAt: entry.CreatedAt,
			})
		}
		resp.Refund = refund
	}
	return resp
}

func newOrderListResponse(list *internalorders.OrderList) orderListResponse {
	if list == nil {
		return orderListResponse{}
	}
	orders := make([]orderResponse, 0, len(list.Orders))
	for i := range list.Orders {
		orders = append(orders, newOrderResponse(&list.Orders[i]))
	}
	return orderListResponse{Orders: orders, NextCursor: list.NextCursor}
}

func newWalletStatementResponse(statement *wallet.Statement) walletStatementResponse {
	if statement == nil {
		return walletStatementResponse{}
	}
	txns := make([]walletTransactionResponse, 0, len(statement.Transactions))
	for _, txn := range statement.Transactions {
		txns = append(txns, newWalletTransactionResponse(&txn))
	}
	return walletStatementResponse{
		AccountID:    statement.AccountID,
		BalanceCents: statement.BalanceCents,
		Transactions: txns,
		NextCursor:   statement.NextCursor,
	}
}

func newWalletTransactionResponse(txn *models.WalletTransaction) walletTransactionResponse {
	if txn == nil {
		return walletTransactionResponse{}
	}
	return walletTransactionResponse{
		TransactionID:  txn.ID,
		Type:           string(txn.Type),
		AmountCents:    txn.AmountCents,
		RelatedOrderID: txn.RelatedOrderID,
		Note:           txn.Note,
		CreatedAt:      txn.CreatedAt,
	}
}
