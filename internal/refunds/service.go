package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/internal/accounts"
	"github.com/exrstore/exr-backend/internal/orders"
	"github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Mailer delivers refund decision notices. Implementations must be safe to
// call after the transaction has committed; failures are not rolled back.
type Mailer interface {
	SendRefundApproved(ctx context.Context, to string, order *models.Order) error
	SendRefundRejected(ctx context.Context, to string, order *models.Order, reason string) error
}

// Service owns the refund request lifecycle.
type Service interface {
	Request(ctx context.Context, accountID, orderID uuid.UUID, reason enums.RefundReason) (*models.Order, error)
	Approve(ctx context.Context, adminID, orderID uuid.UUID, note string) (*models.Order, error)
	Reject(ctx context.Context, adminID, orderID uuid.UUID, reason string) (*models.Order, error)
	Analytics(ctx context.Context) (*Analytics, error)
}

// Analytics aggregates refund activity for the back office.
type Analytics struct {
	RequestedCount       int64 `json:"requested_count"`
	ApprovedCount        int64 `json:"approved_count"`
	RejectedCount        int64 `json:"rejected_count"`
	TotalRefundedCents   int64 `json:"total_refunded_cents"`
	PendingExposureCents int64 `json:"pending_exposure_cents"`
}

type service struct {
	tx       txRunner
	db       *gorm.DB
	orders   orders.Repository
	wallet   wallet.Service
	accounts accounts.Repository
	mailer   Mailer
	metrics  *metrics.CommerceMetrics
	now      func() time.Time
}

// NewService builds the refunds service. Mailer may be nil when outbound
// email is not configured.
func NewService(
	tx txRunner,
	db *gorm.DB,
	ordersRepo orders.Repository,
	walletSvc wallet.Service,
	accountsRepo accounts.Repository,
	mailer Mailer,
	commerceMetrics *metrics.CommerceMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{
		tx:       tx,
		db:       db,
		orders:   ordersRepo,
		wallet:   walletSvc,
		accounts: accountsRepo,
		mailer:   mailer,
		metrics:  commerceMetrics,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, accountID, orderID uuid.UUID, reason enums.RefundReason) (*models.Order, error) {
	if accountID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id and order id required")
	}
	if !reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund reason").
			WithDetails(map[string]any{"reason": reason})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByIDForAccount(ctx, orderID, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		if order.RefundStatus != enums.RefundStatusNone || order.RefundRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already requested").
				WithDetails(map[string]any{"refund_status": order.RefundStatus})
		}

		requestedAt := s.now()
		fields := map[string]any{
			"refund_requested":    true,
			"refund_requested_at": requestedAt,
			"refund_reason":       reason,
			"refund_status":       enums.RefundStatusRequested,
		}
		// Guarded on refund_status so a concurrent request cannot double the
		// timeline.
		moved, err := repo.TransitionRefund(ctx, orderID, enums.RefundStatusNone, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund request")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already requested")
		}
		if err := repo.AppendTimeline(ctx, &models.RefundTimelineItem{
			OrderID: orderID,
			Status:  enums.RefundStatusRequested.String(),
			Note:    reason.String(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund timeline")
		}

		updated, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Approve(ctx context.Context, adminID, orderID uuid.UUID, note string) (*models.Order, error) {
	if adminID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id and order id required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := s.loadRequested(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.AccountID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no account to refund")
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders are refundable").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		// The guarded transition is the arbiter: if a concurrent decision got
		// there first, zero rows match and the whole tx (credit included)
		// rolls back.
		decidedAt := s.now()
		refundAmount := order.TotalCents
		fields := map[string]any{
			"refund_status":       enums.RefundStatusApproved,
			"refund_amount_cents": refundAmount,
			"refunded_at":         decidedAt,
			"refunded_by":         adminID,
			"order_status":        enums.OrderStatusRefunded,
		}
		moved, err := repo.TransitionRefund(ctx, orderID, enums.RefundStatusRequested, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund approval")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already decided")
		}

		if _, err := s.wallet.Credit(ctx, tx, *order.AccountID, refundAmount,
			enums.WalletTransactionTypeRefund, "order refund", &order.ID); err != nil {
			return err
		}
		if err := repo.AppendTimeline(ctx, &models.RefundTimelineItem{
			OrderID: orderID,
			Status:  enums.RefundStatusApproved.String(),
			Note:    note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund timeline")
		}
		entry := &models.ActivityEntry{
			AccountID: *order.AccountID,
			Action:    "refund_approved",
			Details:   fmt.Sprintf("admin %s refunded %d cents for order %s", adminID, refundAmount, orderID),
		}
		if err := s.accounts.WithTx(tx).InsertActivity(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund activity")
		}

		updated, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefundDecision("approved")
	s.notify(ctx, updated, "")
	return updated, nil
}

func (s *service) Reject(ctx context.Context, adminID, orderID uuid.UUID, reason string) (*models.Order, error) {
	if adminID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id and order id required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := s.loadRequested(ctx, repo, orderID)
		if err != nil {
			return err
		}

		fields := map[string]any{
			"refund_status":        enums.RefundStatusRejected,
			"refund_reject_reason": reason,
			"refund_rejected_at":   s.now(),
		}
		moved, err := repo.TransitionRefund(ctx, orderID, enums.RefundStatusRequested, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund rejection")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already decided")
		}
		if err := repo.AppendTimeline(ctx, &models.RefundTimelineItem{
			OrderID: orderID,
			Status:  enums.RefundStatusRejected.String(),
			Note:    reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund timeline")
		}
		if order.AccountID != nil {
			entry := &models.ActivityEntry{
				AccountID: *order.AccountID,
				Action:    "refund_rejected",
				Details:   fmt.Sprintf("admin %s rejected refund for order %s: %s", adminID, orderID, reason),
			}
			if err := s.accounts.WithTx(tx).InsertActivity(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund activity")
			}
		}

		updated, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefundDecision("rejected")
	s.notify(ctx, updated, reason)
	return updated, nil
}

func (s *service) Analytics(ctx context.Context) (*Analytics, error) {
	analytics := &Analytics{}

	type statusRow struct {
		RefundStatus string
		Count        int64
		Total        int64
		Exposure     int64
	}
	var rows []statusRow
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("refund_status, COUNT(*) AS count, SUM(refund_amount_cents) AS total, SUM(total_cents) AS exposure").
		Where("refund_status <> ?", enums.RefundStatusNone).
		Group("refund_status").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating refunds")
	}

	for _, row := range rows {
		switch enums.RefundStatus(row.RefundStatus) {
		case enums.RefundStatusRequested:
			analytics.RequestedCount = row.Count
			analytics.PendingExposureCents = row.Exposure
		case enums.RefundStatusApproved:
			analytics.ApprovedCount = row.Count
			analytics.TotalRefundedCents = row.Total
		case enums.RefundStatusRejected:
			analytics.RejectedCount = row.Count
		}
	}
	return analytics, nil
}

func (s *service) loadRequested(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.RefundStatus != enums.RefundStatusRequested {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending refund request").
			WithDetails(map[string]any{"refund_status": order.RefundStatus})
	}
	return order, nil
}

// notify sends the decision email best effort after commit. The mailer logs
// its own failures; a lost email never rolls back a refund.
func (s *service) notify(ctx context.Context, order *models.Order, rejectReason string) {
	if s.mailer == nil || order == nil || order.AccountID == nil {
		return
	}
	account, err := s.accounts.FindByID(ctx, *order.AccountID)
	if err != nil {
		return
	}
	if order.RefundStatus == enums.RefundStatusApproved {
		_ = s.mailer.SendRefundApproved(ctx, account.Email, order)
		return
	}
	_ = s.mailer.SendRefundRejected(ctx, account.Email, order, rejectReason)
}
