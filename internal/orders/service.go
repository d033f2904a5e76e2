package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/internal/coupons"
	"github.com/exrstore/exr-backend/internal/inventory"
	"github.com/exrstore/exr-backend/internal/settings"
	"github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/metrics"
	"github.com/exrstore/exr-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
	Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error) {
	return inventory.Reserve(ctx, tx, requests)
}

func (reservationEngine) Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error {
	return inventory.Release(ctx, tx, requests)
}

// Service executes checkout orchestration and order lifecycle updates.
type Service interface {
	Create(ctx context.Context, accountID uuid.UUID, input CreateOrderInput) (*models.Order, error)
	GetForAccount(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AdminList(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	settings    settings.Service
	coupons     coupons.Service
	wallet      wallet.Service
	reservation reservationRunner
	metrics     *metrics.CommerceMetrics
	now         func() time.Time
}

// NewService builds the orders service.
func NewService(
	tx txRunner,
	repo Repository,
	settingsSvc settings.Service,
	couponsSvc coupons.Service,
	walletSvc wallet.Service,
	commerceMetrics *metrics.CommerceMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if couponsSvc == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		settings:    settingsSvc,
		coupons:     couponsSvc,
		wallet:      walletSvc,
		reservation: reservationEngine{},
		metrics:     commerceMetrics,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, accountID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	started := s.now()

	if err := s.settings.RequireOpen(ctx); err != nil {
		s.metrics.IncCheckoutFailure("maintenance")
		return nil, err
	}
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order contains no items")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}
	if input.Shipping == nil || input.Shipping.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping information required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		requests := make([]inventory.ReservationRequest, len(input.Items))
		for i, line := range input.Items {
			requests[i] = inventory.ReservationRequest{ProductID: line.ProductID, Qty: line.Qty}
		}
		reserved, err := s.reservation.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}

		subtotal := 0
		items := make([]models.OrderItem, len(reserved))
		for i, res := range reserved {
			subtotal += res.UnitPriceCents * res.Qty
			items[i] = models.OrderItem{
				ProductID:      res.ProductID,
				Title:          res.Title,
				UnitPriceCents: res.UnitPriceCents,
				Qty:            res.Qty,
			}
		}

		order := &models.Order{
			AccountID:     &accountID,
			Shipping:      input.Shipping,
			SubtotalCents: subtotal,
			TotalCents:    subtotal,
			PaymentMethod: input.PaymentMethod,
			PaymentStatus: enums.PaymentStatusPending,
			OrderStatus:   enums.OrderStatusPending,
		}

		if input.CouponCode != "" {
			snapshot, err := s.coupons.Apply(ctx, tx, input.CouponCode, subtotal)
			if err != nil {
				return err
			}
			order.Coupon = snapshot
			order.DiscountCents = snapshot.DiscountCents
			order.TotalCents = subtotal - snapshot.DiscountCents
		}

		var walletTxn *models.WalletTransaction
		if input.PaymentMethod == enums.PaymentMethodWallet {
			walletTxn, err = s.wallet.Debit(ctx, tx, accountID, order.TotalCents, "order payment")
			if err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusPaid
			order.OrderStatus = enums.OrderStatusPaid
		}

		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
		}
		order.Items = items
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, order.Items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order items")
		}

		// Two-phase linkage: the debit row exists before the order id does.
		if walletTxn != nil {
			if err := s.wallet.AttachOrder(ctx, tx, walletTxn.ID, order.ID); err != nil {
				return err
			}
		}

		created = order
		return nil
	})
	if err != nil {
		s.metrics.IncCheckoutFailure(failureReason(err))
		return nil, err
	}

	s.metrics.IncOrderCreated(created.PaymentMethod.String())
	s.metrics.ObserveCheckoutDuration(created.PaymentMethod.String(), s.now().Sub(started))
	return created, nil
}

func (s *service) GetForAccount(ctx context.Context, accountID, orderID uuid.UUID) (*models.Order, error) {
	if accountID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id and order id required")
	}
	order, err := s.repo.FindByIDForAccount(ctx, orderID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	orders, next, err := s.repo.ListByAccount(ctx, accountID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return &OrderList{Orders: orders, NextCursor: next}, nil
}

func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) AdminList(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error) {
	orders, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return &OrderList{Orders: orders, NextCursor: next}, nil
}

// statusTransitions lists the admin-reachable lifecycle moves. Refunded is
// owned by the refunds flow and never set here.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPaid, enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:      {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusCancelled: {},
	enums.OrderStatusRefunded:  {},
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() || status == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		if !transitionAllowed(order.OrderStatus, status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": order.OrderStatus, "to": status})
		}

		// The guarded UPDATE keeps a concurrent transition from applying the
		// cancel restock (or COD settle) twice.
		moved, err := repo.TransitionOrderStatus(ctx, orderID, order.OrderStatus, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
				WithDetails(map[string]any{"from": order.OrderStatus, "to": status})
		}

		// Cancelling an unshipped order puts the units back on the shelf.
		if status == enums.OrderStatusCancelled {
			requests := make([]inventory.ReservationRequest, len(order.Items))
			for i, item := range order.Items {
				requests[i] = inventory.ReservationRequest{ProductID: item.ProductID, Qty: item.Qty}
			}
			if err := s.reservation.Release(ctx, tx, requests); err != nil {
				return err
			}
		}

		// Delivered cash-on-delivery orders settle on handoff.
		if status == enums.OrderStatusDelivered && order.PaymentMethod == enums.PaymentMethodCOD {
			err := tx.WithContext(ctx).
				Model(&models.Order{}).
				Where("id = ?", orderID).
				Update("payment_status", enums.PaymentStatusPaid).Error
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling cod payment")
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
	return updated, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeMaintenance:
		return "maintenance"
	case pkgerrors.CodeConflict:
		return "conflict"
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeNotFound:
		return "not_found"
	default:
		return "internal"
	}
}
