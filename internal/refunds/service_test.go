package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/internal/accounts"
	"github.com/exrstore/exr-backend/internal/orders"
	"github.com/exrstore/exr-backend/internal/wallet"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingMailer struct {
	approved []string
	rejected []string
}

func (m *recordingMailer) SendRefundApproved(_ context.Context, to string, _ *models.Order) error {
	m.approved = append(m.approved, to)
	return nil
}

func (m *recordingMailer) SendRefundRejected(_ context.Context, to string, _ *models.Order, _ string) error {
	m.rejected = append(m.rejected, to)
	return nil
}

type refundFixture struct {
	db      *gorm.DB
	svc     Service
	mailer  *recordingMailer
	account uuid.UUID
	admin   uuid.UUID
}

func TestRequestMarksDeliveredOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	updated, err := fx.svc.Request(ctx, fx.account, order, enums.RefundReasonDamagedItem)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if updated.RefundStatus != enums.RefundStatusRequested || !updated.RefundRequested {
		t.Fatalf("unexpected refund state: %+v", updated)
	}
	if updated.RefundRequestedAt == nil || updated.RefundReason == nil {
		t.Fatal("expected request metadata to be recorded")
	}
	if len(updated.RefundTimeline) != 1 || updated.RefundTimeline[0].Status != "requested" {
		t.Fatalf("expected timeline entry, got %+v", updated.RefundTimeline)
	}
}

func TestRequestAllowedBeforeDelivery(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusPaid, enums.RefundStatusNone)

	updated, err := fx.svc.Request(ctx, fx.account, order, enums.RefundReasonWrongItem)
	if err != nil {
		t.Fatalf("request on paid order: %v", err)
	}
	if updated.RefundStatus != enums.RefundStatusRequested {
		t.Fatalf("expected requested, got %s", updated.RefundStatus)
	}
	if updated.OrderStatus != enums.OrderStatusPaid {
		t.Fatalf("expected order status untouched, got %s", updated.OrderStatus)
	}
}

func TestRequestRejectsDuplicate(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	delivered := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)
	if _, err := fx.svc.Request(ctx, fx.account, delivered, enums.RefundReasonSizeIssue); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := fx.svc.Request(ctx, fx.account, delivered, enums.RefundReasonSizeIssue)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for duplicate request, got %v", err)
	}

	var entries []models.RefundTimelineItem
	if err := fx.db.Where("order_id = ?", delivered).Find(&entries).Error; err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected single timeline entry, got %d", len(entries))
	}
}

func TestRequestHidesOtherAccountsOrders(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	stranger := seedAccount(t, fx.db, 0)
	_, err := fx.svc.Request(ctx, stranger, order, enums.RefundReasonWrongItem)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApproveCreditsWalletAndFinalizesOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	if _, err := fx.svc.Request(ctx, fx.account, order, enums.RefundReasonDamagedItem); err != nil {
		t.Fatalf("request: %v", err)
	}

	updated, err := fx.svc.Approve(ctx, fx.admin, order, "verified damage")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.RefundStatus != enums.RefundStatusApproved {
		t.Fatalf("expected approved, got %s", updated.RefundStatus)
	}
	if updated.OrderStatus != enums.OrderStatusRefunded {
		t.Fatalf("expected order refunded, got %s", updated.OrderStatus)
	}
	if updated.RefundAmountCents != 2500 || updated.RefundedAt == nil || updated.RefundedBy == nil {
		t.Fatalf("unexpected refund record: %+v", updated)
	}

	var account models.Account
	if err := fx.db.First(&account, "id = ?", fx.account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.WalletBalanceCents != 2500 {
		t.Fatalf("expected wallet credited 2500, got %d", account.WalletBalanceCents)
	}

	var txn models.WalletTransaction
	if err := fx.db.First(&txn, "account_id = ?", fx.account).Error; err != nil {
		t.Fatalf("load wallet txn: %v", err)
	}
	if txn.Type != enums.WalletTransactionTypeRefund || txn.AmountCents != 2500 {
		t.Fatalf("unexpected ledger entry: %+v", txn)
	}
	if txn.RelatedOrderID == nil || *txn.RelatedOrderID != order {
		t.Fatalf("expected refund linked to order, got %+v", txn.RelatedOrderID)
	}

	if len(fx.mailer.approved) != 1 {
		t.Fatalf("expected one approval email, got %d", len(fx.mailer.approved))
	}

	var entries []models.ActivityEntry
	if err := fx.db.Where("account_id = ?", fx.account).Find(&entries).Error; err != nil {
		t.Fatalf("load activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "refund_approved" {
		t.Fatalf("expected refund activity entry, got %+v", entries)
	}
}

func TestApproveTwiceIsRejected(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	if _, err := fx.svc.Request(ctx, fx.account, order, enums.RefundReasonDamagedItem); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := fx.svc.Approve(ctx, fx.admin, order, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := fx.svc.Approve(ctx, fx.admin, order, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double approve, got %v", err)
	}

	// Wallet credited exactly once.
	var account models.Account
	if err := fx.db.First(&account, "id = ?", fx.account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.WalletBalanceCents != 2500 {
		t.Fatalf("expected balance 2500 after single credit, got %d", account.WalletBalanceCents)
	}
}

func TestApproveRequiresPaidOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedUnpaidOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusRequested)

	_, err := fx.svc.Approve(ctx, fx.admin, order, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unpaid order, got %v", err)
	}

	// Nothing credited for a payment that never completed.
	var account models.Account
	if err := fx.db.First(&account, "id = ?", fx.account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.WalletBalanceCents != 0 {
		t.Fatalf("expected untouched balance, got %d", account.WalletBalanceCents)
	}
	var loaded models.Order
	if err := fx.db.First(&loaded, "id = ?", order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if loaded.RefundStatus != enums.RefundStatusRequested {
		t.Fatalf("expected refund still requested, got %s", loaded.RefundStatus)
	}
}

func TestApproveWithoutRequestIsRejected(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	_, err := fx.svc.Approve(ctx, fx.admin, order, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRejectRecordsReasonWithoutCrediting(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, fx.db, fx.account, 2500, enums.OrderStatusDelivered, enums.RefundStatusNone)

	if _, err := fx.svc.Request(ctx, fx.account, order, enums.RefundReasonSizeIssue); err != nil {
		t.Fatalf("request: %v", err)
	}

	updated, err := fx.svc.Reject(ctx, fx.admin, order, "outside refund window")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if updated.RefundStatus != enums.RefundStatusRejected {
		t.Fatalf("expected rejected, got %s", updated.RefundStatus)
	}
	if updated.RefundRejectReason == nil || *updated.RefundRejectReason != "outside refund window" {
		t.Fatalf("expected reject reason recorded, got %+v", updated.RefundRejectReason)
	}
	if updated.RefundRejectedAt == nil {
		t.Fatal("expected rejection timestamp recorded")
	}
	if updated.OrderStatus != enums.OrderStatusDelivered {
		t.Fatalf("expected order status untouched, got %s", updated.OrderStatus)
	}

	var account models.Account
	if err := fx.db.First(&account, "id = ?", fx.account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.WalletBalanceCents != 0 {
		t.Fatalf("expected no credit, got %d", account.WalletBalanceCents)
	}
	if len(fx.mailer.rejected) != 1 {
		t.Fatalf("expected one rejection email, got %d", len(fx.mailer.rejected))
	}
}

func TestAnalyticsAggregatesByStatus(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	requested := seedOrder(t, fx.db, fx.account, 1000, enums.OrderStatusDelivered, enums.RefundStatusNone)
	approved := seedOrder(t, fx.db, fx.account, 2000, enums.OrderStatusDelivered, enums.RefundStatusNone)
	rejected := seedOrder(t, fx.db, fx.account, 3000, enums.OrderStatusDelivered, enums.RefundStatusNone)

	for _, id := range []uuid.UUID{requested, approved, rejected} {
		if _, err := fx.svc.Request(ctx, fx.account, id, enums.RefundReasonDamagedItem); err != nil {
			t.Fatalf("request %s: %v", id, err)
		}
	}
	if _, err := fx.svc.Approve(ctx, fx.admin, approved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fx.svc.Reject(ctx, fx.admin, rejected, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	analytics, err := fx.svc.Analytics(ctx)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.RequestedCount != 1 || analytics.ApprovedCount != 1 || analytics.RejectedCount != 1 {
		t.Fatalf("unexpected counts: %+v", analytics)
	}
	if analytics.TotalRefundedCents != 2000 {
		t.Fatalf("expected total refunded 2000, got %d", analytics.TotalRefundedCents)
	}
	if analytics.PendingExposureCents != 1000 {
		t.Fatalf("expected pending exposure 1000, got %d", analytics.PendingExposureCents)
	}
}

func newFixture(t *testing.T) *refundFixture {
	t.Helper()

	db := newTestDB(t)
	runner := gormTxRunner{db: db}

	walletSvc, err := wallet.NewService(runner, wallet.NewRepository(db), accounts.NewRepository(db))
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	mailer := &recordingMailer{}
	svc, err := NewService(runner, db, orders.NewRepository(db), walletSvc, accounts.NewRepository(db), mailer, nil)
	if err != nil {
		t.Fatalf("refunds service: %v", err)
	}

	return &refundFixture{
		db:      db,
		svc:     svc,
		mailer:  mailer,
		account: seedAccount(t, db, 0),
		admin:   uuid.New(),
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:refunds_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{`
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  wallet_balance_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  related_order_id TEXT,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS activity_entries (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  action TEXT NOT NULL,
  details TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  account_id TEXT,
  shipping TEXT,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  order_status TEXT NOT NULL DEFAULT 'pending',
  coupon TEXT,
  refund_requested INTEGER NOT NULL DEFAULT 0,
  refund_requested_at DATETIME,
  refund_reason TEXT,
  refund_status TEXT NOT NULL DEFAULT 'none',
  refund_reject_reason TEXT,
  refund_rejected_at DATETIME,
  refund_amount_cents INTEGER NOT NULL DEFAULT 0,
  refunded_at DATETIME,
  refunded_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS refund_timeline_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`}
	for _, ddl := range schema {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, balanceCents int) uuid.UUID {
	t.Helper()
	account := models.Account{
		ID:                 uuid.New(),
		Name:               "Shopper",
		Email:              uuid.NewString() + "@example.com",
		Role:               enums.AccountRoleCustomer,
		IsActive:           true,
		WalletBalanceCents: balanceCents,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account.ID
}

func seedOrder(t *testing.T, db *gorm.DB, accountID uuid.UUID, totalCents int, status enums.OrderStatus, refundStatus enums.RefundStatus) uuid.UUID {
	t.Helper()
	return seedOrderWithPayment(t, db, accountID, totalCents, status, enums.PaymentStatusPaid, refundStatus)
}

func seedUnpaidOrder(t *testing.T, db *gorm.DB, accountID uuid.UUID, totalCents int, status enums.OrderStatus, refundStatus enums.RefundStatus) uuid.UUID {
	t.Helper()
	return seedOrderWithPayment(t, db, accountID, totalCents, status, enums.PaymentStatusPending, refundStatus)
}

func seedOrderWithPayment(t *testing.T, db *gorm.DB, accountID uuid.UUID, totalCents int, status enums.OrderStatus, paymentStatus enums.PaymentStatus, refundStatus enums.RefundStatus) uuid.UUID {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		AccountID:       &accountID,
		SubtotalCents:   totalCents,
		TotalCents:      totalCents,
		PaymentMethod:   enums.PaymentMethodWallet,
		PaymentStatus:   paymentStatus,
		OrderStatus:     status,
		RefundStatus:    refundStatus,
		RefundRequested: refundStatus != enums.RefundStatusNone,
	}
	if err := db.Omit("Items", "RefundTimeline").Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}
