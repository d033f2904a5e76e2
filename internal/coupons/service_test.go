package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

func TestQuotePercentRoundsAndSnapshots(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{Code: "SAVE10", Type: enums.CouponTypePercent, Value: 10, Active: true})

	quote, err := svc.Quote(ctx, "save10", 1000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.DiscountCents != 100 {
		t.Fatalf("expected discount 100, got %d", quote.DiscountCents)
	}
	if quote.Code != "SAVE10" || quote.Type != enums.CouponTypePercent || quote.Value != 10 {
		t.Fatalf("unexpected snapshot: %+v", quote)
	}

	// 10% of 1005 rounds up
	quote, err = svc.Quote(ctx, "SAVE10", 1005)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.DiscountCents != 101 {
		t.Fatalf("expected rounded discount 101, got %d", quote.DiscountCents)
	}
}

func TestQuoteFixedClampsToSubtotal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{Code: "FLAT500", Type: enums.CouponTypeFixed, Value: 500, Active: true})

	quote, err := svc.Quote(ctx, "FLAT500", 300)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.DiscountCents != 300 {
		t.Fatalf("expected clamped discount 300, got %d", quote.DiscountCents)
	}
}

func TestQuoteRejectsUnknownInactiveAndExpired(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	seedCoupon(t, db, models.Coupon{Code: "RETIRED", Type: enums.CouponTypeFixed, Value: 100, Active: false})
	seedCoupon(t, db, models.Coupon{Code: "BYGONE", Type: enums.CouponTypeFixed, Value: 100, Active: true, ExpiresAt: &past})

	for _, code := range []string{"NOPE", "RETIRED", "BYGONE"} {
		_, err := svc.Quote(ctx, code, 1000)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("coupon %s: expected validation error, got %v", code, err)
		}
	}
}

func TestApplyConsumesOneUseAndStopsAtCap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	maxUses := 2
	seedCoupon(t, db, models.Coupon{Code: "TWICE", Type: enums.CouponTypeFixed, Value: 200, Active: true, MaxUses: &maxUses})

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, terr := svc.Apply(ctx, tx, "TWICE", 1000)
			return terr
		})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := svc.Apply(ctx, tx, "TWICE", 1000)
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict once exhausted, got %v", err)
	}

	var coupon models.Coupon
	if err := db.First(&coupon, "code = ?", "TWICE").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 2 {
		t.Fatalf("expected used_count 2, got %d", coupon.UsedCount)
	}
}

func TestApplyRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{Code: "ROLLBACK", Type: enums.CouponTypePercent, Value: 5, Active: true})

	wantErr := pkgerrors.New(pkgerrors.CodeConflict, "later step failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, terr := svc.Apply(ctx, tx, "ROLLBACK", 1000); terr != nil {
			return terr
		}
		return wantErr
	})
	if err == nil {
		t.Fatal("expected transaction to fail")
	}

	var coupon models.Coupon
	if err := db.First(&coupon, "code = ?", "ROLLBACK").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 0 {
		t.Fatalf("expected rollback to restore used_count 0, got %d", coupon.UsedCount)
	}
}

func TestDiscountZeroValueAndSubtotal(t *testing.T) {
	t.Parallel()

	if got := Discount(enums.CouponTypePercent, 10, 0); got != 0 {
		t.Fatalf("expected 0 discount for zero subtotal, got %d", got)
	}
	if got := Discount(enums.CouponTypeFixed, 0, 1000); got != 0 {
		t.Fatalf("expected 0 discount for zero value, got %d", got)
	}
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  value INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  expires_at DATETIME,
  max_uses INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(coupons).Error; err != nil {
		t.Fatalf("create coupons table: %v", err)
	}
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) {
	t.Helper()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon %q: %v", coupon.Code, err)
	}
}
