package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/pkg/db/models"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

func TestReserveDecrementsStockAndSnapshotsPrice(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	productA := seedProduct(t, db, "Trail Tee", 1500, 5)
	productB := seedProduct(t, db, "Summit Cap", 900, 1)

	var results []ReservationResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		results, terr = Reserve(ctx, tx, []ReservationRequest{
			{ProductID: productA, Qty: 3},
			{ProductID: productB, Qty: 1},
		})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		switch res.ProductID {
		case productA:
			if res.UnitPriceCents != 1500 || res.Qty != 3 || res.Title != "Trail Tee" {
				t.Fatalf("unexpected snapshot: %+v", res)
			}
		case productB:
			if res.UnitPriceCents != 900 || res.Qty != 1 {
				t.Fatalf("unexpected snapshot: %+v", res)
			}
		default:
			t.Fatalf("unexpected product in results: %s", res.ProductID)
		}
	}

	if got := loadStock(t, db, productA); got != 2 {
		t.Fatalf("expected stock 2 for product a, got %d", got)
	}
	if got := loadStock(t, db, productB); got != 0 {
		t.Fatalf("expected stock 0 for product b, got %d", got)
	}
}

func TestReserveAggregatesDuplicateLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Socks", 400, 5)

	var results []ReservationResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		results, terr = Reserve(ctx, tx, []ReservationRequest{
			{ProductID: product, Qty: 2},
			{ProductID: product, Qty: 1},
		})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a single aggregated result, got %d", len(results))
	}
	if results[0].Qty != 3 {
		t.Fatalf("expected aggregated qty 3, got %d", results[0].Qty)
	}
	if got := loadStock(t, db, product); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
}

func TestReserveRejectsOversell(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Limited Jacket", 12000, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, terr := Reserve(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 2}}); terr != nil {
			return terr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 2}})
		return terr
	})
	if err == nil {
		t.Fatal("expected second reservation to fail")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if got := loadStock(t, db, product); got != 0 {
		t.Fatalf("expected stock to stay 0, got %d", got)
	}
}

func TestReserveRollsBackEarlierLinesOnFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	plenty := seedProduct(t, db, "Water Bottle", 700, 10)
	scarce := seedProduct(t, db, "Rare Print", 5000, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []ReservationRequest{
			{ProductID: plenty, Qty: 4},
			{ProductID: scarce, Qty: 3},
		})
		return terr
	})
	if err == nil {
		t.Fatal("expected reservation to fail")
	}

	if got := loadStock(t, db, plenty); got != 10 {
		t.Fatalf("expected rollback to restore stock 10, got %d", got)
	}
	if got := loadStock(t, db, scarce); got != 1 {
		t.Fatalf("expected scarce stock untouched, got %d", got)
	}
}

func TestReserveSkipsInactiveProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	product := uuid.New()
	if err := db.Create(&models.Product{ID: product, Title: "Retired", PriceCents: 100, Stock: 5, Active: false}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 1}})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for inactive product, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Gloves", 800, 5)

	_, err := Reserve(ctx, db, []ReservationRequest{{ProductID: product, Qty: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Beanie", 600, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, terr := Reserve(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 3}}); terr != nil {
			return terr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 2}})
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := loadStock(t, db, product); got != 2 {
		t.Fatalf("expected stock 2 after release, got %d", got)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(products).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title string, priceCents, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{ID: uuid.New(), Title: title, PriceCents: priceCents, Stock: stock, Active: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product %q: %v", title, err)
	}
	return product.ID
}

func loadStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}
