package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/exrstore/exr-backend/pkg/db/models"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
)

// ReservationRequest asks for qty units of one product.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// ReservationResult snapshots the reserved line at the store-authoritative
// price read inside the same transaction that decremented stock.
type ReservationResult struct {
	ProductID      uuid.UUID
	Title          string
	UnitPriceCents int
	Qty            int
}

// Reserve decrements stock for every request inside tx. Requests for the same
// product are aggregated first so each product gets exactly one conditional
// decrement. Any shortfall aborts the whole batch with a conflict error; the
// surrounding transaction rollback undoes partial decrements.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items to reserve")
	}

	aggregated, order, err := aggregate(requests)
	if err != nil {
		return nil, err
	}

	results := make([]ReservationResult, 0, len(order))
	for _, productID := range order {
		qty := aggregated[productID]

		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND active = ? AND stock >= ?", productID, true, qty).
			Update("stock", gorm.Expr("stock - ?", qty))
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserving stock")
		}
		if res.RowsAffected == 0 {
			return nil, reservationFailure(ctx, tx, productID, qty)
		}

		var product models.Product
		if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading reserved product")
		}
		results = append(results, ReservationResult{
			ProductID:      product.ID,
			Title:          product.Title,
			UnitPriceCents: product.PriceCents,
			Qty:            qty,
		})
	}
	return results, nil
}

// Release puts previously reserved units back. Used when an admin cancels an
// unshipped order; refunds deliberately do not restock.
func Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}

	aggregated, order, err := aggregate(requests)
	if err != nil {
		return err
	}

	for _, productID := range order {
		qty := aggregated[productID]
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", productID).
			Update("stock", gorm.Expr("stock + ?", qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "releasing stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
	}
	return nil
}

// aggregate collapses duplicate product lines and returns a deterministic
// processing order so concurrent checkouts touch rows in the same sequence.
func aggregate(requests []ReservationRequest) (map[uuid.UUID]int, []uuid.UUID, error) {
	aggregated := make(map[uuid.UUID]int, len(requests))
	order := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if req.Qty < 1 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
		if _, seen := aggregated[req.ProductID]; !seen {
			order = append(order, req.ProductID)
		}
		aggregated[req.ProductID] += req.Qty
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].String() < order[j].String()
	})
	return aggregated, order, nil
}

func reservationFailure(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	var product models.Product
	err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	case !product.Active:
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
			WithDetails(map[string]any{"product_id": productID})
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID,
				"requested":  qty,
				"available":  product.Stock,
			})
	}
}
