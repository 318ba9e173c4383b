package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/shopspring/decimal"
)

// ReconcileResult lists the variant ids written by one reconciliation, in write order.
type ReconcileResult struct {
	Created []uuid.UUID
	Updated []uuid.UUID
	Deleted []uuid.UUID
}

// VariantReconciler applies a client variant list against a product's live variants.
type VariantReconciler struct {
	repos     repository.Repositories
	validator *UniquenessValidator
}

// NewVariantReconciler binds a reconciler to repos, normally the ones of an open transaction.
func NewVariantReconciler(repos repository.Repositories) *VariantReconciler {
	return &VariantReconciler{
		repos:     repos,
		validator: NewUniquenessValidator(repos),
	}
}

// Reconcile walks incoming in order. A patch with an id updates that variant when it is
// one of current and owned by productID, and is skipped otherwise. A patch without an id
// creates a variant. Afterwards every id in deletions naming a live owned variant is
// soft-deleted; other ids are ignored. Any error leaves earlier writes to the caller's
// transaction to roll back.
func (r *VariantReconciler) Reconcile(
	ctx context.Context,
	productID uuid.UUID,
	current []*model.Variant,
	incoming []model.VariantPatch,
	deletions []uuid.UUID,
) (*ReconcileResult, error) {
	live := make(map[uuid.UUID]*model.Variant, len(current))
	for _, variant := range current {
		if variant.ProductID == productID && variant.IsLive() {
			live[variant.ID] = variant
		}
	}

	result := &ReconcileResult{}
	for i, patch := range incoming {
		if patch.ID == nil {
			id, err := r.create(ctx, productID, i, patch)
			if err != nil {
				return nil, err
			}
			result.Created = append(result.Created, id)
			continue
		}

		variant, ok := live[*patch.ID]
		if !ok {
			slog.Debug("skipping update of unknown variant",
				slog.String("product_id", productID.String()),
				slog.String("variant_id", patch.ID.String()))
			continue
		}
		changed, err := r.update(ctx, i, variant, patch)
		if err != nil {
			return nil, err
		}
		if changed {
			result.Updated = append(result.Updated, variant.ID)
		}
	}

	for _, id := range deletions {
		if _, ok := live[id]; !ok {
			continue
		}
		if err := r.repos.Variants.SoftDelete(ctx, id); err != nil {
			return nil, &StoreError{Op: "delete variant", Err: err}
		}
		delete(live, id)
		result.Deleted = append(result.Deleted, id)
	}

	return result, nil
}

func (r *VariantReconciler) create(ctx context.Context, productID uuid.UUID, index int, patch model.VariantPatch) (uuid.UUID, error) {
	if patch.SKU == nil || *patch.SKU == "" {
		return uuid.Nil, &ValidationError{Field: skuPath(index), Message: "is required when creating a variant"}
	}
	if err := validateVariantPatch(index, patch); err != nil {
		return uuid.Nil, err
	}
	if err := r.validator.Require(ctx, repository.SKUField, *patch.SKU, uuid.Nil); err != nil {
		return uuid.Nil, err
	}

	variant := &model.Variant{
		ProductID: productID,
		MetalType: model.DefaultMetalType,
		Price:     decimal.Zero,
		SKU:       *patch.SKU,
	}
	if patch.Carat != nil {
		variant.Carat = *patch.Carat
	}
	if patch.MetalType != nil {
		variant.MetalType = *patch.MetalType
	}
	if patch.Price != nil {
		variant.Price = *patch.Price
	}
	if patch.Stock != nil {
		variant.Stock = *patch.Stock
	}

	if err := r.repos.Variants.Insert(ctx, variant); err != nil {
		return uuid.Nil, classify("create variant", err)
	}
	return variant.ID, nil
}

// update applies the fields present in patch and reports whether anything was written.
func (r *VariantReconciler) update(ctx context.Context, index int, variant *model.Variant, patch model.VariantPatch) (bool, error) {
	if err := validateVariantPatch(index, patch); err != nil {
		return false, err
	}

	fields := repository.Fields{}
	if patch.Carat != nil {
		fields[repository.CaratField] = *patch.Carat
	}
	if patch.MetalType != nil {
		fields[repository.MetalTypeField] = string(*patch.MetalType)
	}
	if patch.Price != nil {
		fields[repository.PriceField] = *patch.Price
	}
	if patch.Stock != nil {
		fields[repository.StockField] = *patch.Stock
	}
	if patch.SKU != nil {
		if *patch.SKU == "" {
			return false, &ValidationError{Field: skuPath(index), Message: "must not be empty"}
		}
		if err := r.validator.Require(ctx, repository.SKUField, *patch.SKU, variant.ID); err != nil {
			return false, err
		}
		fields[repository.SKUField] = *patch.SKU
	}
	if len(fields) == 0 {
		return false, nil
	}

	if err := r.repos.Variants.UpdateFields(ctx, variant.ID, fields); err != nil {
		return false, classify("update variant", err)
	}
	return true, nil
}

func validateVariantPatch(index int, patch model.VariantPatch) error {
	if patch.MetalType != nil && !patch.MetalType.Valid() {
		return &ValidationError{
			Field:   fmt.Sprintf("variants[%d].metal_type", index),
			Message: fmt.Sprintf("must be one of %v", model.MetalTypes),
		}
	}
	if patch.Price != nil {
		if err := checkAmount(fmt.Sprintf("variants[%d].price", index), *patch.Price, maxPrice); err != nil {
			return err
		}
	}
	if patch.Stock != nil {
		if err := checkStock(fmt.Sprintf("variants[%d].stock", index), *patch.Stock); err != nil {
			return err
		}
	}
	if patch.Carat != nil && patch.Carat.Valid {
		if err := checkAmount(fmt.Sprintf("variants[%d].carat", index), patch.Carat.Decimal, maxCarat); err != nil {
			return err
		}
	}
	return nil
}

func skuPath(index int) string {
	return fmt.Sprintf("variants[%d].sku", index)
}
