package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// UniquenessValidator checks slug and sku values against live rows.
// It reads through the repositories it was built with, so inside a transaction it
// sees that transaction's earlier writes.
type UniquenessValidator struct {
	repos repository.Repositories
}

func NewUniquenessValidator(repos repository.Repositories) *UniquenessValidator {
	return &UniquenessValidator{repos: repos}
}

// IsUnique reports whether no live row other than excludeID holds value in field.
// Pass uuid.Nil to exclude nothing. Only SlugField and SKUField are accepted; any other
// field is a *ValidationError.
func (v *UniquenessValidator) IsUnique(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	var (
		exists bool
		err    error
	)
	switch field {
	case repository.SlugField:
		exists, err = v.repos.Products.ExistsLive(ctx, field, value, excludeID)
	case repository.SKUField:
		exists, err = v.repos.Variants.ExistsLive(ctx, field, value, excludeID)
	default:
		return false, &ValidationError{Field: string(field), Message: "is not a unique field"}
	}
	if err != nil {
		return false, &StoreError{Op: "check " + string(field) + " uniqueness", Err: err}
	}
	return !exists, nil
}

// Require returns a *ConflictError when value is already taken.
func (v *UniquenessValidator) Require(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) error {
	unique, err := v.IsUnique(ctx, field, value, excludeID)
	if err != nil {
		return err
	}
	if !unique {
		metrics.Conflicts.WithLabelValues(string(field)).Inc()
		return &ConflictError{Field: string(field), Value: value}
	}
	return nil
}
