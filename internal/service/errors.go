package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// NotFoundError means the referenced product does not exist or is soft-deleted.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError means a slug or sku is already held by a live row.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is already taken", e.Field)
	}
	return fmt.Sprintf("%s %q is already taken", e.Field, e.Value)
}

// ValidationError is a semantically invalid patch, for example a new variant without a sku.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classify maps anything escaping a transaction to one of the typed errors.
// Typed errors pass through; unique violations become conflicts; the rest is a StoreError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound   *NotFoundError
		conflict   *ConflictError
		validation *ValidationError
		storeErr   *StoreError
	)
	switch {
	case errors.As(err, &notFound):
		return notFound
	case errors.As(err, &conflict):
		return conflict
	case errors.As(err, &validation):
		return validation
	case errors.As(err, &storeErr):
		return storeErr
	}

	var uniqueErr *repository.UniqueConstraintError
	if errors.As(err, &uniqueErr) {
		field := conflictField(uniqueErr.Constraint)
		metrics.Conflicts.WithLabelValues(field).Inc()
		return &ConflictError{Field: field, Value: conflictValue(uniqueErr.Detail)}
	}

	return &StoreError{Op: op, Err: err}
}

func conflictField(constraint string) string {
	switch {
	case strings.Contains(constraint, "slug"):
		return string(repository.SlugField)
	case strings.Contains(constraint, "sku"):
		return string(repository.SKUField)
	}
	return constraint
}

// conflictValue extracts the value from a Postgres detail such as "Key (sku)=(SKU-1) already exists.".
func conflictValue(detail string) string {
	_, rest, ok := strings.Cut(detail, ")=(")
	if !ok {
		return ""
	}
	value, _, ok := strings.Cut(rest, ") already exists")
	if !ok {
		return ""
	}
	return value
}
