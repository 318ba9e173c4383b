package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
)

var (
	// ErrNotFound is returned when a live row with the requested id does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnknownField is returned when a query or update names a column the repository does not manage.
	ErrUnknownField = errors.New("unknown field")
)

// Fields maps columns to new values for a partial update.
type Fields map[QueryField]any

// ProductRepository stores products. Every read filters out soft-deleted rows.
type ProductRepository interface {
	Insert(ctx context.Context, product *model.Product) error
	FindLive(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListLive(ctx context.Context, query Query) ([]*model.Product, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields Fields) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ExistsLive reports whether a live product other than excludeID has field == value.
	// Pass uuid.Nil to exclude nothing.
	ExistsLive(ctx context.Context, field QueryField, value string, excludeID uuid.UUID) (bool, error)
}

// VariantRepository stores variants. Every read filters out soft-deleted rows.
type VariantRepository interface {
	Insert(ctx context.Context, variant *model.Variant) error
	FindLive(ctx context.Context, id uuid.UUID) (*model.Variant, error)
	ListLive(ctx context.Context, query Query) ([]*model.Variant, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields Fields) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// SoftDeleteByProduct soft-deletes every live variant of a product and returns how many were marked.
	SoftDeleteByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	ExistsLive(ctx context.Context, field QueryField, value string, excludeID uuid.UUID) (bool, error)
}

// EventRepository stores outbox events.
type EventRepository interface {
	Insert(ctx context.Context, event *model.Event) error
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
}

// Repositories groups the repositories bound to one executor, either the pool or a transaction.
type Repositories struct {
	Products ProductRepository
	Variants VariantRepository
	Events   EventRepository
}

// Store hands out repositories and runs functions inside a transaction.
// Repositories passed to fn observe the transaction's own writes; when fn returns an error
// nothing it wrote is committed.
type Store interface {
	Repositories() Repositories
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	Constraint string
	Detail     string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
