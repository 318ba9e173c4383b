package sql

import (
	"errors"
	"fmt"

	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// uniqueViolation extracts a unique constraint violation reported by either Postgres driver.
func uniqueViolation(err error) (*repository.UniqueConstraintError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pqUniqueViolationErrCode {
		return &repository.UniqueConstraintError{Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolationErrCode {
		return &repository.UniqueConstraintError{Constraint: pqErr.Constraint, Detail: pqErr.Detail}, true
	}
	return nil, false
}

// wrapWriteError turns unique violations into *repository.UniqueConstraintError and
// wraps everything else with the failed action.
func wrapWriteError(err error, action string) error {
	if uniqueErr, ok := uniqueViolation(err); ok {
		return uniqueErr
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
