package sql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// dbExecutor is an interface that represents either *sql.DB or *sql.Tx.
type dbExecutor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execAffected prepares and runs a statement and returns the number of affected rows.
func execAffected(ctx context.Context, executor dbExecutor, query string, args ...any) (int64, error) {
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// existsLive runs an EXISTS probe for a live row with column == value that is not excludeID.
func existsLive(ctx context.Context, executor dbExecutor, table string, column repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND deleted_at IS NULL AND id <> $2)",
		table, column,
	)

	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare exists statement: %w", err)
	}
	defer stmt.Close()

	var exists bool
	if err := stmt.QueryRowContext(ctx, value, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// buildUpdate renders a partial UPDATE of a live row. Columns are emitted in sorted order
// so the statement text is stable for a given set of fields.
func buildUpdate(table string, allowed []repository.QueryField, fields repository.Fields, now time.Time, id uuid.UUID) (string, []any, error) {
	columns := make([]repository.QueryField, 0, len(fields))
	for field := range fields {
		if !slices.Contains(allowed, field) {
			return "", nil, fmt.Errorf("%w: %s.%s", repository.ErrUnknownField, table, field)
		}
		columns = append(columns, field)
	}
	slices.Sort(columns)

	var queryBuilder strings.Builder
	queryBuilder.WriteString("UPDATE " + table + " SET ")

	args := make([]any, 0, len(columns)+2)
	for i, column := range columns {
		queryBuilder.WriteString(fmt.Sprintf("%s = $%d, ", column, i+1))
		args = append(args, fields[column])
	}
	argIndex := len(columns) + 1
	queryBuilder.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d AND deleted_at IS NULL", argIndex, argIndex+1))
	args = append(args, now, id)

	return queryBuilder.String(), args, nil
}
