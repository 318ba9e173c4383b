package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

const variantColumns = "id, product_id, carat, metal_type, price, stock, sku, created_at, updated_at"

var (
	// product_id is not updatable: a variant is never re-parented.
	variantUpdatableFields = []repository.QueryField{
		repository.CaratField,
		repository.MetalTypeField,
		repository.PriceField,
		repository.StockField,
		repository.SKUField,
	}
	variantFilterFields = []repository.QueryField{
		repository.ProductIDField,
		repository.MetalTypeField,
		repository.SKUField,
	}
)

// VariantRepository implements repository.VariantRepository on Postgres.
type VariantRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

func NewVariantRepository(db *sql.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

func (r *VariantRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

func (r *VariantRepository) Insert(ctx context.Context, variant *model.Variant) error {
	if variant.ID == uuid.Nil {
		variant.InitMeta()
	}

	query := `INSERT INTO variants (id, product_id, carat, metal_type, price, stock, sku, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := execAffected(ctx, r.getExecutor(), query,
		variant.ID, variant.ProductID, variant.Carat, string(variant.MetalType), variant.Price, variant.Stock,
		variant.SKU, variant.CreatedAt, variant.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError(err, "insert variant")
	}
	return nil
}

func (r *VariantRepository) FindLive(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	query := "SELECT " + variantColumns + " FROM variants WHERE id = $1 AND deleted_at IS NULL"

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	variant, err := scanVariant(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}
	return variant, nil
}

// ListLive returns live variants in insertion order. A zero limit returns every match.
func (r *VariantRepository) ListLive(ctx context.Context, query repository.Query) ([]*model.Variant, error) {
	if err := checkFilters(query, variantFilterFields); err != nil {
		return nil, err
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + variantColumns + " FROM variants WHERE deleted_at IS NULL")

	var args []interface{}
	argIndex := 1
	for _, field := range variantFilterFields {
		value, ok := query.Values[field]
		if !ok {
			continue
		}
		if field == repository.ProductIDField {
			if _, err := uuid.Parse(value); err != nil {
				return nil, fmt.Errorf("invalid product id filter %q: %w", value, err)
			}
		}
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", field, argIndex))
		args = append(args, value)
		argIndex++
	}

	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")
	if query.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, query.Limit)
	}

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []*model.Variant
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, variant)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return variants, nil
}

func (r *VariantRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields repository.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	query, args, err := buildUpdate("variants", variantUpdatableFields, fields, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := execAffected(ctx, r.getExecutor(), query, args...)
	if err != nil {
		return wrapWriteError(err, "update variant")
	}
	if rowsAffected == 0 {
		return fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *VariantRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE variants SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	rowsAffected, err := execAffected(ctx, r.getExecutor(), query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("variant %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// SoftDeleteByProduct marks every live variant of a product as deleted.
func (r *VariantRepository) SoftDeleteByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	query := `UPDATE variants SET deleted_at = $1, updated_at = $1 WHERE product_id = $2 AND deleted_at IS NULL`

	rowsAffected, err := execAffected(ctx, r.getExecutor(), query, time.Now().UTC(), productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete variants of product %s: %w", productID, err)
	}
	return rowsAffected, nil
}

func (r *VariantRepository) ExistsLive(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	if field != repository.SKUField {
		return false, fmt.Errorf("%w: variants.%s", repository.ErrUnknownField, field)
	}
	return existsLive(ctx, r.getExecutor(), "variants", field, value, excludeID)
}

func scanVariant(row rowScanner) (*model.Variant, error) {
	var variant model.Variant
	err := row.Scan(
		&variant.ID, &variant.ProductID, &variant.Carat, &variant.MetalType, &variant.Price, &variant.Stock,
		&variant.SKU, &variant.CreatedAt, &variant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &variant, nil
}
