package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

const productColumns = "p.id, p.name, p.description, p.base_price, p.slug, p.created_at, p.updated_at"

// liveVariantsCount is selected alongside every product row.
const liveVariantsCount = "(SELECT COUNT(*) FROM variants v WHERE v.product_id = p.id AND v.deleted_at IS NULL) AS variants_count"

var (
	productUpdatableFields = []repository.QueryField{
		repository.NameField,
		repository.DescriptionField,
		repository.BasePriceField,
		repository.SlugField,
	}
	productFilterFields = []repository.QueryField{
		repository.NameField,
		repository.SlugField,
	}
)

// ProductRepository implements repository.ProductRepository on Postgres.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// Insert stores a new product row. Metadata is only initialized if not already set.
func (r *ProductRepository) Insert(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.InitMeta()
	}

	query := `INSERT INTO products (id, name, description, base_price, slug, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := execAffected(ctx, r.getExecutor(), query,
		product.ID, product.Name, product.Description, product.BasePrice, product.Slug, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError(err, "insert product")
	}
	return nil
}

// FindLive loads a live product. Within a transaction the row is locked until commit.
func (r *ProductRepository) FindLive(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := "SELECT " + productColumns + ", " + liveVariantsCount +
		" FROM products p WHERE p.id = $1 AND p.deleted_at IS NULL"
	if r.txn != nil {
		query += " FOR UPDATE OF p"
	}

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return product, nil
}

// ListLive returns live products newest first, filtered by name or slug.
func (r *ProductRepository) ListLive(ctx context.Context, query repository.Query) ([]*model.Product, error) {
	if err := checkFilters(query, productFilterFields); err != nil {
		return nil, err
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + productColumns + ", " + liveVariantsCount)
	queryBuilder.WriteString(" FROM products p WHERE p.deleted_at IS NULL")

	var args []interface{}
	argIndex := 1

	for _, field := range productFilterFields {
		value, ok := query.Values[field]
		if !ok {
			continue
		}
		queryBuilder.WriteString(fmt.Sprintf(" AND p.%s = $%d", field, argIndex))
		args = append(args, value)
		argIndex++
	}
	// Apply pagination
	if query.Paginator != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND (p.created_at, p.id) < ($%d, $%d)", argIndex, argIndex+1))
		args = append(args, query.Paginator.LastCreatedAt, query.Paginator.LastID)
		argIndex += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	queryBuilder.WriteString(" ORDER BY p.created_at DESC, p.id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
	args = append(args, limit)

	executor := r.getExecutor()
	stmt, err := executor.PrepareContext(ctx, queryBuilder.String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// UpdateFields applies a partial update to a live product and bumps updated_at.
func (r *ProductRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields repository.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	query, args, err := buildUpdate("products", productUpdatableFields, fields, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := execAffected(ctx, r.getExecutor(), query, args...)
	if err != nil {
		return wrapWriteError(err, "update product")
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a live product as deleted.
func (r *ProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	rowsAffected, err := execAffected(ctx, r.getExecutor(), query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ExistsLive reports whether a live product other than excludeID has field == value.
func (r *ProductRepository) ExistsLive(ctx context.Context, field repository.QueryField, value string, excludeID uuid.UUID) (bool, error) {
	if field != repository.SlugField {
		return false, fmt.Errorf("%w: products.%s", repository.ErrUnknownField, field)
	}
	return existsLive(ctx, r.getExecutor(), "products", field, value, excludeID)
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		product     model.Product
		description sql.NullString
	)
	err := row.Scan(
		&product.ID, &product.Name, &description, &product.BasePrice, &product.Slug,
		&product.CreatedAt, &product.UpdatedAt, &product.VariantsCount,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		product.Description = &description.String
	}
	return &product, nil
}

// checkFilters rejects filters on columns the repository does not index.
func checkFilters(query repository.Query, allowed []repository.QueryField) error {
	for field := range query.Values {
		if !slices.Contains(allowed, field) {
			return fmt.Errorf("%w: filter %s", repository.ErrUnknownField, field)
		}
	}
	return nil
}
