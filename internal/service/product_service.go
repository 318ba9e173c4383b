package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// SlugGenerator derives a candidate slug from a product name.
type SlugGenerator interface {
	Generate(name string) (string, error)
}

// ProductService runs every product mutation and its variant side effects in one transaction.
type ProductService struct {
	store        repository.Store
	slugs        SlugGenerator
	slugAttempts uint
}

// NewProductService creates a ProductService. slugAttempts bounds how many generated
// slugs are tried on create; values below one mean a single attempt.
func NewProductService(store repository.Store, slugs SlugGenerator, slugAttempts uint) *ProductService {
	return &ProductService{
		store:        store,
		slugs:        slugs,
		slugAttempts: max(slugAttempts, 1),
	}
}

// CreateProduct persists a product and its initial variants. A supplied slug that is
// taken fails with ConflictError; a generated one is regenerated up to the attempt limit.
func (ps *ProductService) CreateProduct(ctx context.Context, fields model.ProductFields, variants []model.VariantPatch) (*model.Product, error) {
	if strings.TrimSpace(fields.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if err := checkAmount("base_price", fields.BasePrice, maxPrice); err != nil {
		return nil, err
	}

	if fields.Slug != nil && *fields.Slug != "" {
		return ps.createWithSlug(ctx, fields, *fields.Slug, variants)
	}

	var created *model.Product
	err := retry.Do(
		func() error {
			candidate, err := ps.slugs.Generate(fields.Name)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to generate slug: %w", err))
			}
			product, err := ps.createWithSlug(ctx, fields, candidate, variants)
			if err != nil {
				return err
			}
			created = product
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(ps.slugAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isSlugConflict),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("generated slug collided, retrying",
				slog.String("name", fields.Name),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("err", err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (ps *ProductService) createWithSlug(ctx context.Context, fields model.ProductFields, slug string, variants []model.VariantPatch) (*model.Product, error) {
	var (
		created *model.Product
		changes *ReconcileResult
	)
	err := ps.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := NewUniquenessValidator(repos).Require(ctx, repository.SlugField, slug, uuid.Nil); err != nil {
			return err
		}

		product := &model.Product{
			Name:        fields.Name,
			Description: fields.Description,
			BasePrice:   fields.BasePrice,
			Slug:        slug,
		}
		if err := repos.Products.Insert(ctx, product); err != nil {
			return classify("create product", err)
		}

		result, err := NewVariantReconciler(repos).Reconcile(ctx, product.ID, nil, variants, nil)
		if err != nil {
			return err
		}

		loaded, err := loadProduct(ctx, repos, product.ID)
		if err != nil {
			return err
		}
		if err := writeEvent(ctx, repos, model.EventTypeProductCreated, sqs.ActionCreated, loaded, result); err != nil {
			return err
		}

		created, changes = loaded, result
		return nil
	})
	if err != nil {
		return nil, classify("create product", err)
	}

	metrics.ProductsCreated.Inc()
	recordVariantMetrics(changes)
	slog.Info("product created",
		slog.String("product_id", created.ID.String()),
		slog.String("slug", created.Slug),
		slog.Int("variants", len(created.Variants)))
	return created, nil
}

// UpdateProduct applies a field patch, reconciles variants and soft-deletes the listed
// variants atomically. The product row stays locked until the transaction ends.
func (ps *ProductService) UpdateProduct(
	ctx context.Context,
	id uuid.UUID,
	patch model.ProductPatch,
	variants []model.VariantPatch,
	deletions []uuid.UUID,
) (*model.Product, error) {
	if err := validateProductPatch(patch); err != nil {
		return nil, err
	}

	var (
		updated *model.Product
		changes *ReconcileResult
	)
	err := ps.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if _, err := findLiveProduct(ctx, repos, id); err != nil {
			return err
		}

		if patch.Slug != nil {
			if err := NewUniquenessValidator(repos).Require(ctx, repository.SlugField, *patch.Slug, id); err != nil {
				return err
			}
		}
		if fields := productFields(patch); len(fields) > 0 {
			if err := repos.Products.UpdateFields(ctx, id, fields); err != nil {
				return classify("update product", err)
			}
		}

		current, err := repos.Variants.ListLive(ctx, *repository.NewQuery().With(repository.ProductIDField, id.String()))
		if err != nil {
			return &StoreError{Op: "load variants", Err: err}
		}
		result, err := NewVariantReconciler(repos).Reconcile(ctx, id, current, variants, deletions)
		if err != nil {
			return err
		}

		loaded, err := loadProduct(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := writeEvent(ctx, repos, model.EventTypeProductUpdated, sqs.ActionUpdated, loaded, result); err != nil {
			return err
		}

		updated, changes = loaded, result
		return nil
	})
	if err != nil {
		return nil, classify("update product", err)
	}

	metrics.ProductsUpdated.Inc()
	recordVariantMetrics(changes)
	slog.Info("product updated",
		slog.String("product_id", id.String()),
		slog.Int("variants_created", len(changes.Created)),
		slog.Int("variants_updated", len(changes.Updated)),
		slog.Int("variants_deleted", len(changes.Deleted)))
	return updated, nil
}

// DeleteProduct soft-deletes a product's live variants and then the product itself.
func (ps *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	var deletedVariants int64
	err := ps.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		product, err := findLiveProduct(ctx, repos, id)
		if err != nil {
			return err
		}

		variants, err := repos.Variants.ListLive(ctx, *repository.NewQuery().With(repository.ProductIDField, id.String()))
		if err != nil {
			return &StoreError{Op: "load variants", Err: err}
		}
		product.Variants = variants

		deletedVariants, err = repos.Variants.SoftDeleteByProduct(ctx, id)
		if err != nil {
			return &StoreError{Op: "delete variants", Err: err}
		}
		if err := repos.Products.SoftDelete(ctx, id); err != nil {
			return classify("delete product", err)
		}

		result := &ReconcileResult{}
		for _, v := range variants {
			result.Deleted = append(result.Deleted, v.ID)
		}
		product.VariantsCount = 0
		return writeEvent(ctx, repos, model.EventTypeProductDeleted, sqs.ActionDeleted, product, result)
	})
	if err != nil {
		return classify("delete product", err)
	}

	metrics.ProductsDeleted.Inc()
	metrics.VariantOperations.WithLabelValues(metrics.VariantDeleted).Add(float64(deletedVariants))
	slog.Info("product deleted",
		slog.String("product_id", id.String()),
		slog.Int64("variants_deleted", deletedVariants))
	return nil
}

// GetProduct returns a live product with its live variants.
func (ps *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := loadProduct(ctx, ps.store.Repositories(), id)
	if err != nil {
		return nil, classify("get product", err)
	}
	return product, nil
}

// ListProducts returns a page of live products, newest first, and the token of the next
// page. The token is empty on the last page.
func (ps *ProductService) ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, string, error) {
	products, err := ps.store.Repositories().Products.ListLive(ctx, query)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownField) {
			return nil, "", &ValidationError{Field: "filter", Message: err.Error()}
		}
		return nil, "", &StoreError{Op: "list products", Err: err}
	}

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	var nextPageToken string
	if len(products) == limit {
		last := products[len(products)-1]
		nextPageToken = repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt}.Encode()
	}
	return products, nextPageToken, nil
}

func findLiveProduct(ctx context.Context, repos repository.Repositories, id uuid.UUID) (*model.Product, error) {
	product, err := repos.Products.FindLive(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "product", ID: id}
		}
		return nil, &StoreError{Op: "load product", Err: err}
	}
	return product, nil
}

// loadProduct reads a live product together with its live variants in insertion order.
func loadProduct(ctx context.Context, repos repository.Repositories, id uuid.UUID) (*model.Product, error) {
	product, err := findLiveProduct(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	variants, err := repos.Variants.ListLive(ctx, *repository.NewQuery().With(repository.ProductIDField, id.String()))
	if err != nil {
		return nil, &StoreError{Op: "load variants", Err: err}
	}
	product.Variants = variants
	product.VariantsCount = len(variants)
	return product, nil
}

func productFields(patch model.ProductPatch) repository.Fields {
	fields := repository.Fields{}
	if patch.Name != nil {
		fields[repository.NameField] = *patch.Name
	}
	if patch.Description != nil {
		fields[repository.DescriptionField] = *patch.Description
	}
	if patch.BasePrice != nil {
		fields[repository.BasePriceField] = *patch.BasePrice
	}
	if patch.Slug != nil {
		fields[repository.SlugField] = *patch.Slug
	}
	return fields
}

func validateProductPatch(patch model.ProductPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if patch.Slug != nil && *patch.Slug == "" {
		return &ValidationError{Field: "slug", Message: "must not be empty"}
	}
	if patch.BasePrice != nil {
		return checkAmount("base_price", *patch.BasePrice, maxPrice)
	}
	return nil
}

// writeEvent stores the outbox event of a mutation in the mutation's transaction.
func writeEvent(
	ctx context.Context,
	repos repository.Repositories,
	eventType, action string,
	product *model.Product,
	changes *ReconcileResult,
) error {
	msg := sqs.ProductMessage{
		Action:        action,
		ProductID:     product.ID.String(),
		Name:          product.Name,
		Slug:          product.Slug,
		BasePrice:     product.BasePrice,
		VariantsCount: product.VariantsCount,
	}
	for _, v := range product.Variants {
		msg.SKUs = append(msg.SKUs, v.SKU)
	}
	if changes != nil {
		msg.Variants = &sqs.VariantChanges{
			Created: len(changes.Created),
			Updated: len(changes.Updated),
			Deleted: len(changes.Deleted),
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &model.Event{
		EventType:   eventType,
		AggregateID: product.ID,
		EventData:   data,
		Status:      model.EventStatusPending,
	}
	if err := repos.Events.Insert(ctx, event); err != nil {
		return &StoreError{Op: "write " + eventType + " event", Err: err}
	}
	return nil
}

func recordVariantMetrics(changes *ReconcileResult) {
	if changes == nil {
		return
	}
	metrics.VariantOperations.WithLabelValues(metrics.VariantCreated).Add(float64(len(changes.Created)))
	metrics.VariantOperations.WithLabelValues(metrics.VariantUpdated).Add(float64(len(changes.Updated)))
	metrics.VariantOperations.WithLabelValues(metrics.VariantDeleted).Add(float64(len(changes.Deleted)))
}

func isSlugConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Field == string(repository.SlugField)
}
