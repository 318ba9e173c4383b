package controller

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/shopspring/decimal"
)

// ProductService is the catalog behaviour the controller depends on.
type ProductService interface {
	CreateProduct(ctx context.Context, fields model.ProductFields, variants []model.VariantPatch) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch model.ProductPatch, variants []model.VariantPatch, deletions []uuid.UUID) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, query repository.Query) ([]*model.Product, string, error)
}

// ProductController handles HTTP requests for product operations.
type ProductController struct {
	productService ProductService
}

// NewProductController creates a new ProductController with the given product service.
func NewProductController(productService ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// CreateProductRequest represents the request body for creating a product.
type CreateProductRequest struct {
	Name        string                 `json:"name" binding:"required,max=255"`
	Description *string                `json:"description"`
	BasePrice   *decimal.Decimal       `json:"base_price" binding:"required"`
	Slug        *string                `json:"slug" binding:"omitempty,max=255"`
	Variants    []CreateVariantRequest `json:"variants" binding:"omitempty,dive"`
}

// CreateVariantRequest is one variant of a new product. Every field but carat is required.
type CreateVariantRequest struct {
	Carat     *decimal.Decimal `json:"carat"`
	MetalType string           `json:"metal_type" binding:"required,metal_type"`
	Price     *decimal.Decimal `json:"price" binding:"required"`
	Stock     *int             `json:"stock" binding:"required,min=0,max=2147483647"`
	SKU       string           `json:"sku" binding:"required,max=255"`
}

// UpdateProductRequest represents the request body for updating a product.
// Absent fields are left unchanged.
type UpdateProductRequest struct {
	Name             *string                `json:"name" binding:"omitempty,min=1,max=255"`
	Description      Nullable[string]       `json:"description"`
	BasePrice        *decimal.Decimal       `json:"base_price"`
	Slug             *string                `json:"slug" binding:"omitempty,min=1,max=255"`
	Variants         []UpdateVariantRequest `json:"variants" binding:"omitempty,dive"`
	VariantsToDelete []uuid.UUID            `json:"variants_to_delete"`
}

// UpdateVariantRequest updates the variant named by ID, or creates one when ID is absent.
type UpdateVariantRequest struct {
	ID        *uuid.UUID                `json:"id"`
	Carat     Nullable[decimal.Decimal] `json:"carat"`
	MetalType *string                   `json:"metal_type" binding:"omitempty,metal_type"`
	Price     *decimal.Decimal          `json:"price"`
	Stock     *int                      `json:"stock" binding:"omitempty,min=0,max=2147483647"`
	SKU       *string                   `json:"sku" binding:"omitempty,max=255"`
}

// VariantResponse represents the response body for a variant.
type VariantResponse struct {
	ID        string           `json:"id"`
	Carat     *decimal.Decimal `json:"carat"`
	MetalType string           `json:"metal_type"`
	Price     decimal.Decimal  `json:"price"`
	Stock     int              `json:"stock"`
	SKU       string           `json:"sku"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Slug          string          `json:"slug"`
	VariantsCount int             `json:"variants_count"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// ProductDetailResponse is a product together with its live variants.
type ProductDetailResponse struct {
	ProductResponse
	Variants []VariantResponse `json:"variants"`
}

// CreateProduct handles the HTTP POST request for creating a new product.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	fields := model.ProductFields{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   *req.BasePrice,
		Slug:        req.Slug,
	}
	variants := make([]model.VariantPatch, 0, len(req.Variants))
	for _, v := range req.Variants {
		patch := model.VariantPatch{
			MetalType: ptr(model.MetalType(v.MetalType)),
			Price:     v.Price,
			Stock:     v.Stock,
			SKU:       ptr(v.SKU),
		}
		if v.Carat != nil {
			patch.Carat = ptr(decimal.NewNullDecimal(*v.Carat))
		}
		variants = append(variants, patch)
	}

	createdProduct, err := pc.productService.CreateProduct(c.Request.Context(), fields, variants)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProductDetailResponse(createdProduct))
}

// GetProduct handles the HTTP GET request for a single product with its variants.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := pc.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductDetailResponse(product))
}

// UpdateProduct handles the HTTP PUT request for patching a product and reconciling its variants.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	patch := model.ProductPatch{
		Name:      req.Name,
		BasePrice: req.BasePrice,
		Slug:      req.Slug,
	}
	if req.Description.Set {
		patch.Description = &sql.NullString{String: req.Description.Value, Valid: req.Description.Valid}
	}

	variants := make([]model.VariantPatch, 0, len(req.Variants))
	for _, v := range req.Variants {
		variantPatch := model.VariantPatch{
			ID:    v.ID,
			Price: v.Price,
			Stock: v.Stock,
			SKU:   v.SKU,
		}
		if v.MetalType != nil {
			variantPatch.MetalType = ptr(model.MetalType(*v.MetalType))
		}
		if v.Carat.Set {
			variantPatch.Carat = &decimal.NullDecimal{Decimal: v.Carat.Value, Valid: v.Carat.Valid}
		}
		variants = append(variants, variantPatch)
	}

	updatedProduct, err := pc.productService.UpdateProduct(c.Request.Context(), id, patch, variants, req.VariantsToDelete)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductDetailResponse(updatedProduct))
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := pc.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListProductsRequest represents the query parameters for listing products.
type ListProductsRequest struct {
	Limit int32  `form:"limit" binding:"gte=0"`
	Token string `form:"token"`
	Name  string `form:"name"`
	Slug  string `form:"slug"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products      []ProductResponse `json:"products"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// ListProducts handles the HTTP GET request for listing products with pagination.
func (pc *ProductController) ListProducts(c *gin.Context) {
	var req ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" {
		query.With(repository.NameField, req.Name)
	}
	if req.Slug != "" {
		query.With(repository.SlugField, req.Slug)
	}

	products, nextPageToken, err := pc.productService.ListProducts(c.Request.Context(), *query)
	if err != nil {
		writeError(c, err)
		return
	}

	response := ListProductsResponse{
		Products:      make([]ProductResponse, 0, len(products)),
		NextPageToken: nextPageToken,
	}
	for _, product := range products {
		response.Products = append(response.Products, toProductResponse(product))
	}

	c.JSON(http.StatusOK, response)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps a service error to its HTTP status.
func writeError(c *gin.Context, err error) {
	var (
		notFound   *service.NotFoundError
		conflict   *service.ConflictError
		validation *service.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "field": conflict.Field})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error(), "field": validation.Field})
	default:
		slog.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// writeBindError answers 422 for rule violations and 400 for malformed input.
func writeBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := make([]gin.H, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, gin.H{"field": fieldPath(fe), "rule": fe.Tag()})
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
}

func toProductResponse(product *model.Product) ProductResponse {
	return ProductResponse{
		ID:            product.ID.String(),
		Name:          product.Name,
		Description:   product.Description,
		BasePrice:     product.BasePrice,
		Slug:          product.Slug,
		VariantsCount: product.VariantsCount,
		CreatedAt:     product.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     product.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toProductDetailResponse(product *model.Product) ProductDetailResponse {
	response := ProductDetailResponse{
		ProductResponse: toProductResponse(product),
		Variants:        make([]VariantResponse, 0, len(product.Variants)),
	}
	for _, v := range product.Variants {
		variant := VariantResponse{
			ID:        v.ID.String(),
			MetalType: string(v.MetalType),
			Price:     v.Price,
			Stock:     v.Stock,
			SKU:       v.SKU,
			CreatedAt: v.CreatedAt.Format(time.RFC3339Nano),
			UpdatedAt: v.UpdatedAt.Format(time.RFC3339Nano),
		}
		if v.Carat.Valid {
			variant.Carat = &v.Carat.Decimal
		}
		response.Variants = append(response.Variants, variant)
	}
	return response
}

func ptr[T any](v T) *T {
	return &v
}
