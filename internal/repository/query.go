package repository

import (
	"errors"
	"log/slog"
)

const (
	IDField          QueryField = "id"
	NameField        QueryField = "name"
	DescriptionField QueryField = "description"
	BasePriceField   QueryField = "base_price"
	SlugField        QueryField = "slug"
	ProductIDField   QueryField = "product_id"
	CaratField       QueryField = "carat"
	MetalTypeField   QueryField = "metal_type"
	PriceField       QueryField = "price"
	StockField       QueryField = "stock"
	SKUField         QueryField = "sku"
	CreatedAtField   QueryField = "created_at"
)

// Query filters list reads. Values are matched for equality.
type Query struct {
	Values map[QueryField]string

	// Limit caps the number of rows. Zero means the repository default.
	Limit int

	Paginator *Paginator
}

type QueryField string

func NewQuery() *Query {
	return &Query{
		Values: map[QueryField]string{},
	}
}

func (q *Query) With(field QueryField, val string) *Query {
	q.Values[field] = val
	return q
}

func (q *Query) ApplyPagination(limit int32, token string) error {
	queryLimit := DefaultPaginationLimit
	if limit > 0 {
		queryLimit = min(maxPaginationLimit, int(limit))
	}
	q.Limit = queryLimit

	if token == "" {
		return nil
	}

	paginator, err := DecodePageToken(token)
	if err != nil {
		slog.Error("failed to decode page token", slog.Any("err", err), slog.String("token", token))
		return errors.New("invalid page token")
	}
	q.Paginator = paginator
	return nil
}
