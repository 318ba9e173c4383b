package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog product and the live variants it owns.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description *string
	BasePrice   decimal.Decimal
	Slug        string
	UpdatedAt   time.Time
	CreatedAt   time.Time
	DeletedAt   *time.Time

	// Variants is only populated when the product is loaded with its variants.
	Variants []*Variant
	// VariantsCount is the number of live variants at read time.
	VariantsCount int
}

// InitMeta initializes the product metadata including ID and timestamps.
// IDs are version 7 UUIDs so that they sort in insertion order.
func (p *Product) InitMeta() {
	p.ID = uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// IsLive reports whether the product has not been soft-deleted.
func (p *Product) IsLive() bool {
	return p.DeletedAt == nil
}

// ProductFields holds the fields supplied when creating a product.
type ProductFields struct {
	Name        string
	Description *string
	BasePrice   decimal.Decimal
	// Slug is generated from Name when nil or empty.
	Slug *string
}

// ProductPatch is a partial product update. A nil field means no change.
type ProductPatch struct {
	Name *string
	// Description with Valid=false clears the description.
	Description *sql.NullString
	BasePrice   *decimal.Decimal
	Slug        *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.BasePrice == nil && p.Slug == nil
}
