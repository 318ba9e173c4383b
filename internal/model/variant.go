package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetalType is the metal a variant is made of.
type MetalType string

const (
	MetalTypeGold      MetalType = "gold"
	MetalTypeWhiteGold MetalType = "white_gold"
	MetalTypePlatinum  MetalType = "platinum"

	// DefaultMetalType is applied to new variants that omit a metal type.
	DefaultMetalType = MetalTypeGold
)

// MetalTypes lists every accepted metal type.
var MetalTypes = []MetalType{MetalTypeGold, MetalTypeWhiteGold, MetalTypePlatinum}

// Valid reports whether m is one of the known metal types.
func (m MetalType) Valid() bool {
	switch m {
	case MetalTypeGold, MetalTypeWhiteGold, MetalTypePlatinum:
		return true
	}
	return false
}

// Variant is a sellable SKU of a product.
type Variant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Carat     decimal.NullDecimal
	MetalType MetalType
	Price     decimal.Decimal
	Stock     int
	SKU       string
	UpdatedAt time.Time
	CreatedAt time.Time
	DeletedAt *time.Time
}

// InitMeta initializes the variant metadata including ID and timestamps.
func (v *Variant) InitMeta() {
	v.ID = uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
}

// IsLive reports whether the variant has not been soft-deleted.
func (v *Variant) IsLive() bool {
	return v.DeletedAt == nil
}

// VariantPatch describes one entry of a client supplied variant list.
// A patch with an ID targets an existing variant, one without creates a new variant.
// Nil fields are left untouched on update and defaulted on create.
type VariantPatch struct {
	ID *uuid.UUID
	// Carat with Valid=false clears the carat.
	Carat     *decimal.NullDecimal
	MetalType *MetalType
	Price     *decimal.Decimal
	Stock     *int
	SKU       *string
}
