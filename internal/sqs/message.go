package sqs

import (
	"github.com/shopspring/decimal"
)

// Product notification actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// VariantChanges summarizes the variant writes of one mutation.
type VariantChanges struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// ProductMessage is the notification published for every committed product mutation.
type ProductMessage struct {
	Action        string          `json:"action"`
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	BasePrice     decimal.Decimal `json:"base_price"`
	VariantsCount int             `json:"variants_count"`
	SKUs          []string        `json:"skus,omitempty"`
	Variants      *VariantChanges `json:"variants,omitempty"`
}
