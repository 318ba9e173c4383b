package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Bounds of the numeric catalog columns. Values are rounded to two places on write.
var (
	maxPrice = decimal.RequireFromString("99999999.99") // NUMERIC(10,2)
	maxCarat = decimal.RequireFromString("999.99")      // NUMERIC(5,2)
)

const maxStock = math.MaxInt32

// checkAmount rejects negative values and values the column cannot hold.
func checkAmount(field string, value, limit decimal.Decimal) error {
	if value.IsNegative() {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	if value.Round(2).GreaterThan(limit) {
		return &ValidationError{Field: field, Message: "must not exceed " + limit.StringFixed(2)}
	}
	return nil
}

func checkStock(field string, stock int) error {
	if stock < 0 {
		return &ValidationError{Field: field, Message: "must not be negative"}
	}
	if stock > maxStock {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d", maxStock)}
	}
	return nil
}
