package sql

import (
	"database/sql"

	"github.com/iyhunko/product-catalog/internal/repository"
)

// TxOf is a test helper that extracts the transaction each repository in repos is bound to.
func TxOf(repos repository.Repositories) (products, variants, events *sql.Tx) {
	return repos.Products.(*ProductRepository).txn,
		repos.Variants.(*VariantRepository).txn,
		repos.Events.(*EventRepository).txn
}
