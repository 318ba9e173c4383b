package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iyhunko/product-catalog/internal/repository"
)

// TransactionalRepository implements repository.Store over a connection pool.
type TransactionalRepository struct {
	db *sql.DB
}

// NewTransactionalRepository creates a new TransactionalRepository
func NewTransactionalRepository(db *sql.DB) *TransactionalRepository {
	return &TransactionalRepository{db: db}
}

// Repositories returns repositories running directly on the pool.
func (tr *TransactionalRepository) Repositories() repository.Repositories {
	return bindRepositories(tr.db, nil)
}

// WithinTransaction runs fn with repositories bound to a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (tr *TransactionalRepository) WithinTransaction(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := tr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(bindRepositories(tr.db, tx)); err != nil {
		// database/sql already rolled back when ctx was cancelled.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteError(err, "commit transaction")
	}

	return nil
}

func bindRepositories(db *sql.DB, tx *sql.Tx) repository.Repositories {
	return repository.Repositories{
		Products: &ProductRepository{db: db, txn: tx},
		Variants: &VariantRepository{db: db, txn: tx},
		Events:   &EventRepository{db: db, txn: tx},
	}
}
