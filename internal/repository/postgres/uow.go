package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/database"
)

// UnitOfWork implements repository.UnitOfWork on a pool.
type UnitOfWork struct {
	db database.TxBeginner
}

// NewUnitOfWork creates a unit of work that opens transactions on db.
func NewUnitOfWork(db database.TxBeginner) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do runs fn with repositories bound to a new read-committed transaction.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return database.InTx(ctx, u.db, func(tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}
