// Package postgres implements the catalog repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// NewRepositories binds all repositories to db, which may be a pool or a
// transaction.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Categories:     NewCategoryRepository(db),
		VariationTypes: NewVariationTypeRepository(db),
		Products:       NewProductRepository(db),
		Reviews:        NewReviewRepository(db),
	}
}

// trace starts a span and latency observation for one repository operation.
// Not-found results are not counted as failures.
//
//	ctx, done := trace(ctx, "category.get", q)
//	defer done(&err)
func trace(ctx context.Context, operation, statement string) (context.Context, func(*error)) {
	ctx, end := database.TraceQuery(ctx, operation, statement)
	return ctx, func(errp *error) {
		err := *errp
		if errors.Is(err, apperrors.ErrNotFound) {
			err = nil
		}
		end(err)
	}
}

// noRows maps pgx.ErrNoRows to a NotFound error for resource id.
func noRows(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(resource, id)
	}
	return err
}

func collectUUIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
