package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

func TestVariationTypeRepository_Create_InsertsOptions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	vt := sampleVariationType()
	mock.ExpectExec("INSERT INTO variation_types").
		WithArgs(vt.ID, vt.Name, vt.DisplayName, vt.IsActive, vt.CreatedAt, vt.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, o := range vt.Options {
		mock.ExpectExec("INSERT INTO variant_options").
			WithArgs(o.ID, o.VariationTypeID, o.Value, o.DisplayValue, o.SortOrder).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, repo.Create(context.Background(), &vt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_Create_DuplicateName(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	vt := sampleVariationType()
	mock.ExpectExec("INSERT INTO variation_types").
		WithArgs(anyArgs(6)...).
		WillReturnError(uniqueViolation("uq_variation_types_name"))

	err := repo.Create(context.Background(), &vt)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_Update_RemovesBeforeAdding(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	vt := sampleVariationType()
	removed := vt.Options[1]
	kept := vt.Options[0]
	added := domain.VariantOption{ID: uuid.New(), VariationTypeID: vt.ID, Value: "green", DisplayValue: "Green"}

	mock.ExpectExec("UPDATE variation_types").
		WithArgs(vt.Name, vt.DisplayName, vt.IsActive, vt.UpdatedAt, vt.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM variant_options").
		WithArgs([]uuid.UUID{removed.ID}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE variant_options").
		WithArgs(kept.Value, kept.DisplayValue, kept.SortOrder, kept.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO variant_options").
		WithArgs(added.ID, added.VariationTypeID, added.Value, added.DisplayValue, added.SortOrder).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	changes := domain.OptionChanges{
		Added:   []domain.VariantOption{added},
		Kept:    []domain.VariantOption{kept},
		Removed: []domain.VariantOption{removed},
	}
	require.NoError(t, repo.Update(context.Background(), &vt, changes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_Update_RemovedOptionInUse(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	vt := sampleVariationType()
	mock.ExpectExec("UPDATE variation_types").
		WithArgs(anyArgs(5)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM variant_options").
		WithArgs([]uuid.UUID{vt.Options[0].ID}).
		WillReturnError(foreignKeyViolation("fk_product_variant_options_option"))

	err := repo.Update(context.Background(), &vt, domain.OptionChanges{Removed: vt.Options[:1]})
	assert.True(t, apperrors.HasCode(err, domain.ErrCodeVariationOptionInUse))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_GetByID_AttachesOptions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	vt := sampleVariationType()
	mock.ExpectQuery("SELECT .+ FROM variation_types WHERE id").
		WithArgs(vt.ID).
		WillReturnRows(pgxmock.NewRows(variationTypeCols).AddRow(variationTypeRow(vt)...))
	mock.ExpectQuery("FROM variant_options").
		WithArgs([]uuid.UUID{vt.ID}).
		WillReturnRows(pgxmock.NewRows(optionCols).
			AddRow(optionRow(vt.Options[0])...).
			AddRow(optionRow(vt.Options[1])...))

	got, err := repo.GetByID(context.Background(), vt.ID)
	require.NoError(t, err)
	assert.Equal(t, vt.Options, got.Options)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_GetByIDs_EmptySkipsQuery(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	types, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, types)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_NameExists(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	exclude := uuid.New()
	mock.ExpectQuery(`LOWER\(name\) = LOWER\(\$1\)`).
		WithArgs("Color", exclude).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.NameExists(context.Background(), "Color", exclude)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_IsReferenced(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	id := uuid.New()
	mock.ExpectQuery("FROM category_variation_types").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"referenced"}).AddRow(false))

	referenced, err := repo.IsReferenced(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, referenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_OptionsInUse(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT DISTINCT option_id FROM product_variant_options").
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(pgxmock.NewRows([]string{"option_id"}).AddRow(b))

	used, err := repo.OptionsInUse(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariationTypeRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewVariationTypeRepository(mock)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM variation_types").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
