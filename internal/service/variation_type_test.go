package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

func colorType() *domain.VariationType {
	id := uuid.New()
	return &domain.VariationType{
		ID:          id,
		Name:        "color",
		DisplayName: "Color",
		IsActive:    true,
		Options: []domain.VariantOption{
			{ID: uuid.New(), VariationTypeID: id, Value: "Red", DisplayValue: "Red", SortOrder: 1},
			{ID: uuid.New(), VariationTypeID: id, Value: "Blue", DisplayValue: "Blue", SortOrder: 2},
		},
	}
}

func TestCreateVariationType_DuplicateName(t *testing.T) {
	m := newMocks(t)
	m.types.On("NameExists", mock.Anything, "Color", uuid.Nil).Return(true, nil)

	_, err := m.variationTypeService().CreateVariationType(context.Background(), VariationTypeInput{
		Name:    "Color",
		Options: []domain.OptionSpec{{Value: "Red"}},
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))
	m.types.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateVariationType_DuplicateOptionValues(t *testing.T) {
	m := newMocks(t)

	_, err := m.variationTypeService().CreateVariationType(context.Background(), VariationTypeInput{
		Name:    "Color",
		Options: []domain.OptionSpec{{Value: "Red"}, {Value: " red "}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 0, m.uow.calls)
}

func TestCreateVariationType_Success(t *testing.T) {
	m := newMocks(t)
	m.types.On("NameExists", mock.Anything, "Size", uuid.Nil).Return(false, nil)
	m.types.On("Create", mock.Anything, mock.AnythingOfType("*domain.VariationType")).Return(nil)

	vt, err := m.variationTypeService().CreateVariationType(context.Background(), VariationTypeInput{
		Name:    "Size",
		Options: []domain.OptionSpec{{Value: "L", SortOrder: 2}, {Value: "S", SortOrder: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Size", vt.DisplayName)
	require.Len(t, vt.Options, 2)
	assert.Equal(t, "S", vt.Options[0].Value)
}

func TestUpdateVariationType_KeepsSurvivingOptionIDs(t *testing.T) {
	m := newMocks(t)
	vt := colorType()
	red := vt.Options[0]
	blue := vt.Options[1]

	m.types.On("GetByID", mock.Anything, vt.ID).Return(vt, nil)
	m.types.On("OptionsInUse", mock.Anything, []uuid.UUID{blue.ID}).Return([]uuid.UUID{}, nil)
	m.types.On("Update", mock.Anything, vt, mock.MatchedBy(func(c domain.OptionChanges) bool {
		return len(c.Kept) == 1 && c.Kept[0].ID == red.ID &&
			len(c.Added) == 1 && c.Added[0].Value == "Green" &&
			len(c.Removed) == 1 && c.Removed[0].ID == blue.ID
	})).Return(nil)

	options := []domain.OptionSpec{{Value: "RED", DisplayValue: "Crimson"}, {Value: "Green"}}
	updated, err := m.variationTypeService().UpdateVariationType(context.Background(), vt.ID, UpdateVariationTypeInput{
		Options: &options,
	})

	require.NoError(t, err)
	opt, ok := updated.Option(red.ID)
	require.True(t, ok)
	assert.Equal(t, "Crimson", opt.DisplayValue)
}

func TestUpdateVariationType_RemovedOptionInUse(t *testing.T) {
	m := newMocks(t)
	vt := colorType()
	blue := vt.Options[1]

	m.types.On("GetByID", mock.Anything, vt.ID).Return(vt, nil)
	m.types.On("OptionsInUse", mock.Anything, []uuid.UUID{blue.ID}).Return([]uuid.UUID{blue.ID}, nil)

	options := []domain.OptionSpec{{Value: "Red"}}
	_, err := m.variationTypeService().UpdateVariationType(context.Background(), vt.ID, UpdateVariationTypeInput{
		Options: &options,
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, domain.ErrCodeVariationOptionInUse))
	assert.Contains(t, err.Error(), "Blue")
	m.types.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateVariationType_RenameChecksOtherTypes(t *testing.T) {
	m := newMocks(t)
	vt := colorType()

	m.types.On("GetByID", mock.Anything, vt.ID).Return(vt, nil)
	m.types.On("NameExists", mock.Anything, "size", vt.ID).Return(true, nil)

	_, err := m.variationTypeService().UpdateVariationType(context.Background(), vt.ID, UpdateVariationTypeInput{
		Name: strPtr("size"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestDeleteVariationType(t *testing.T) {
	t.Run("unreferenced is deleted", func(t *testing.T) {
		m := newMocks(t)
		vt := colorType()
		m.types.On("GetByID", mock.Anything, vt.ID).Return(vt, nil)
		m.types.On("IsReferenced", mock.Anything, vt.ID).Return(false, nil)
		m.types.On("Delete", mock.Anything, vt.ID).Return(nil)

		outcome, err := m.variationTypeService().DeleteVariationType(context.Background(), vt.ID)

		require.NoError(t, err)
		assert.Equal(t, RemovalDeleted, outcome)
	})

	t.Run("referenced is deactivated", func(t *testing.T) {
		m := newMocks(t)
		vt := colorType()
		m.types.On("GetByID", mock.Anything, vt.ID).Return(vt, nil)
		m.types.On("IsReferenced", mock.Anything, vt.ID).Return(true, nil)
		m.types.On("Update", mock.Anything, vt, domain.OptionChanges{Kept: vt.Options}).Return(nil)

		outcome, err := m.variationTypeService().DeleteVariationType(context.Background(), vt.ID)

		require.NoError(t, err)
		assert.Equal(t, RemovalDeactivated, outcome)
		assert.False(t, vt.IsActive)
		m.types.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
