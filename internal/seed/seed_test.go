package seed

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/logger"
)

type mockTypes struct{ mock.Mock }

func (m *mockTypes) ListVariationTypes(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]*domain.VariationType), args.Error(1)
}

func (m *mockTypes) CreateVariationType(ctx context.Context, in service.VariationTypeInput) (*domain.VariationType, error) {
	m.Called(ctx, in)
	return variationType(in.Name, in.Options), nil
}

type mockCategories struct{ mock.Mock }

func (m *mockCategories) GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategories) CreateCategory(ctx context.Context, in service.CreateCategoryInput) (*domain.Category, error) {
	m.Called(ctx, in)
	return &domain.Category{ID: uuid.New(), Name: in.Name, Slug: in.Slug, ParentID: in.ParentID}, nil
}

type mockProducts struct {
	mock.Mock
	created []service.ProductInput
}

func (m *mockProducts) CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	m.created = append(m.created, in)
	return &domain.Product{ID: uuid.New(), Name: in.Name}, nil
}

func variationType(name string, specs []domain.OptionSpec) *domain.VariationType {
	vt := &domain.VariationType{ID: uuid.New(), Name: name, IsActive: true}
	for _, s := range specs {
		vt.Options = append(vt.Options, domain.VariantOption{
			ID:              uuid.New(),
			VariationTypeID: vt.ID,
			Value:           s.Value,
			DisplayValue:    s.DisplayValue,
			SortOrder:       s.SortOrder,
		})
	}
	return vt
}

func existingTypes() []*domain.VariationType {
	out := make([]*domain.VariationType, 0, len(variationTypeDefs))
	for _, def := range variationTypeDefs {
		var specs []domain.OptionSpec
		for _, o := range def.Options {
			specs = append(specs, domain.OptionSpec{Value: o.Value, DisplayValue: o.Display})
		}
		out = append(out, variationType(def.Name, specs))
	}
	return out
}

func TestRun_EmptyCatalog(t *testing.T) {
	types, categories, products := new(mockTypes), new(mockCategories), new(mockProducts)
	ctx := context.Background()

	types.On("ListVariationTypes", ctx, false).Return([]*domain.VariationType{}, nil)
	types.On("CreateVariationType", ctx, mock.Anything).Times(2)
	categories.On("GetCategory", ctx, mock.Anything).Return(nil, apperrors.NotFound("category", "x"))
	categories.On("CreateCategory", ctx, mock.Anything)
	products.On("CreateProduct", ctx, mock.Anything).Return(nil, nil)

	res, err := New(types, categories, products, logger.Discard(), 7).Run(ctx, 14)
	require.NoError(t, err)

	assert.Equal(t, 2, res.VariationTypes)
	assert.Equal(t, 11, res.Categories)
	assert.Equal(t, 14, res.Products)
	assert.Zero(t, res.Skipped)
	types.AssertExpectations(t)

	skus := map[string]bool{}
	for _, p := range products.created {
		require.NotNil(t, p.CategoryID)
		require.NotEmpty(t, p.Variants)
		for _, v := range p.Variants {
			require.NotNil(t, v.SKU)
			assert.False(t, skus[*v.SKU], "duplicate sku %s", *v.SKU)
			skus[*v.SKU] = true
			assert.Len(t, v.SelectedOptions, len(p.VariationTypeIDs))
		}
	}
}

func TestRun_ReusesExistingAndSkipsDuplicates(t *testing.T) {
	types, categories, products := new(mockTypes), new(mockCategories), new(mockProducts)
	ctx := context.Background()

	types.On("ListVariationTypes", ctx, false).Return(existingTypes(), nil)
	categories.On("GetCategory", ctx, mock.Anything).Return(&domain.Category{ID: uuid.New()}, nil)
	products.On("CreateProduct", ctx, mock.Anything).
		Return(nil, apperrors.AlreadyExists("product", "slug", "x")).Once()
	products.On("CreateProduct", ctx, mock.Anything).Return(nil, nil)

	res, err := New(types, categories, products, logger.Discard(), 7).Run(ctx, 3)
	require.NoError(t, err)

	assert.Zero(t, res.VariationTypes)
	assert.Zero(t, res.Categories)
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, 1, res.Skipped)
	types.AssertNotCalled(t, "CreateVariationType", mock.Anything, mock.Anything)
	categories.AssertNotCalled(t, "CreateCategory", mock.Anything, mock.Anything)
}

func TestRun_DeterministicForSeed(t *testing.T) {
	run := func() []service.ProductInput {
		types, categories, products := new(mockTypes), new(mockCategories), new(mockProducts)
		ctx := context.Background()
		types.On("ListVariationTypes", ctx, false).Return(existingTypes(), nil)
		categories.On("GetCategory", ctx, mock.Anything).Return(&domain.Category{ID: uuid.New()}, nil)
		products.On("CreateProduct", ctx, mock.Anything).Return(nil, nil)

		_, err := New(types, categories, products, logger.Discard(), 99).Run(ctx, 5)
		require.NoError(t, err)
		return products.created
	}

	first, second := run(), run()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].BasePrice, second[i].BasePrice)
		assert.Len(t, second[i].Variants, len(first[i].Variants))
	}
}

func TestRun_StopsOnProductError(t *testing.T) {
	types, categories, products := new(mockTypes), new(mockCategories), new(mockProducts)
	ctx := context.Background()

	types.On("ListVariationTypes", ctx, false).Return(existingTypes(), nil)
	categories.On("GetCategory", ctx, mock.Anything).Return(&domain.Category{ID: uuid.New()}, nil)
	products.On("CreateProduct", ctx, mock.Anything).Return(nil, apperrors.Internal(assert.AnError))

	res, err := New(types, categories, products, logger.Discard(), 1).Run(ctx, 5)
	require.Error(t, err)
	assert.Zero(t, res.Products)
	products.AssertNumberOfCalls(t, "CreateProduct", 1)
}
