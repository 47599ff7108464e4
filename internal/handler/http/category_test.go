package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

func sampleCategory(name, slug string) *domain.Category {
	c := &domain.Category{
		ID:       uuid.New(),
		Name:     name,
		Slug:     slug,
		IsActive: true,
	}
	domain.MarkCreated(&c.Audit, testNow)
	return c
}

// =============================================================================
// Categories
// =============================================================================

func TestListCategories_ActiveFilter(t *testing.T) {
	s := newTestServer(t)
	s.categories.On("ListCategories", mock.Anything, true).
		Return([]*domain.Category{sampleCategory("Men", "men")}, nil)

	rec := s.do(t, anonymous, http.MethodGet, "/api/v1/categories?active=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[[]CategoryResponse](t, rec)
	require.Len(t, out, 1)
	assert.Equal(t, "men", out[0].Slug)
}

func TestGetCategoryTree_NestsChildren(t *testing.T) {
	s := newTestServer(t)
	root := sampleCategory("Clothing", "clothing")
	child := sampleCategory("Shirts", "shirts")
	child.ParentID = &root.ID
	child.Level = 1
	root.SubCategories = []*domain.Category{child}

	s.categories.On("GetCategoryTree", mock.Anything).Return([]*domain.Category{root}, nil)

	rec := s.do(t, anonymous, http.MethodGet, "/api/v1/categories/tree", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[[]CategoryResponse](t, rec)
	require.Len(t, out, 1)
	require.Len(t, out[0].SubCategories, 1)
	assert.Equal(t, 1, out[0].SubCategories[0].Level)
}

func TestGetCategory_BySlug(t *testing.T) {
	s := newTestServer(t)
	s.categories.On("GetCategory", mock.Anything, "men").Return(sampleCategory("Men", "men"), nil)

	rec := s.do(t, anonymous, http.MethodGet, "/api/v1/categories/men", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateCategory_Success(t *testing.T) {
	s := newTestServer(t)
	parentID := uuid.New()
	typeID := uuid.New()

	s.categories.On("CreateCategory", mock.Anything, service.CreateCategoryInput{
		Name:     "Shirts",
		ParentID: &parentID,
		VariationTypes: []service.CategoryVariationTypeInput{
			{VariationTypeID: typeID, IsRequired: true},
		},
	}).Return(sampleCategory("Shirts", "shirts"), nil)

	rec := s.do(t, adminUser, http.MethodPost, "/api/v1/categories", CreateCategoryRequest{
		Name:           "Shirts",
		ParentID:       &parentID,
		VariationTypes: []CategoryVariationTypeRequest{{VariationTypeID: typeID, IsRequired: true}},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateCategory_InvalidSlug(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, adminUser, http.MethodPost, "/api/v1/categories", CreateCategoryRequest{Name: "Shirts", Slug: "Not A Slug"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Fields, 1)
	assert.Equal(t, "slug", env.Error.Fields[0].Field)
}

func TestUpdateCategory_ClearParent(t *testing.T) {
	s := newTestServer(t)
	c := sampleCategory("Shirts", "shirts")

	s.categories.On("UpdateCategory", mock.Anything, c.ID, mock.MatchedBy(func(in service.UpdateCategoryInput) bool {
		return in.ClearParent && in.Name == nil && in.VariationTypes == nil
	})).Return(c, nil)

	rec := s.do(t, adminUser, http.MethodPut, "/api/v1/categories/"+c.ID.String(), `{"clear_parent":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateCategory_CycleRejected(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.categories.On("UpdateCategory", mock.Anything, id, mock.Anything).
		Return(nil, apperrors.InvalidInput("a category cannot be moved under its own descendant"))

	rec := s.do(t, adminUser, http.MethodPut, "/api/v1/categories/"+id.String(), `{"parent_id":"`+uuid.NewString()+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCategory_HasChildren(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.categories.On("DeleteCategory", mock.Anything, id).
		Return(apperrors.ConflictCode(domain.ErrCodeCategoryHasSubcategories, "category has subcategories"))

	rec := s.do(t, adminUser, http.MethodDelete, "/api/v1/categories/"+id.String(), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, domain.ErrCodeCategoryHasSubcategories, env.Error.Code)
}

// =============================================================================
// Variation types
// =============================================================================

func TestCreateVariationType(t *testing.T) {
	s := newTestServer(t)
	vt := &domain.VariationType{ID: uuid.New(), Name: "color", DisplayName: "Color", IsActive: true}

	s.variationTypes.On("CreateVariationType", mock.Anything, service.VariationTypeInput{
		Name:        "color",
		DisplayName: "Color",
		Options: []domain.OptionSpec{
			{Value: "red", DisplayValue: "Red"},
			{Value: "blue", SortOrder: 1},
		},
	}).Return(vt, nil)

	rec := s.do(t, adminUser, http.MethodPost, "/api/v1/variation-types", CreateVariationTypeRequest{
		Name:        "color",
		DisplayName: "Color",
		Options: []VariantOptionRequest{
			{Value: "red", DisplayValue: "Red"},
			{Value: "blue", SortOrder: 1},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeData[VariationTypeResponse](t, rec)
	assert.Equal(t, "Color", out.DisplayName)
}

func TestUpdateVariationType_OptionInUse(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.variationTypes.On("UpdateVariationType", mock.Anything, id, mock.MatchedBy(func(in service.UpdateVariationTypeInput) bool {
		return in.Options != nil && len(*in.Options) == 1
	})).Return(nil, apperrors.ConflictCode(domain.ErrCodeVariationOptionInUse, "options in use: red"))

	rec := s.do(t, adminUser, http.MethodPut, "/api/v1/variation-types/"+id.String(), `{"options":[{"value":"blue"}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, domain.ErrCodeVariationOptionInUse, env.Error.Code)
}

func TestDeleteVariationType_ReportsOutcome(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	s.variationTypes.On("DeleteVariationType", mock.Anything, id).Return(service.RemovalDeactivated, nil)

	rec := s.do(t, adminUser, http.MethodDelete, "/api/v1/variation-types/"+id.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[map[string]string](t, rec)
	assert.Equal(t, "deactivated", out["status"])
}

// =============================================================================
// Router
// =============================================================================

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_MalformedUserHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/variation-types", nil)
	req.Body = http.NoBody
	req.ContentLength = 4
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-User-ID", adminUser.userID.String())
	req.Header.Set("X-User-Role", adminUser.role)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
