package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/pkg/health"
	"github.com/utafrali/catalog/pkg/httputil"
	"github.com/utafrali/catalog/pkg/logger"
	"github.com/utafrali/catalog/pkg/middleware"
	"github.com/utafrali/catalog/pkg/pagination"
)

// =============================================================================
// Service mocks
// =============================================================================

type mockCategoryService struct{ mock.Mock }

func (m *mockCategoryService) CreateCategory(ctx context.Context, in service.CreateCategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, in service.UpdateCategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategoryService) GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryService) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *mockCategoryService) GetCategoryTree(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Category), args.Error(1)
}

type mockVariationTypeService struct{ mock.Mock }

func (m *mockVariationTypeService) CreateVariationType(ctx context.Context, in service.VariationTypeInput) (*domain.VariationType, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeService) UpdateVariationType(ctx context.Context, id uuid.UUID, in service.UpdateVariationTypeInput) (*domain.VariationType, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeService) DeleteVariationType(ctx context.Context, id uuid.UUID) (service.RemovalOutcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.RemovalOutcome), args.Error(1)
}

func (m *mockVariationTypeService) GetVariationType(ctx context.Context, id uuid.UUID) (*domain.VariationType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeService) ListVariationTypes(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]*domain.VariationType), args.Error(1)
}

type mockProductService struct{ mock.Mock }

func (m *mockProductService) CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductService) ListProducts(ctx context.Context, in service.ListProductsInput) (*pagination.Result[*domain.Product], error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Result[*domain.Product]), args.Error(1)
}

type mockReviewService struct{ mock.Mock }

func (m *mockReviewService) SubmitReview(ctx context.Context, in service.SubmitReviewInput) (*service.ReviewView, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewView), args.Error(1)
}

func (m *mockReviewService) UpdateReview(ctx context.Context, in service.UpdateReviewInput) (*service.ReviewView, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewView), args.Error(1)
}

func (m *mockReviewService) DeleteReview(ctx context.Context, productID, reviewID uuid.UUID, actor domain.Actor) error {
	return m.Called(ctx, productID, reviewID, actor).Error(0)
}

func (m *mockReviewService) GetReview(ctx context.Context, productID, reviewID uuid.UUID) (*service.ReviewView, error) {
	args := m.Called(ctx, productID, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewView), args.Error(1)
}

func (m *mockReviewService) ListReviews(ctx context.Context, in service.ListReviewsInput) (*service.ReviewList, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewList), args.Error(1)
}

func (m *mockReviewService) VoteReview(ctx context.Context, productID, reviewID, voterID uuid.UUID, vt domain.VoteType) (*service.VoteResult, error) {
	args := m.Called(ctx, productID, reviewID, voterID, vt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VoteResult), args.Error(1)
}

// =============================================================================
// Test helpers
// =============================================================================

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type testServer struct {
	categories     *mockCategoryService
	variationTypes *mockVariationTypeService
	products       *mockProductService
	reviews        *mockReviewService
	handler        http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		categories:     new(mockCategoryService),
		variationTypes: new(mockVariationTypeService),
		products:       new(mockProductService),
		reviews:        new(mockReviewService),
	}
	s.handler = NewRouter(Deps{
		Categories:     s.categories,
		VariationTypes: s.variationTypes,
		Products:       s.products,
		Reviews:        s.reviews,
		Health:         health.NewHandler(),
		CORS:           middleware.DefaultCORSConfig(),
		Logger:         logger.Discard(),
	})
	t.Cleanup(func() {
		s.categories.AssertExpectations(t)
		s.variationTypes.AssertExpectations(t)
		s.products.AssertExpectations(t)
		s.reviews.AssertExpectations(t)
	})
	return s
}

// caller identifies the request sender via gateway headers.
type caller struct {
	userID uuid.UUID
	role   string
}

var (
	anonymous = caller{}
	adminUser = caller{userID: uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001"), role: middleware.RoleAdmin}
	shopper   = caller{userID: uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000002"), role: "customer"}
)

func (s *testServer) do(t *testing.T, as caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as.userID != uuid.Nil {
		req.Header.Set(middleware.HeaderUserID, as.userID.String())
		req.Header.Set(middleware.HeaderUserRole, as.role)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors httputil.Response with the data left raw.
type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func strPtr(s string) *string { return &s }
