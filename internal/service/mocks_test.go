package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/catalog/internal/client"
	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
)

// --- Mock Repositories ---

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockCategoryRepository) AncestorIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockCategoryRepository) ShiftDescendantLevels(ctx context.Context, id uuid.UUID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *mockCategoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

type mockVariationTypeRepository struct {
	mock.Mock
}

func (m *mockVariationTypeRepository) Create(ctx context.Context, vt *domain.VariationType) error {
	return m.Called(ctx, vt).Error(0)
}

func (m *mockVariationTypeRepository) Update(ctx context.Context, vt *domain.VariationType, changes domain.OptionChanges) error {
	return m.Called(ctx, vt, changes).Error(0)
}

func (m *mockVariationTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockVariationTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VariationType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.VariationType, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeRepository) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockVariationTypeRepository) List(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VariationType), args.Error(1)
}

func (m *mockVariationTypeRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockVariationTypeRepository) OptionsInUse(ctx context.Context, optionIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, optionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockProductRepository) product(args mock.Arguments) (*domain.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return m.product(m.Called(ctx, slug))
}

func (m *mockProductRepository) GetWithVariants(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *mockProductRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *mockProductRepository) GetWithReviews(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *mockProductRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) SKUsInUse(ctx context.Context, skus []string, excludeProductID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, skus, excludeProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockProductRepository) UpdateRating(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	return m.Called(ctx, id, summary).Error(0)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, r *domain.ProductReview) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReviewRepository) Update(ctx context.Context, r *domain.ProductReview) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductReview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductReview), args.Error(1)
}

func (m *mockReviewRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductReview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductReview), args.Error(1)
}

func (m *mockReviewRepository) ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, productID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]*domain.ProductReview, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.ProductReview), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) RatingHistogram(ctx context.Context, productID uuid.UUID) (map[int]int, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *mockReviewRepository) GetVote(ctx context.Context, reviewID, userID uuid.UUID) (*domain.ReviewVote, error) {
	args := m.Called(ctx, reviewID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewVote), args.Error(1)
}

func (m *mockReviewRepository) InsertVote(ctx context.Context, v *domain.ReviewVote) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockReviewRepository) UpdateVote(ctx context.Context, v *domain.ReviewVote) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockReviewRepository) DeleteVote(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockReviewRepository) VotesByUser(ctx context.Context, userID uuid.UUID, reviewIDs []uuid.UUID) (map[uuid.UUID]domain.VoteType, error) {
	args := m.Called(ctx, userID, reviewIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]domain.VoteType), args.Error(1)
}

// --- Unit of Work ---

// fakeUnitOfWork runs fn against the same mocks and counts transactions.
type fakeUnitOfWork struct {
	repos     repository.Repositories
	calls     int
	failAfter int
	failErr   error
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	u.calls++
	if u.failErr != nil && u.calls > u.failAfter {
		return u.failErr
	}
	return fn(ctx, u.repos)
}

// --- Mock Collaborators ---

type mockOrderHistory struct {
	mock.Mock
}

func (m *mockOrderHistory) HasReceivedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderHistory) IsVariantReferenced(ctx context.Context, variantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, variantID)
	return args.Bool(0), args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*client.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.User), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishProductCreated(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockEventPublisher) PublishProductUpdated(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockEventPublisher) PublishProductDeleted(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockEventPublisher) PublishRatingRecalculated(ctx context.Context, productID string, summary domain.RatingSummary) error {
	return m.Called(ctx, productID, summary).Error(0)
}

func (m *mockEventPublisher) PublishReviewSubmitted(ctx context.Context, r *domain.ProductReview) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockEventPublisher) PublishReviewDeleted(ctx context.Context, r *domain.ProductReview) error {
	return m.Called(ctx, r).Error(0)
}

// --- Test Helpers ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mocks struct {
	categories *mockCategoryRepository
	types      *mockVariationTypeRepository
	products   *mockProductRepository
	reviews    *mockReviewRepository
	orders     *mockOrderHistory
	users      *mockUserDirectory
	events     *mockEventPublisher
	uow        *fakeUnitOfWork
}

func newMocks(t *testing.T) *mocks {
	t.Helper()
	m := &mocks{
		categories: &mockCategoryRepository{},
		types:      &mockVariationTypeRepository{},
		products:   &mockProductRepository{},
		reviews:    &mockReviewRepository{},
		orders:     &mockOrderHistory{},
		users:      &mockUserDirectory{},
		events:     &mockEventPublisher{},
	}
	m.uow = &fakeUnitOfWork{repos: m.repos()}
	t.Cleanup(func() {
		m.categories.AssertExpectations(t)
		m.types.AssertExpectations(t)
		m.products.AssertExpectations(t)
		m.reviews.AssertExpectations(t)
		m.orders.AssertExpectations(t)
		m.users.AssertExpectations(t)
		m.events.AssertExpectations(t)
	})
	return m
}

func (m *mocks) repos() repository.Repositories {
	return repository.Repositories{
		Categories:     m.categories,
		VariationTypes: m.types,
		Products:       m.products,
		Reviews:        m.reviews,
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return testNow }

func (m *mocks) categoryService() *CategoryService {
	s := NewCategoryService(m.uow, m.repos(), newTestLogger())
	s.now = fixedNow
	return s
}

func (m *mocks) variationTypeService() *VariationTypeService {
	s := NewVariationTypeService(m.uow, m.repos(), newTestLogger())
	s.now = fixedNow
	return s
}

func (m *mocks) productService() *ProductService {
	s := NewProductService(m.uow, m.repos(), m.orders, m.events, newTestLogger())
	s.now = fixedNow
	return s
}

func (m *mocks) reviewService() *ReviewService {
	s := NewReviewService(ReviewServiceDeps{
		UnitOfWork:   m.uow,
		Repositories: m.repos(),
		Orders:       m.orders,
		Users:        m.users,
		Events:       m.events,
		Logger:       newTestLogger(),
	})
	s.now = fixedNow
	return s
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func boolPtr(b bool) *bool { return &b }
