package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
)

// ProductFilter defines filter criteria for listing products. Deleted
// products are never listed.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     *string
	MinPrice   *int64
	MaxPrice   *int64
	IsActive   *bool
	InStock    *bool
	SortBy     string
	Page       int
	PerPage    int
}

// ReviewFilter defines filter criteria for listing a product's reviews.
// Deleted reviews are never listed.
type ReviewFilter struct {
	ProductID uuid.UUID
	SortBy    string
	Page      int
	PerPage   int
}

// CategoryRepository persists categories and their variation type
// associations.
type CategoryRepository interface {
	// Create inserts a category and its associations.
	Create(ctx context.Context, c *domain.Category) error

	// Update rewrites a category row and replaces its associations.
	Update(ctx context.Context, c *domain.Category) error

	// Delete removes a category. Products in it keep existing with no category.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a category with its associations.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)

	// GetBySlug retrieves a category with its associations.
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// SlugExists reports whether another category (not excludeID) uses slug.
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// CountChildren counts direct subcategories in any state.
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)

	// AncestorIDs returns id followed by its ancestors up to the root.
	AncestorIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	// ShiftDescendantLevels adds delta to the level of every descendant of id.
	ShiftDescendantLevels(ctx context.Context, id uuid.UUID, delta int) error

	// List returns categories with their associations as a flat list.
	List(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
}

// VariationTypeRepository persists variation types and their options.
type VariationTypeRepository interface {
	// Create inserts a variation type and its options.
	Create(ctx context.Context, vt *domain.VariationType) error

	// Update rewrites the type row and applies the option changes.
	Update(ctx context.Context, vt *domain.VariationType, changes domain.OptionChanges) error

	// Delete removes a variation type and its options.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a variation type with its options.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VariationType, error)

	// GetByIDs retrieves the variation types that exist among ids.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.VariationType, error)

	// NameExists reports whether another type (not excludeID) uses name,
	// compared case-insensitively.
	NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)

	// List returns variation types with their options ordered by name.
	List(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error)

	// IsReferenced reports whether a category or a variant uses the type.
	IsReferenced(ctx context.Context, id uuid.UUID) (bool, error)

	// OptionsInUse returns those option ids that some variant selects.
	OptionsInUse(ctx context.Context, optionIDs []uuid.UUID) ([]uuid.UUID, error)
}

// ProductRepository persists the product aggregate. The Get* methods return
// the aggregate in different load shapes; none of them return deleted
// products.
type ProductRepository interface {
	// Create inserts a product with its variation types, images and variants.
	Create(ctx context.Context, p *domain.Product) error

	// Update rewrites the product row and synchronizes variation types, images
	// and variants: variants missing from p.Variants are deleted.
	Update(ctx context.Context, p *domain.Product) error

	// SoftDelete stamps deleted_at.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error

	// GetByID loads the product row and its variation type ids.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// GetBySlug is GetByID keyed by slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// GetWithVariants loads the product and all its variants.
	GetWithVariants(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// GetWithDetails loads the product, its variants and its images.
	GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// GetWithReviews loads the product and its non-deleted reviews.
	GetWithReviews(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// SlugExists reports whether another product (not excludeID) uses slug.
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// SKUsInUse returns those skus used by variants of other products.
	SKUsInUse(ctx context.Context, skus []string, excludeProductID uuid.UUID) ([]string, error)

	// List returns one page of products with variants and images, plus the
	// total match count.
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)

	// ListIDs returns the ids of all non-deleted products.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	// UpdateRating stores the denormalized review statistics.
	UpdateRating(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error
}

// ReviewRepository persists reviews and their helpfulness votes.
type ReviewRepository interface {
	// Create inserts a review.
	Create(ctx context.Context, r *domain.ProductReview) error

	// Update rewrites content, counters and deletion state of a review.
	Update(ctx context.Context, r *domain.ProductReview) error

	// GetByID retrieves a non-deleted review.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ProductReview, error)

	// GetByIDForUpdate is GetByID holding a row lock until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductReview, error)

	// ExistsForUser reports whether the user has a non-deleted review of the product.
	ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (bool, error)

	// List returns one page of a product's reviews plus the total count.
	List(ctx context.Context, filter ReviewFilter) ([]*domain.ProductReview, int, error)

	// RatingHistogram counts non-deleted reviews of the product per rating.
	RatingHistogram(ctx context.Context, productID uuid.UUID) (map[int]int, error)

	// GetVote returns the user's vote on the review, or nil when there is none.
	GetVote(ctx context.Context, reviewID, userID uuid.UUID) (*domain.ReviewVote, error)

	// InsertVote inserts a vote row.
	InsertVote(ctx context.Context, v *domain.ReviewVote) error

	// UpdateVote changes the type of an existing vote row.
	UpdateVote(ctx context.Context, v *domain.ReviewVote) error

	// DeleteVote removes a vote row.
	DeleteVote(ctx context.Context, id uuid.UUID) error

	// VotesByUser returns the user's votes among the given reviews.
	VotesByUser(ctx context.Context, userID uuid.UUID, reviewIDs []uuid.UUID) (map[uuid.UUID]domain.VoteType, error)
}

// Repositories groups the repositories bound to one connection or
// transaction.
type Repositories struct {
	Categories     CategoryRepository
	VariationTypes VariationTypeRepository
	Products       ProductRepository
	Reviews        ReviewRepository
}

// UnitOfWork runs fn inside a transaction. The Repositories passed to fn
// are bound to that transaction; it commits when fn returns nil and rolls
// back on error or panic.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
