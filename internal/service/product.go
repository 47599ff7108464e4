package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/pagination"
)

// ProductService implements the business logic for the product aggregate.
type ProductService struct {
	uow    repository.UnitOfWork
	repos  repository.Repositories
	orders OrderHistory
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(
	uow repository.UnitOfWork,
	repos repository.Repositories,
	orders OrderHistory,
	events EventPublisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		uow:    uow,
		repos:  repos,
		orders: orders,
		events: events,
		logger: logger,
		now:    utcNow,
	}
}

// ProductImageInput is one requested product image.
type ProductImageInput struct {
	URL       string
	AltText   string
	SortOrder int
	IsPrimary bool
}

// ProductInput holds the full requested state of a product. Update replaces
// every field with it.
type ProductInput struct {
	Name             string
	Slug             string
	Description      string
	BasePrice        int64
	CategoryID       *uuid.UUID
	VariationTypeIDs []uuid.UUID
	Variants         []domain.VariantSpec
	Images           []ProductImageInput
	IsActive         *bool
}

// ListProductsInput holds product list filters and paging.
type ListProductsInput struct {
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

// CreateProduct creates a product with its variants and images.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	now := s.now()
	p, err := domain.NewProduct(in.Name, in.Slug, in.Description, in.BasePrice, now)
	if err != nil {
		return nil, err
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := p.SetImages(toImages(in.Images)); err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := ensureProductSlugFree(ctx, repos.Products, p.Slug, uuid.Nil); err != nil {
			return err
		}
		types, err := s.classify(ctx, repos, p, in.CategoryID, in.VariationTypeIDs)
		if err != nil {
			return err
		}
		if _, err := p.ReplaceVariants(in.Variants, types, now); err != nil {
			return err
		}
		if err := ensureSKUsFree(ctx, repos.Products, p); err != nil {
			return err
		}
		if err := repos.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logPublishError(ctx, s.logger, "product.created", s.events.PublishProductCreated(ctx, p),
		slog.String("product_id", p.ID.String()))

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID.String()),
		slog.String("slug", p.Slug),
		slog.Int("variants", len(p.Variants)),
	)
	return p, nil
}

// UpdateProduct replaces the product's state. Variants absent from the
// request are deleted unless an order still references them, in which case
// they are retired.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	var (
		updated *domain.Product
		retired int
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		now := s.now()
		p, err := repos.Products.GetWithDetails(ctx, id)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if err := p.SetDetails(in.Name, in.Slug, in.Description, in.BasePrice); err != nil {
			return err
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if err := p.SetImages(toImages(in.Images)); err != nil {
			return err
		}
		if err := ensureProductSlugFree(ctx, repos.Products, p.Slug, p.ID); err != nil {
			return err
		}
		types, err := s.classify(ctx, repos, p, in.CategoryID, in.VariationTypeIDs)
		if err != nil {
			return err
		}
		removed, err := p.ReplaceVariants(in.Variants, types, now)
		if err != nil {
			return err
		}
		for _, v := range removed {
			referenced, err := s.orders.IsVariantReferenced(ctx, v.ID)
			if err != nil {
				return fmt.Errorf("check order references for variant %s: %w", v.ID, err)
			}
			if referenced {
				p.RetainRetired(v, now)
				retired++
			}
		}
		if err := ensureSKUsFree(ctx, repos.Products, p); err != nil {
			return err
		}

		domain.MarkUpdated(&p.Audit, now)
		if err := repos.Products.Update(ctx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logPublishError(ctx, s.logger, "product.updated", s.events.PublishProductUpdated(ctx, updated),
		slog.String("product_id", updated.ID.String()))

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", updated.ID.String()),
		slog.Int("variants", len(updated.Variants)),
		slog.Int("retired_variants", retired),
	)
	return updated, nil
}

// classify resolves the category and variation types and applies them to p.
// The returned map holds every type the product's variants may select.
func (s *ProductService) classify(ctx context.Context, repos repository.Repositories, p *domain.Product, categoryID *uuid.UUID, typeIDs []uuid.UUID) (map[uuid.UUID]*domain.VariationType, error) {
	var category *domain.Category
	if categoryID != nil {
		c, err := repos.Categories.GetByID(ctx, *categoryID)
		if err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
		category = c
	}
	if err := p.SetClassification(category, typeIDs); err != nil {
		return nil, err
	}
	return loadVariationTypes(ctx, repos.VariationTypes, p.VariationTypeIDs)
}

// DeleteProduct soft-deletes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	p.Delete(s.now())
	if err := s.repos.Products.SoftDelete(ctx, p.ID, *p.DeletedAt); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	logPublishError(ctx, s.logger, "product.deleted", s.events.PublishProductDeleted(ctx, p),
		slog.String("product_id", p.ID.String()))

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", p.ID.String()))
	return nil
}

// GetProduct loads a product by id or slug with its variants and images.
func (s *ProductService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	id, ok := parseIDOrSlug(idOrSlug)
	if !ok {
		p, err := s.repos.Products.GetBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, fmt.Errorf("get product by slug: %w", err)
		}
		id = p.ID
	}
	p, err := s.repos.Products.GetWithDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product detail: %w", err)
	}
	return p, nil
}

// ListProducts returns one page of non-deleted products.
func (s *ProductService) ListProducts(ctx context.Context, in ListProductsInput) (*pagination.Result[*domain.Product], error) {
	if !domain.IsValidSortBy(in.SortBy) {
		return nil, apperrors.FieldInvalid("sort_by",
			"sort_by must be one of: "+strings.Join(domain.ValidSortByValues(), ", "))
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return nil, apperrors.FieldInvalid("min_price", "min_price must not exceed max_price")
	}
	params := pagination.New(in.Page, in.PerPage)

	products, total, err := s.repos.Products.List(ctx, repository.ProductFilter{
		CategoryID: in.CategoryID,
		Search:     in.Search,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		IsActive:   in.IsActive,
		InStock:    in.InStock,
		SortBy:     in.SortBy,
		Page:       params.Page,
		PerPage:    params.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	result := pagination.NewResult(products, total, params)
	return &result, nil
}

func toImages(in []ProductImageInput) []domain.ProductImage {
	out := make([]domain.ProductImage, 0, len(in))
	for _, img := range in {
		out = append(out, domain.ProductImage{
			URL:       img.URL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
			IsPrimary: img.IsPrimary,
		})
	}
	return out
}

func ensureProductSlugFree(ctx context.Context, products repository.ProductRepository, productSlug string, excludeID uuid.UUID) error {
	exists, err := products.SlugExists(ctx, productSlug, excludeID)
	if err != nil {
		return fmt.Errorf("check product slug: %w", err)
	}
	if exists {
		return apperrors.AlreadyExists("product", "slug", productSlug)
	}
	return nil
}

// ensureSKUsFree rejects skus that variants of other products already use.
func ensureSKUsFree(ctx context.Context, products repository.ProductRepository, p *domain.Product) error {
	var skus []string
	for _, v := range p.Variants {
		if v.SKU != nil {
			skus = append(skus, *v.SKU)
		}
	}
	if len(skus) == 0 {
		return nil
	}
	used, err := products.SKUsInUse(ctx, skus, p.ID)
	if err != nil {
		return fmt.Errorf("check variant skus: %w", err)
	}
	if len(used) > 0 {
		return apperrors.AlreadyExists("variant", "sku", used[0])
	}
	return nil
}
