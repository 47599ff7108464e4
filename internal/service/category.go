package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// CategoryService implements the business logic for the category tree.
type CategoryService struct {
	uow    repository.UnitOfWork
	repos  repository.Repositories
	logger *slog.Logger
	now    func() time.Time
}

// NewCategoryService creates a new category service. repos serves reads
// outside a transaction.
func NewCategoryService(uow repository.UnitOfWork, repos repository.Repositories, logger *slog.Logger) *CategoryService {
	return &CategoryService{uow: uow, repos: repos, logger: logger, now: utcNow}
}

// CategoryVariationTypeInput associates a variation type with a category.
type CategoryVariationTypeInput struct {
	VariationTypeID uuid.UUID
	IsRequired      bool
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name           string
	Slug           string
	Description    string
	ParentID       *uuid.UUID
	SortOrder      int
	IsActive       *bool
	VariationTypes []CategoryVariationTypeInput
}

// UpdateCategoryInput holds the parameters for a partial category update.
// ClearParent moves the category to the root; VariationTypes, when set,
// replaces every association.
type UpdateCategoryInput struct {
	Name           *string
	Slug           *string
	Description    *string
	ParentID       *uuid.UUID
	ClearParent    bool
	SortOrder      *int
	IsActive       *bool
	VariationTypes *[]CategoryVariationTypeInput
}

// CreateCategory creates a category, optionally under a parent.
func (s *CategoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*domain.Category, error) {
	now := s.now()
	c, err := domain.NewCategory(in.Name, in.Slug, in.Description, now)
	if err != nil {
		return nil, err
	}
	c.SortOrder = in.SortOrder
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := c.SetVariationTypes(toAssociations(in.VariationTypes)); err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := ensureCategorySlugFree(ctx, repos.Categories, c.Slug, uuid.Nil); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := repos.Categories.GetByID(ctx, *in.ParentID)
			if err != nil {
				return fmt.Errorf("get parent category: %w", err)
			}
			if err := c.SetParent(parent); err != nil {
				return err
			}
		}
		if err := ensureVariationTypesExist(ctx, repos.VariationTypes, c.VariationTypeIDs()); err != nil {
			return err
		}
		if err := repos.Categories.Create(ctx, c); err != nil {
			return fmt.Errorf("create category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID.String()),
		slog.String("slug", c.Slug),
		slog.Int("level", c.Level),
	)
	return c, nil
}

// UpdateCategory applies a partial update. Moving a category shifts the
// level of its whole subtree.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, in UpdateCategoryInput) (*domain.Category, error) {
	var updated *domain.Category
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Categories.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		oldLevel := c.Level

		if in.Name != nil || in.Slug != nil {
			name, categorySlug := c.Name, c.Slug
			if in.Name != nil {
				name = *in.Name
			}
			if in.Slug != nil {
				categorySlug = *in.Slug
			}
			if err := c.Rename(name, categorySlug); err != nil {
				return err
			}
			if err := ensureCategorySlugFree(ctx, repos.Categories, c.Slug, c.ID); err != nil {
				return err
			}
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		if in.SortOrder != nil {
			c.SortOrder = *in.SortOrder
		}
		if in.IsActive != nil {
			c.IsActive = *in.IsActive
		}

		switch {
		case in.ClearParent:
			c.MoveToRoot()
		case in.ParentID != nil:
			if err := s.reparent(ctx, repos.Categories, c, *in.ParentID); err != nil {
				return err
			}
		}

		if in.VariationTypes != nil {
			if err := c.SetVariationTypes(toAssociations(*in.VariationTypes)); err != nil {
				return err
			}
			if err := ensureVariationTypesExist(ctx, repos.VariationTypes, c.VariationTypeIDs()); err != nil {
				return err
			}
		}

		domain.MarkUpdated(&c.Audit, s.now())
		if err := repos.Categories.Update(ctx, c); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		if err := repos.Categories.ShiftDescendantLevels(ctx, c.ID, c.Level-oldLevel); err != nil {
			return fmt.Errorf("shift descendant levels: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "category updated",
		slog.String("category_id", updated.ID.String()),
		slog.String("slug", updated.Slug),
	)
	return updated, nil
}

func (s *CategoryService) reparent(ctx context.Context, categories repository.CategoryRepository, c *domain.Category, parentID uuid.UUID) error {
	parent, err := categories.GetByID(ctx, parentID)
	if err != nil {
		return fmt.Errorf("get parent category: %w", err)
	}
	if err := c.SetParent(parent); err != nil {
		return err
	}
	chain, err := categories.AncestorIDs(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("get ancestor chain: %w", err)
	}
	return c.EnsureNotOwnAncestor(chain)
}

// DeleteCategory removes a leaf category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Categories.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		children, err := repos.Categories.CountChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("count subcategories: %w", err)
		}
		if err := c.EnsureDeletable(children); err != nil {
			return err
		}
		if err := repos.Categories.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id.String()))
	return nil
}

// GetCategory retrieves a category by id or slug.
func (s *CategoryService) GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	if id, ok := parseIDOrSlug(idOrSlug); ok {
		c, err := s.repos.Categories.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get category by id: %w", err)
		}
		return c, nil
	}
	c, err := s.repos.Categories.GetBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories as a flat list.
func (s *CategoryService) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	categories, err := s.repos.Categories.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryTree returns the active categories nested by parent. Each node
// carries only its active variation types, with their options.
func (s *CategoryService) GetCategoryTree(ctx context.Context) ([]*domain.Category, error) {
	var (
		categories []*domain.Category
		types      []*domain.VariationType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.repos.Categories.List(gctx, true)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		types, err = s.repos.VariationTypes.List(gctx, true)
		if err != nil {
			return fmt.Errorf("list variation types: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	active := make(map[uuid.UUID]*domain.VariationType, len(types))
	for _, vt := range types {
		active[vt.ID] = vt
	}
	for _, c := range categories {
		assocs := c.VariationTypes[:0]
		for _, a := range c.VariationTypes {
			if vt, ok := active[a.VariationTypeID]; ok {
				a.VariationType = vt
				assocs = append(assocs, a)
			}
		}
		c.VariationTypes = assocs
	}
	return domain.BuildTree(categories), nil
}

func toAssociations(in []CategoryVariationTypeInput) []domain.CategoryVariationType {
	out := make([]domain.CategoryVariationType, 0, len(in))
	for _, a := range in {
		out = append(out, domain.CategoryVariationType{VariationTypeID: a.VariationTypeID, IsRequired: a.IsRequired})
	}
	return out
}

func ensureCategorySlugFree(ctx context.Context, categories repository.CategoryRepository, categorySlug string, excludeID uuid.UUID) error {
	exists, err := categories.SlugExists(ctx, categorySlug, excludeID)
	if err != nil {
		return fmt.Errorf("check category slug: %w", err)
	}
	if exists {
		return apperrors.AlreadyExists("category", "slug", categorySlug)
	}
	return nil
}

// ensureVariationTypesExist loads the given types, failing with NotFound on
// the first id that does not exist.
func ensureVariationTypesExist(ctx context.Context, repo repository.VariationTypeRepository, ids []uuid.UUID) error {
	_, err := loadVariationTypes(ctx, repo, ids)
	return err
}

func loadVariationTypes(ctx context.Context, repo repository.VariationTypeRepository, ids []uuid.UUID) (map[uuid.UUID]*domain.VariationType, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.VariationType{}, nil
	}
	types, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get variation types: %w", err)
	}
	for _, id := range ids {
		if _, ok := types[id]; !ok {
			return nil, apperrors.NotFound("variation type", id.String())
		}
	}
	return types, nil
}
