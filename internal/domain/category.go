package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/slug"
)

// ErrCodeCategoryHasSubcategories is returned when deleting a non-leaf category.
const ErrCodeCategoryHasSubcategories = "CATEGORY_HAS_SUBCATEGORIES"

// CategoryVariationType associates a variation type with a category.
// VariationType is only populated on read paths that need the options.
type CategoryVariationType struct {
	VariationTypeID uuid.UUID
	IsRequired      bool
	VariationType   *VariationType
}

// Category is a node in the category tree.
type Category struct {
	ID             uuid.UUID
	Name           string
	Description    string
	Slug           string
	IsActive       bool
	ParentID       *uuid.UUID
	SortOrder      int
	Level          int
	VariationTypes []CategoryVariationType
	SubCategories  []*Category
	Audit
}

// NewCategory builds an active root category. An empty slug is derived from
// the name.
func NewCategory(name, categorySlug, description string, now time.Time) (*Category, error) {
	c := &Category{
		ID:       uuid.New(),
		IsActive: true,
	}
	if err := c.Rename(name, categorySlug); err != nil {
		return nil, err
	}
	c.Description = strings.TrimSpace(description)
	MarkCreated(&c.Audit, now)
	return c, nil
}

// Rename sets the name and slug, deriving the slug from the name when empty.
func (c *Category) Rename(name, categorySlug string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.FieldInvalid("name", "name is required")
	}
	categorySlug = strings.TrimSpace(categorySlug)
	if categorySlug == "" {
		categorySlug = slug.Generate(name)
	}
	if !slug.Valid(categorySlug) {
		return apperrors.FieldInvalid("slug", "slug must be lowercase letters, digits and single hyphens")
	}
	c.Name = name
	c.Slug = categorySlug
	return nil
}

// MoveToRoot detaches the category from its parent.
func (c *Category) MoveToRoot() {
	c.ParentID = nil
	c.Level = 0
}

// SetParent moves the category under parent, or to the root when parent is
// nil. Cycle detection needs the ancestor chain and lives in
// EnsureNotOwnAncestor.
func (c *Category) SetParent(parent *Category) error {
	if parent == nil {
		c.MoveToRoot()
		return nil
	}
	if parent.ID == c.ID {
		return apperrors.FieldInvalid("parent_id", "category cannot be its own ancestor")
	}
	id := parent.ID
	c.ParentID = &id
	c.Level = parent.Level + 1
	return nil
}

// EnsureNotOwnAncestor fails when c appears in the ancestor chain of its
// prospective parent (the chain includes the parent itself).
func (c *Category) EnsureNotOwnAncestor(parentChain []uuid.UUID) error {
	if slices.Contains(parentChain, c.ID) {
		return apperrors.FieldInvalid("parent_id", "category cannot be its own ancestor")
	}
	return nil
}

// SetVariationTypes replaces the category's variation type associations.
func (c *Category) SetVariationTypes(assocs []CategoryVariationType) error {
	var fields []apperrors.FieldError
	seen := make(map[uuid.UUID]struct{}, len(assocs))
	for i, a := range assocs {
		if _, dup := seen[a.VariationTypeID]; dup {
			fields = append(fields, apperrors.FieldError{
				Field:   fmt.Sprintf("variation_types[%d].variation_type_id", i),
				Message: "variation type listed more than once",
			})
			continue
		}
		seen[a.VariationTypeID] = struct{}{}
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	c.VariationTypes = slices.Clone(assocs)
	return nil
}

// VariationTypeIDs returns the ids of all associated variation types.
func (c *Category) VariationTypeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.VariationTypes))
	for _, a := range c.VariationTypes {
		ids = append(ids, a.VariationTypeID)
	}
	return ids
}

// Association returns the association for a variation type.
func (c *Category) Association(variationTypeID uuid.UUID) (CategoryVariationType, bool) {
	for _, a := range c.VariationTypes {
		if a.VariationTypeID == variationTypeID {
			return a, true
		}
	}
	return CategoryVariationType{}, false
}

// EnsureDeletable rejects deletion while any child row exists, whatever its
// state.
func (c *Category) EnsureDeletable(childCount int) error {
	if childCount > 0 {
		return apperrors.BusinessRule(ErrCodeCategoryHasSubcategories,
			fmt.Sprintf("category %s has %d subcategories and cannot be deleted", c.Slug, childCount))
	}
	return nil
}

// BuildTree nests a flat category list by parent id. Categories whose parent
// is not in the list become roots. Siblings are ordered by sort order, then
// name.
func BuildTree(flat []*Category) []*Category {
	byID := make(map[uuid.UUID]*Category, len(flat))
	for _, c := range flat {
		c.SubCategories = nil
		byID[c.ID] = c
	}

	var roots []*Category
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.SubCategories = append(parent.SubCategories, c)
				continue
			}
		}
		roots = append(roots, c)
	}

	sortCategories(roots)
	return roots
}

func sortCategories(nodes []*Category) {
	slices.SortFunc(nodes, func(a, b *Category) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), strings.Compare(a.Name, b.Name))
	})
	for _, n := range nodes {
		sortCategories(n.SubCategories)
	}
}
