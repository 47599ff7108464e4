package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// categoryColumns is the standard SELECT column list for categories.
const categoryColumns = `id, name, description, slug, is_active, parent_id, sort_order, level, created_at, updated_at`

// CategoryRepository implements repository.CategoryRepository.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category and its variation type associations.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	query := `
		INSERT INTO categories (id, name, description, slug, is_active, parent_id, sort_order, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, done := trace(ctx, "category.create", query)
	defer done(&err)

	_, err = r.db.Exec(ctx, query,
		c.ID, c.Name, c.Description, c.Slug, c.IsActive, c.ParentID, c.SortOrder, c.Level, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return r.mapWriteError(err, c)
	}
	return r.insertAssociations(ctx, c)
}

// Update rewrites the category row and replaces its associations.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) (err error) {
	query := `
		UPDATE categories
		SET name = $1, description = $2, slug = $3, is_active = $4, parent_id = $5,
		    sort_order = $6, level = $7, updated_at = $8
		WHERE id = $9`

	ctx, done := trace(ctx, "category.update", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query,
		c.Name, c.Description, c.Slug, c.IsActive, c.ParentID, c.SortOrder, c.Level, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return r.mapWriteError(err, c)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID.String())
	}

	if _, err = r.db.Exec(ctx, `DELETE FROM category_variation_types WHERE category_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clear category variation types: %w", err)
	}
	return r.insertAssociations(ctx, c)
}

func (r *CategoryRepository) insertAssociations(ctx context.Context, c *domain.Category) error {
	if len(c.VariationTypes) == 0 {
		return nil
	}
	typeIDs := make([]uuid.UUID, len(c.VariationTypes))
	required := make([]bool, len(c.VariationTypes))
	for i, a := range c.VariationTypes {
		typeIDs[i] = a.VariationTypeID
		required[i] = a.IsRequired
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO category_variation_types (category_id, variation_type_id, is_required)
		SELECT $1, t.variation_type_id, t.is_required
		FROM UNNEST($2::uuid[], $3::boolean[]) AS t(variation_type_id, is_required)`,
		c.ID, typeIDs, required,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("variation type", "in variation_types")
		}
		return fmt.Errorf("insert category variation types: %w", err)
	}
	return nil
}

func (r *CategoryRepository) mapWriteError(err error, c *domain.Category) error {
	switch {
	case database.IsUniqueViolation(err, "uq_categories_slug"):
		return apperrors.AlreadyExists("category", "slug", c.Slug)
	case database.IsForeignKeyViolation(err) && c.ParentID != nil:
		return apperrors.NotFound("category", c.ParentID.String())
	default:
		return fmt.Errorf("write category: %w", err)
	}
}

// Delete removes a category.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	query := `DELETE FROM categories WHERE id = $1`

	ctx, done := trace(ctx, "category.delete", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			// A subcategory was added after the child count was checked.
			return apperrors.BusinessRule(domain.ErrCodeCategoryHasSubcategories,
				fmt.Sprintf("category %s has subcategories and cannot be deleted", id))
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id.String())
	}
	return nil
}

// GetByID retrieves a category with its associations.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return r.getOne(ctx, "category.get_by_id", `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id, id.String())
}

// GetBySlug retrieves a category with its associations.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, "category.get_by_slug", `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug, slug)
}

func (r *CategoryRepository) getOne(ctx context.Context, op, query string, arg any, key string) (c *domain.Category, err error) {
	ctx, done := trace(ctx, op, query)
	defer done(&err)

	c, err = scanCategory(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, noRows(err, "category", key)
	}
	if err := r.attachAssociations(ctx, []*domain.Category{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// SlugExists reports whether another category uses slug.
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`

	ctx, done := trace(ctx, "category.slug_exists", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return exists, nil
}

// CountChildren counts direct subcategories regardless of state.
func (r *CategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (n int, err error) {
	query := `SELECT COUNT(*) FROM categories WHERE parent_id = $1`

	ctx, done := trace(ctx, "category.count_children", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subcategories: %w", err)
	}
	return n, nil
}

// AncestorIDs returns id followed by its ancestors, nearest first.
func (r *CategoryRepository) AncestorIDs(ctx context.Context, id uuid.UUID) (ids []uuid.UUID, err error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, 0 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, chain.depth + 1
			FROM categories c
			JOIN chain ON c.id = chain.parent_id
			WHERE chain.depth < 64
		)
		SELECT id FROM chain ORDER BY depth`

	ctx, done := trace(ctx, "category.ancestors", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query category ancestors: %w", err)
	}
	ids, err = collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan category ancestors: %w", err)
	}
	if len(ids) == 0 {
		return nil, apperrors.NotFound("category", id.String())
	}
	return ids, nil
}

// ShiftDescendantLevels adds delta to the level of every descendant of id.
func (r *CategoryRepository) ShiftDescendantLevels(ctx context.Context, id uuid.UUID, delta int) (err error) {
	if delta == 0 {
		return nil
	}
	query := `
		WITH RECURSIVE sub AS (
			SELECT id FROM categories WHERE parent_id = $1
			UNION ALL
			SELECT c.id FROM categories c JOIN sub ON c.parent_id = sub.id
		)
		UPDATE categories SET level = level + $2 WHERE id IN (SELECT id FROM sub)`

	ctx, done := trace(ctx, "category.shift_levels", query)
	defer done(&err)

	if _, err = r.db.Exec(ctx, query, id, delta); err != nil {
		return fmt.Errorf("shift descendant levels: %w", err)
	}
	return nil
}

// List returns categories with their associations, parents before children.
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) (cats []*domain.Category, err error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY level, sort_order, name`

	ctx, done := trace(ctx, "category.list", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	if err := r.attachAssociations(ctx, cats); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []*domain.Category{}
	}
	return cats, nil
}

func (r *CategoryRepository) attachAssociations(ctx context.Context, cats []*domain.Category) error {
	if len(cats) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Category, len(cats))
	ids := make([]uuid.UUID, 0, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT category_id, variation_type_id, is_required
		FROM category_variation_types
		WHERE category_id = ANY($1)
		ORDER BY category_id, is_required DESC, variation_type_id`, ids)
	if err != nil {
		return fmt.Errorf("query category variation types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			categoryID uuid.UUID
			a          domain.CategoryVariationType
		)
		if err := rows.Scan(&categoryID, &a.VariationTypeID, &a.IsRequired); err != nil {
			return fmt.Errorf("scan category variation type: %w", err)
		}
		if c, ok := byID[categoryID]; ok {
			c.VariationTypes = append(c.VariationTypes, a)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate category variation types: %w", err)
	}
	return nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Slug, &c.IsActive, &c.ParentID,
		&c.SortOrder, &c.Level, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
