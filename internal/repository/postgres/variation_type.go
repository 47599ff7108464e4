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

const variationTypeColumns = `id, name, display_name, is_active, created_at, updated_at`

// VariationTypeRepository implements repository.VariationTypeRepository.
type VariationTypeRepository struct {
	db database.DBTX
}

// NewVariationTypeRepository creates a PostgreSQL-backed variation type
// repository.
func NewVariationTypeRepository(db database.DBTX) *VariationTypeRepository {
	return &VariationTypeRepository{db: db}
}

// Create inserts a variation type and all of its options.
func (r *VariationTypeRepository) Create(ctx context.Context, vt *domain.VariationType) (err error) {
	query := `
		INSERT INTO variation_types (id, name, display_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, done := trace(ctx, "variation_type.create", query)
	defer done(&err)

	_, err = r.db.Exec(ctx, query, vt.ID, vt.Name, vt.DisplayName, vt.IsActive, vt.CreatedAt, vt.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_variation_types_name") {
			return apperrors.AlreadyExists("variation type", "name", vt.Name)
		}
		return fmt.Errorf("insert variation type: %w", err)
	}
	return r.insertOptions(ctx, vt.Options)
}

// Update rewrites the type row, then deletes removed options, rewrites kept
// ones and inserts added ones, in that order so a re-added value never
// collides with the row it replaces.
func (r *VariationTypeRepository) Update(ctx context.Context, vt *domain.VariationType, changes domain.OptionChanges) (err error) {
	query := `
		UPDATE variation_types
		SET name = $1, display_name = $2, is_active = $3, updated_at = $4
		WHERE id = $5`

	ctx, done := trace(ctx, "variation_type.update", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, vt.Name, vt.DisplayName, vt.IsActive, vt.UpdatedAt, vt.ID)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_variation_types_name") {
			return apperrors.AlreadyExists("variation type", "name", vt.Name)
		}
		return fmt.Errorf("update variation type: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variation type", vt.ID.String())
	}

	if len(changes.Removed) > 0 {
		ids := make([]uuid.UUID, len(changes.Removed))
		for i, opt := range changes.Removed {
			ids[i] = opt.ID
		}
		if _, err = r.db.Exec(ctx, `DELETE FROM variant_options WHERE id = ANY($1)`, ids); err != nil {
			if database.IsForeignKeyViolation(err, "fk_product_variant_options_option") {
				return apperrors.ConflictCode(domain.ErrCodeVariationOptionInUse,
					"a removed option is still selected by a product variant")
			}
			return fmt.Errorf("delete variant options: %w", err)
		}
	}

	for _, opt := range changes.Kept {
		_, err = r.db.Exec(ctx, `
			UPDATE variant_options SET value = $1, display_value = $2, sort_order = $3
			WHERE id = $4`,
			opt.Value, opt.DisplayValue, opt.SortOrder, opt.ID,
		)
		if err != nil {
			return fmt.Errorf("update variant option %s: %w", opt.ID, err)
		}
	}

	return r.insertOptions(ctx, changes.Added)
}

func (r *VariationTypeRepository) insertOptions(ctx context.Context, opts []domain.VariantOption) error {
	for _, opt := range opts {
		_, err := r.db.Exec(ctx, `
			INSERT INTO variant_options (id, variation_type_id, value, display_value, sort_order)
			VALUES ($1, $2, $3, $4, $5)`,
			opt.ID, opt.VariationTypeID, opt.Value, opt.DisplayValue, opt.SortOrder,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "uq_variant_options_value") {
				return apperrors.FieldInvalid("options", fmt.Sprintf("duplicate option value %q", opt.Value))
			}
			return fmt.Errorf("insert variant option: %w", err)
		}
	}
	return nil
}

// Delete removes a variation type; its options cascade.
func (r *VariationTypeRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	query := `DELETE FROM variation_types WHERE id = $1`

	ctx, done := trace(ctx, "variation_type.delete", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("variation type %s is in use", id))
		}
		return fmt.Errorf("delete variation type: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variation type", id.String())
	}
	return nil
}

// GetByID retrieves a variation type with its options.
func (r *VariationTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (vt *domain.VariationType, err error) {
	query := `SELECT ` + variationTypeColumns + ` FROM variation_types WHERE id = $1`

	ctx, done := trace(ctx, "variation_type.get_by_id", query)
	defer done(&err)

	vt, err = scanVariationType(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "variation type", id.String())
	}
	if err := r.attachOptions(ctx, []*domain.VariationType{vt}); err != nil {
		return nil, err
	}
	return vt, nil
}

// GetByIDs retrieves the variation types that exist among ids, keyed by id.
func (r *VariationTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (types map[uuid.UUID]*domain.VariationType, err error) {
	types = make(map[uuid.UUID]*domain.VariationType, len(ids))
	if len(ids) == 0 {
		return types, nil
	}
	query := `SELECT ` + variationTypeColumns + ` FROM variation_types WHERE id = ANY($1)`

	ctx, done := trace(ctx, "variation_type.get_by_ids", query)
	defer done(&err)

	list, err := r.queryTypes(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	for _, vt := range list {
		types[vt.ID] = vt
	}
	return types, nil
}

// NameExists reports whether another type uses name, ignoring case.
func (r *VariationTypeRepository) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM variation_types WHERE LOWER(name) = LOWER($1) AND id <> $2)`

	ctx, done := trace(ctx, "variation_type.name_exists", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check variation type name: %w", err)
	}
	return exists, nil
}

// List returns variation types with their options ordered by name.
func (r *VariationTypeRepository) List(ctx context.Context, activeOnly bool) (types []*domain.VariationType, err error) {
	query := `SELECT ` + variationTypeColumns + ` FROM variation_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	ctx, done := trace(ctx, "variation_type.list", query)
	defer done(&err)

	return r.queryTypes(ctx, query)
}

func (r *VariationTypeRepository) queryTypes(ctx context.Context, query string, args ...any) ([]*domain.VariationType, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variation types: %w", err)
	}
	defer rows.Close()

	types := []*domain.VariationType{}
	for rows.Next() {
		vt, err := scanVariationType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variation type row: %w", err)
		}
		types = append(types, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variation type rows: %w", err)
	}

	if err := r.attachOptions(ctx, types); err != nil {
		return nil, err
	}
	return types, nil
}

// IsReferenced reports whether a category association, a product or a
// variant selection uses the type.
func (r *VariationTypeRepository) IsReferenced(ctx context.Context, id uuid.UUID) (referenced bool, err error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM category_variation_types WHERE variation_type_id = $1)
		    OR EXISTS(SELECT 1 FROM product_variation_types WHERE variation_type_id = $1)
		    OR EXISTS(SELECT 1 FROM product_variant_options WHERE variation_type_id = $1)`

	ctx, done := trace(ctx, "variation_type.is_referenced", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check variation type references: %w", err)
	}
	return referenced, nil
}

// OptionsInUse returns those option ids that some variant selects.
func (r *VariationTypeRepository) OptionsInUse(ctx context.Context, optionIDs []uuid.UUID) (ids []uuid.UUID, err error) {
	if len(optionIDs) == 0 {
		return nil, nil
	}
	query := `SELECT DISTINCT option_id FROM product_variant_options WHERE option_id = ANY($1)`

	ctx, done := trace(ctx, "variation_type.options_in_use", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, optionIDs)
	if err != nil {
		return nil, fmt.Errorf("query options in use: %w", err)
	}
	ids, err = collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan options in use: %w", err)
	}
	return ids, nil
}

func (r *VariationTypeRepository) attachOptions(ctx context.Context, types []*domain.VariationType) error {
	if len(types) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.VariationType, len(types))
	ids := make([]uuid.UUID, 0, len(types))
	for _, vt := range types {
		byID[vt.ID] = vt
		ids = append(ids, vt.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, variation_type_id, value, display_value, sort_order
		FROM variant_options
		WHERE variation_type_id = ANY($1)
		ORDER BY variation_type_id, sort_order, value`, ids)
	if err != nil {
		return fmt.Errorf("query variant options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt domain.VariantOption
		if err := rows.Scan(&opt.ID, &opt.VariationTypeID, &opt.Value, &opt.DisplayValue, &opt.SortOrder); err != nil {
			return fmt.Errorf("scan variant option: %w", err)
		}
		if vt, ok := byID[opt.VariationTypeID]; ok {
			vt.Options = append(vt.Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate variant options: %w", err)
	}
	return nil
}

func scanVariationType(row pgx.Row) (*domain.VariationType, error) {
	var vt domain.VariationType
	if err := row.Scan(&vt.ID, &vt.Name, &vt.DisplayName, &vt.IsActive, &vt.CreatedAt, &vt.UpdatedAt); err != nil {
		return nil, err
	}
	return &vt, nil
}
