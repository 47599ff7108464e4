package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// productColumns is the standard SELECT column list for products. The
// rating is read as text so it round-trips through decimal.Decimal exactly.
const productColumns = `id, name, slug, description, base_price, category_id, average_rating::text, ` +
	`review_count, is_active, created_at, updated_at, deleted_at`

const variantColumns = `id, product_id, sku, price, old_price, stock_quantity, track_inventory, ` +
	`is_active, created_at, updated_at`

// Listing projections evaluated per product over its active variants.
const (
	lowestPriceExpr = `COALESCE((SELECT MIN(v.price) FROM product_variants v
		WHERE v.product_id = p.id AND v.is_active), p.base_price)`
	inStockExpr = `EXISTS(SELECT 1 FROM product_variants v
		WHERE v.product_id = p.id AND v.is_active AND (NOT v.track_inventory OR v.stock_quantity > 0))`
)

var productSortClauses = map[string]string{
	domain.SortByNewest:    "created_at DESC, id",
	domain.SortByPriceAsc:  "lowest_price ASC, id",
	domain.SortByPriceDesc: "lowest_price DESC, id",
	domain.SortByNameAsc:   "name ASC, id",
	domain.SortByNameDesc:  "name DESC, id",
	domain.SortByRating:    "average_rating DESC, review_count DESC, id",
}

// ProductRepository implements repository.ProductRepository.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product and every child collection.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, slug, description, base_price, category_id, average_rating,
		                      review_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11)`

	ctx, done := trace(ctx, "product.create", query)
	defer done(&err)

	_, err = r.db.Exec(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.BasePrice, p.CategoryID, p.AverageRating.String(),
		p.ReviewCount, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapProductWriteError(err, p)
	}
	return r.writeChildren(ctx, p, false)
}

// Update rewrites the product row and synchronizes its child collections.
// Variants missing from p.Variants are deleted.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, base_price = $4, category_id = $5,
		    is_active = $6, updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL`

	ctx, done := trace(ctx, "product.update", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query,
		p.Name, p.Slug, p.Description, p.BasePrice, p.CategoryID, p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return mapProductWriteError(err, p)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID.String())
	}
	return r.writeChildren(ctx, p, true)
}

func (r *ProductRepository) writeChildren(ctx context.Context, p *domain.Product, replace bool) error {
	if replace {
		if _, err := r.db.Exec(ctx, `DELETE FROM product_variation_types WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear product variation types: %w", err)
		}
		if _, err := r.db.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear product images: %w", err)
		}
		keep := make([]uuid.UUID, len(p.Variants))
		for i, v := range p.Variants {
			keep[i] = v.ID
		}
		_, err := r.db.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1 AND NOT (id = ANY($2))`, p.ID, keep)
		if err != nil {
			return fmt.Errorf("delete removed variants: %w", err)
		}
		// uq_product_variants_sku is checked per row, so SKUs swapped between
		// kept variants would collide mid-upsert. Released here, re-set below.
		if len(keep) > 0 {
			_, err = r.db.Exec(ctx, `UPDATE product_variants SET sku = NULL WHERE id = ANY($1) AND sku IS NOT NULL`, keep)
			if err != nil {
				return fmt.Errorf("release variant skus: %w", err)
			}
		}
	}

	if len(p.VariationTypeIDs) > 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO product_variation_types (product_id, variation_type_id, position)
			SELECT $1, t.id, t.ord - 1
			FROM UNNEST($2::uuid[]) WITH ORDINALITY AS t(id, ord)`,
			p.ID, p.VariationTypeIDs,
		)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.NotFound("variation type", "in variation_type_ids")
			}
			return fmt.Errorf("insert product variation types: %w", err)
		}
	}

	for _, img := range p.Images {
		_, err := r.db.Exec(ctx, `
			INSERT INTO product_images (id, product_id, url, alt_text, sort_order, is_primary)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			img.ID, p.ID, img.URL, img.AltText, img.SortOrder, img.IsPrimary,
		)
		if err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	return r.upsertVariants(ctx, p.Variants)
}

func (r *ProductRepository) upsertVariants(ctx context.Context, variants []domain.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}

	var (
		ids        = make([]uuid.UUID, 0, len(variants))
		variantIDs []uuid.UUID
		typeIDs    []uuid.UUID
		optionIDs  []uuid.UUID
	)
	for _, v := range variants {
		_, err := r.db.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, sku, price, old_price, stock_quantity,
			                              track_inventory, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE
			SET sku = EXCLUDED.sku, price = EXCLUDED.price, old_price = EXCLUDED.old_price,
			    stock_quantity = EXCLUDED.stock_quantity, track_inventory = EXCLUDED.track_inventory,
			    is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`,
			v.ID, v.ProductID, v.SKU, v.Price, v.OldPrice, v.StockQuantity,
			v.TrackInventory, v.IsActive, v.CreatedAt, v.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "uq_product_variants_sku") {
				return apperrors.Conflict("a variant sku is already in use")
			}
			return fmt.Errorf("upsert product variant %s: %w", v.ID, err)
		}

		ids = append(ids, v.ID)
		for typeID, optionID := range v.SelectedOptions {
			variantIDs = append(variantIDs, v.ID)
			typeIDs = append(typeIDs, typeID)
			optionIDs = append(optionIDs, optionID)
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM product_variant_options WHERE variant_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("clear variant options: %w", err)
	}
	if len(variantIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO product_variant_options (variant_id, variation_type_id, option_id)
		SELECT * FROM UNNEST($1::uuid[], $2::uuid[], $3::uuid[])`,
		variantIDs, typeIDs, optionIDs,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Conflict("a selected variant option no longer exists")
		}
		return fmt.Errorf("insert variant options: %w", err)
	}
	return nil
}

func mapProductWriteError(err error, p *domain.Product) error {
	switch {
	case database.IsUniqueViolation(err, "uq_products_slug"):
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	case database.IsForeignKeyViolation(err) && p.CategoryID != nil:
		return apperrors.NotFound("category", p.CategoryID.String())
	default:
		return fmt.Errorf("write product: %w", err)
	}
}

// SoftDelete stamps deleted_at on a live product.
func (r *ProductRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (err error) {
	query := `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	ctx, done := trace(ctx, "product.soft_delete", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id.String())
	}
	return nil
}

// GetByID loads the product row and its variation type ids.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	ctx, done := trace(ctx, "product.get_by_id", query)
	defer done(&err)

	return r.getOne(ctx, query, id, id.String())
}

// GetBySlug loads the product row and its variation type ids.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (p *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND deleted_at IS NULL`

	ctx, done := trace(ctx, "product.get_by_slug", query)
	defer done(&err)

	return r.getOne(ctx, query, slug, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, query string, arg any, key string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, noRows(err, "product", key)
	}
	if err := r.attachVariationTypes(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetWithVariants loads the product and all its variants, retired included.
func (r *ProductRepository) GetWithVariants(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, []*domain.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetWithDetails loads the product, its variants and its images.
func (r *ProductRepository) GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := r.GetWithVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, []*domain.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetWithReviews loads the product and its non-deleted reviews.
func (r *ProductRepository) GetWithReviews(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM product_reviews
		WHERE product_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query product reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product review: %w", err)
		}
		p.Reviews = append(p.Reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product reviews: %w", err)
	}
	return p, nil
}

// SlugExists reports whether another product uses slug. Deleted products
// still hold their slug.
func (r *ProductRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`

	ctx, done := trace(ctx, "product.slug_exists", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return exists, nil
}

// SKUsInUse returns those skus, compared case-insensitively, that variants
// of other products already use.
func (r *ProductRepository) SKUsInUse(ctx context.Context, skus []string, excludeProductID uuid.UUID) (used []string, err error) {
	if len(skus) == 0 {
		return nil, nil
	}
	query := `SELECT sku FROM product_variants WHERE LOWER(sku) = ANY($1) AND product_id <> $2 ORDER BY sku`

	ctx, done := trace(ctx, "product.skus_in_use", query)
	defer done(&err)

	lowered := make([]string, len(skus))
	for i, s := range skus {
		lowered[i] = strings.ToLower(s)
	}

	rows, err := r.db.Query(ctx, query, lowered, excludeProductID)
	if err != nil {
		return nil, fmt.Errorf("query skus in use: %w", err)
	}
	used, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan skus in use: %w", err)
	}
	return used, nil
}

// List returns one page of live products with variants and images. The
// price filters apply to the lowest active variant price.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (products []*domain.Product, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+strings.TrimSpace(*filter.Search)+"%")
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("lowest_price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("lowest_price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	if filter.InStock != nil {
		conditions = append(conditions, fmt.Sprintf("in_stock = $%d", argIndex))
		args = append(args, *filter.InStock)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy, ok := productSortClauses[filter.SortBy]
	if !ok {
		orderBy = productSortClauses[domain.SortByNewest]
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM (
			SELECT p.*, %s AS lowest_price, %s AS in_stock
			FROM products p
			WHERE p.deleted_at IS NULL
		) p
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, lowestPriceExpr, inStockExpr, whereClause, orderBy, argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	ctx, done := trace(ctx, "product.list", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	rows.Close()

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}
	if err := r.attachImages(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListIDs returns the ids of all live products.
func (r *ProductRepository) ListIDs(ctx context.Context) (ids []uuid.UUID, err error) {
	query := `SELECT id FROM products WHERE deleted_at IS NULL ORDER BY created_at, id`

	ctx, done := trace(ctx, "product.list_ids", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	ids, err = collectUUIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan product ids: %w", err)
	}
	return ids, nil
}

// UpdateRating stores the denormalized review statistics.
func (r *ProductRepository) UpdateRating(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) (err error) {
	query := `UPDATE products SET average_rating = $1::numeric, review_count = $2 WHERE id = $3`

	ctx, done := trace(ctx, "product.update_rating", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, summary.Average.StringFixed(2), summary.Count, id)
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id.String())
	}
	return nil
}

func (r *ProductRepository) attachVariationTypes(ctx context.Context, p *domain.Product) error {
	rows, err := r.db.Query(ctx, `
		SELECT variation_type_id FROM product_variation_types
		WHERE product_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("query product variation types: %w", err)
	}
	ids, err := collectUUIDs(rows)
	if err != nil {
		return fmt.Errorf("scan product variation types: %w", err)
	}
	p.VariationTypeIDs = ids
	return nil
}

func (r *ProductRepository) attachVariants(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	byID, ids := indexProducts(products)

	rows, err := r.db.Query(ctx, `
		SELECT `+variantColumns+`
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("query product variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.OldPrice, &v.StockQuantity,
			&v.TrackInventory, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan product variant: %w", err)
		}
		v.SelectedOptions = make(map[uuid.UUID]uuid.UUID)
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product variants: %w", err)
	}
	rows.Close()

	if len(variants) == 0 {
		return nil
	}
	byVariant := make(map[uuid.UUID]*domain.ProductVariant, len(variants))
	for i := range variants {
		byVariant[variants[i].ID] = &variants[i]
	}

	optRows, err := r.db.Query(ctx, `
		SELECT o.variant_id, o.variation_type_id, o.option_id
		FROM product_variant_options o
		JOIN product_variants v ON v.id = o.variant_id
		WHERE v.product_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("query variant options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var variantID, typeID, optionID uuid.UUID
		if err := optRows.Scan(&variantID, &typeID, &optionID); err != nil {
			return fmt.Errorf("scan variant option: %w", err)
		}
		if v, ok := byVariant[variantID]; ok {
			v.SelectedOptions[typeID] = optionID
		}
	}
	if err := optRows.Err(); err != nil {
		return fmt.Errorf("iterate variant options: %w", err)
	}

	for _, v := range variants {
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return nil
}

func (r *ProductRepository) attachImages(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	byID, ids := indexProducts(products)

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, url, alt_text, sort_order, is_primary
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY sort_order, id`, ids)
	if err != nil {
		return fmt.Errorf("query product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			img       domain.ProductImage
			productID uuid.UUID
		)
		if err := rows.Scan(&img.ID, &productID, &img.URL, &img.AltText, &img.SortOrder, &img.IsPrimary); err != nil {
			return fmt.Errorf("scan product image: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product images: %w", err)
	}
	return nil
}

func indexProducts(products []*domain.Product) (map[uuid.UUID]*domain.Product, []uuid.UUID) {
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	return byID, ids
}

// scanProduct reads productColumns, followed by any extra destinations.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var (
		p      domain.Product
		rating string
	)
	dest := []any{
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.BasePrice, &p.CategoryID, &rating,
		&p.ReviewCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	avg, err := decimal.NewFromString(rating)
	if err != nil {
		return nil, fmt.Errorf("parse average rating %q: %w", rating, err)
	}
	p.AverageRating = avg
	return &p, nil
}
