package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

// ─── Category ───────────────────────────────────────────────────────────────

var categoryCols = []string{
	"id", "name", "description", "slug", "is_active", "parent_id", "sort_order", "level",
	"created_at", "updated_at",
}

var associationCols = []string{"category_id", "variation_type_id", "is_required"}

func sampleCategory() domain.Category {
	return domain.Category{
		ID:          uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:        "Apparel",
		Description: "Clothing",
		Slug:        "apparel",
		IsActive:    true,
		Audit:       domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func categoryRow(c domain.Category) []any {
	return []any{
		c.ID, c.Name, c.Description, c.Slug, c.IsActive, c.ParentID, c.SortOrder, c.Level,
		c.CreatedAt, c.UpdatedAt,
	}
}

// ─── Variation type ─────────────────────────────────────────────────────────

var variationTypeCols = []string{"id", "name", "display_name", "is_active", "created_at", "updated_at"}

var optionCols = []string{"id", "variation_type_id", "value", "display_value", "sort_order"}

func sampleVariationType() domain.VariationType {
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	return domain.VariationType{
		ID:          id,
		Name:        "color",
		DisplayName: "Color",
		IsActive:    true,
		Options: []domain.VariantOption{
			{ID: uuid.MustParse("22222222-0000-0000-0000-000000000001"), VariationTypeID: id, Value: "red", DisplayValue: "Red", SortOrder: 1},
			{ID: uuid.MustParse("22222222-0000-0000-0000-000000000002"), VariationTypeID: id, Value: "blue", DisplayValue: "Blue", SortOrder: 2},
		},
		Audit: domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func variationTypeRow(vt domain.VariationType) []any {
	return []any{vt.ID, vt.Name, vt.DisplayName, vt.IsActive, vt.CreatedAt, vt.UpdatedAt}
}

func optionRow(o domain.VariantOption) []any {
	return []any{o.ID, o.VariationTypeID, o.Value, o.DisplayValue, o.SortOrder}
}

// ─── Product ────────────────────────────────────────────────────────────────

var productCols = []string{
	"id", "name", "slug", "description", "base_price", "category_id", "average_rating",
	"review_count", "is_active", "created_at", "updated_at", "deleted_at",
}

var productColsWithCount = append(append([]string{}, productCols...), "total_count")

var variantCols = []string{
	"id", "product_id", "sku", "price", "old_price", "stock_quantity", "track_inventory",
	"is_active", "created_at", "updated_at",
}

var imageCols = []string{"id", "product_id", "url", "alt_text", "sort_order", "is_primary"}

func sampleProduct() domain.Product {
	categoryID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return domain.Product{
		ID:            uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Name:          "Shirt",
		Slug:          "shirt",
		Description:   "A cotton shirt",
		BasePrice:     1500,
		CategoryID:    &categoryID,
		AverageRating: decimal.RequireFromString("4.50"),
		ReviewCount:   2,
		IsActive:      true,
		Audit:         domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Slug, p.Description, p.BasePrice, p.CategoryID, p.AverageRating.StringFixed(2),
		p.ReviewCount, p.IsActive, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	}
}

func sampleVariant(productID uuid.UUID) domain.ProductVariant {
	vt := sampleVariationType()
	return domain.ProductVariant{
		ID:              uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		ProductID:       productID,
		SKU:             strPtr("SHIRT-RED"),
		SelectedOptions: map[uuid.UUID]uuid.UUID{vt.ID: vt.Options[0].ID},
		Price:           1000,
		OldPrice:        int64Ptr(1200),
		StockQuantity:   5,
		TrackInventory:  true,
		IsActive:        true,
		Audit:           domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func variantRow(v domain.ProductVariant) []any {
	return []any{
		v.ID, v.ProductID, v.SKU, v.Price, v.OldPrice, v.StockQuantity, v.TrackInventory,
		v.IsActive, v.CreatedAt, v.UpdatedAt,
	}
}

// ─── Review ─────────────────────────────────────────────────────────────────

var reviewCols = []string{
	"id", "product_id", "user_id", "rating", "title", "comment", "helpful_count", "unhelpful_count",
	"created_at", "updated_at", "deleted_at",
}

var reviewColsWithCount = append(append([]string{}, reviewCols...), "total_count")

var voteCols = []string{"id", "review_id", "user_id", "vote_type", "created_at", "updated_at"}

func sampleReview() domain.ProductReview {
	return domain.ProductReview{
		ID:           uuid.MustParse("55555555-5555-5555-5555-555555555555"),
		ProductID:    uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		UserID:       uuid.MustParse("66666666-6666-6666-6666-666666666666"),
		Rating:       5,
		Title:        strPtr("Great fit"),
		HelpfulCount: 3,
		Audit:        domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
}

func reviewRow(r domain.ProductReview) []any {
	return []any{
		r.ID, r.ProductID, r.UserID, r.Rating, r.Title, r.Comment, r.HelpfulCount, r.UnhelpfulCount,
		r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	}
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
