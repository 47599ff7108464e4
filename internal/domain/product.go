package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/slug"
)

// ErrCodeDuplicateVariantCombination is returned when two variants select
// the same options.
const ErrCodeDuplicateVariantCombination = "DUPLICATE_VARIANT_COMBINATION"

// Product list sort orders.
const (
	SortByNewest    = "newest"
	SortByPriceAsc  = "price_asc"
	SortByPriceDesc = "price_desc"
	SortByNameAsc   = "name_asc"
	SortByNameDesc  = "name_desc"
	SortByRating    = "rating"
)

// ValidSortByValues returns the accepted product sort orders.
func ValidSortByValues() []string {
	return []string{SortByNewest, SortByPriceAsc, SortByPriceDesc, SortByNameAsc, SortByNameDesc, SortByRating}
}

// IsValidSortBy reports whether s is a known sort order. Empty means default.
func IsValidSortBy(s string) bool {
	return s == "" || slices.Contains(ValidSortByValues(), s)
}

// ProductImage is an image URL attached to a product.
type ProductImage struct {
	ID        uuid.UUID
	URL       string
	AltText   string
	SortOrder int
	IsPrimary bool
}

// ProductVariant is one sellable SKU. SelectedOptions maps a variation type
// id to the chosen option id.
type ProductVariant struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	SKU             *string
	SelectedOptions map[uuid.UUID]uuid.UUID
	Price           int64
	OldPrice        *int64
	StockQuantity   int
	TrackInventory  bool
	IsActive        bool
	Audit
}

// InStock reports whether the variant can be sold. Untracked variants are
// always in stock.
func (v ProductVariant) InStock() bool {
	return !v.TrackInventory || v.StockQuantity > 0
}

// combinationKey is a canonical string for the selected options.
func (v ProductVariant) combinationKey() string {
	pairs := make([]string, 0, len(v.SelectedOptions))
	for typeID, optionID := range v.SelectedOptions {
		pairs = append(pairs, typeID.String()+"="+optionID.String())
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ",")
}

// OptionSelection is one requested (variation type, option) pair.
type OptionSelection struct {
	VariationTypeID uuid.UUID
	OptionID        uuid.UUID
}

// VariantSpec is the requested state of one variant. A nil ID asks for a new
// variant.
type VariantSpec struct {
	ID              *uuid.UUID
	SKU             *string
	SelectedOptions []OptionSelection
	Price           int64
	OldPrice        *int64
	StockQuantity   int
	TrackInventory  bool
}

// Product is the catalog aggregate root.
type Product struct {
	ID               uuid.UUID
	Name             string
	Slug             string
	Description      string
	BasePrice        int64
	CategoryID       *uuid.UUID
	VariationTypeIDs []uuid.UUID
	Variants         []ProductVariant
	Images           []ProductImage
	Reviews          []ProductReview
	AverageRating    decimal.Decimal
	ReviewCount      int
	IsActive         bool
	Audit
}

// NewProduct builds an active product without category or variants.
func NewProduct(name, productSlug, description string, basePrice int64, now time.Time) (*Product, error) {
	p := &Product{
		ID:            uuid.New(),
		IsActive:      true,
		AverageRating: decimal.Zero,
	}
	if err := p.SetDetails(name, productSlug, description, basePrice); err != nil {
		return nil, err
	}
	MarkCreated(&p.Audit, now)
	return p, nil
}

// SetDetails replaces the descriptive fields. An empty slug is derived from
// the name.
func (p *Product) SetDetails(name, productSlug, description string, basePrice int64) error {
	var fields []apperrors.FieldError

	name = strings.TrimSpace(name)
	if name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	productSlug = strings.TrimSpace(productSlug)
	if productSlug == "" {
		productSlug = slug.Generate(name)
	}
	if !slug.Valid(productSlug) {
		fields = append(fields, apperrors.FieldError{Field: "slug", Message: "slug must be lowercase letters, digits and single hyphens"})
	}
	if basePrice < 0 {
		fields = append(fields, apperrors.FieldError{Field: "base_price", Message: "base_price must not be negative"})
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}

	p.Name = name
	p.Slug = productSlug
	p.Description = strings.TrimSpace(description)
	p.BasePrice = basePrice
	return nil
}

// SetClassification places the product in category and declares which of the
// category's variation types apply. The set must include every type the
// category requires. A product without a category has no variation types.
func (p *Product) SetClassification(category *Category, variationTypeIDs []uuid.UUID) error {
	if category == nil {
		if len(variationTypeIDs) > 0 {
			return apperrors.FieldInvalid("variation_type_ids", "a product without a category cannot declare variation types")
		}
		p.CategoryID = nil
		p.VariationTypeIDs = nil
		return nil
	}

	var fields []apperrors.FieldError
	seen := make(map[uuid.UUID]struct{}, len(variationTypeIDs))
	for i, id := range variationTypeIDs {
		field := fmt.Sprintf("variation_type_ids[%d]", i)
		if _, dup := seen[id]; dup {
			fields = append(fields, apperrors.FieldError{Field: field, Message: "variation type listed more than once"})
			continue
		}
		seen[id] = struct{}{}
		if _, ok := category.Association(id); !ok {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("variation type %s is not available in category %s", id, category.Slug),
			})
		}
	}
	for _, a := range category.VariationTypes {
		if _, ok := seen[a.VariationTypeID]; a.IsRequired && !ok {
			fields = append(fields, apperrors.FieldError{
				Field:   "variation_type_ids",
				Message: fmt.Sprintf("variation type %s is required by category %s", a.VariationTypeID, category.Slug),
			})
		}
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}

	id := category.ID
	p.CategoryID = &id
	p.VariationTypeIDs = slices.Clone(variationTypeIDs)
	return nil
}

// ReplaceVariants reconciles the variant set with specs: specs carrying an id
// update that variant in place (reactivating a retired one), specs without one
// add a variant, and active variants absent from specs are removed from the
// product and returned so the caller can decide whether to retire them
// instead (see RetainRetired). Retired variants absent from specs stay
// retired. types must hold every variation type in p.VariationTypeIDs.
func (p *Product) ReplaceVariants(specs []VariantSpec, types map[uuid.UUID]*VariationType, now time.Time) ([]ProductVariant, error) {
	existing := make(map[uuid.UUID]ProductVariant, len(p.Variants))
	for _, v := range p.Variants {
		existing[v.ID] = v
	}

	var fields []apperrors.FieldError
	next := make([]ProductVariant, 0, len(specs))
	kept := make(map[uuid.UUID]struct{}, len(specs))
	skus := make(map[string]int, len(specs))

	for i, spec := range specs {
		prefix := fmt.Sprintf("variants[%d]", i)

		selected, errs := p.resolveSelection(prefix, spec.SelectedOptions, types)
		fields = append(fields, errs...)
		fields = append(fields, validateVariantNumbers(prefix, spec)...)

		v := ProductVariant{
			ID:              uuid.New(),
			ProductID:       p.ID,
			SelectedOptions: selected,
			Price:           spec.Price,
			OldPrice:        spec.OldPrice,
			StockQuantity:   spec.StockQuantity,
			TrackInventory:  spec.TrackInventory,
			IsActive:        true,
		}
		if spec.SKU != nil {
			if sku := strings.TrimSpace(*spec.SKU); sku != "" {
				if first, dup := skus[strings.ToLower(sku)]; dup {
					fields = append(fields, apperrors.FieldError{
						Field:   prefix + ".sku",
						Message: fmt.Sprintf("sku %q already used by variants[%d]", sku, first),
					})
				}
				skus[strings.ToLower(sku)] = i
				v.SKU = &sku
			}
		}

		if spec.ID != nil {
			prev, ok := existing[*spec.ID]
			if !ok {
				fields = append(fields, apperrors.FieldError{Field: prefix + ".id", Message: "variant does not belong to this product"})
				continue
			}
			if _, dup := kept[prev.ID]; dup {
				fields = append(fields, apperrors.FieldError{Field: prefix + ".id", Message: "variant listed more than once"})
				continue
			}
			kept[prev.ID] = struct{}{}
			v.ID = prev.ID
			v.Audit = prev.Audit
			MarkUpdated(&v.Audit, now)
		} else {
			MarkCreated(&v.Audit, now)
		}
		next = append(next, v)
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	combos := make(map[string]int, len(next))
	for i, v := range next {
		if len(v.SelectedOptions) == 0 {
			continue
		}
		key := v.combinationKey()
		if first, dup := combos[key]; dup {
			return nil, apperrors.ConflictCode(ErrCodeDuplicateVariantCombination,
				fmt.Sprintf("variants[%d] selects the same options as variants[%d]", i, first))
		}
		combos[key] = i
	}

	var removed []ProductVariant
	for _, v := range p.Variants {
		if _, ok := kept[v.ID]; ok {
			continue
		}
		if !v.IsActive {
			next = append(next, v)
			continue
		}
		removed = append(removed, v)
	}
	p.Variants = next
	return removed, nil
}

// RetainRetired keeps a removed variant on the product as inactive. Used for
// variants that order history still references.
func (p *Product) RetainRetired(v ProductVariant, now time.Time) {
	v.IsActive = false
	MarkUpdated(&v.Audit, now)
	p.Variants = append(p.Variants, v)
}

func (p *Product) resolveSelection(prefix string, sel []OptionSelection, types map[uuid.UUID]*VariationType) (map[uuid.UUID]uuid.UUID, []apperrors.FieldError) {
	field := prefix + ".selected_options"
	var fields []apperrors.FieldError
	selected := make(map[uuid.UUID]uuid.UUID, len(sel))

	for _, s := range sel {
		if !slices.Contains(p.VariationTypeIDs, s.VariationTypeID) {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("variation type %s does not apply to this product", s.VariationTypeID),
			})
			continue
		}
		if _, dup := selected[s.VariationTypeID]; dup {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("more than one option selected for variation type %s", s.VariationTypeID),
			})
			continue
		}
		vt, ok := types[s.VariationTypeID]
		if !ok {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("variation type %s does not exist", s.VariationTypeID),
			})
			continue
		}
		if _, ok := vt.Option(s.OptionID); !ok {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("option %s does not belong to variation type %s", s.OptionID, vt.Name),
			})
			continue
		}
		selected[s.VariationTypeID] = s.OptionID
	}

	for _, typeID := range p.VariationTypeIDs {
		if _, ok := selected[typeID]; ok {
			continue
		}
		name := typeID.String()
		if vt, ok := types[typeID]; ok {
			name = vt.Name
		}
		if !slices.ContainsFunc(sel, func(s OptionSelection) bool { return s.VariationTypeID == typeID }) {
			fields = append(fields, apperrors.FieldError{
				Field:   field,
				Message: fmt.Sprintf("missing option for variation type %s", name),
			})
		}
	}
	return selected, fields
}

func validateVariantNumbers(prefix string, spec VariantSpec) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if spec.Price < 0 {
		fields = append(fields, apperrors.FieldError{Field: prefix + ".price", Message: "price must not be negative"})
	}
	if spec.OldPrice != nil && *spec.OldPrice < spec.Price {
		fields = append(fields, apperrors.FieldError{Field: prefix + ".old_price", Message: "old_price must be greater than or equal to price"})
	}
	if spec.StockQuantity < 0 {
		fields = append(fields, apperrors.FieldError{Field: prefix + ".stock_quantity", Message: "stock_quantity must not be negative"})
	}
	return fields
}

// ActiveVariants returns the variants currently offered for sale.
func (p *Product) ActiveVariants() []ProductVariant {
	active := make([]ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.IsActive && !v.IsDeleted() {
			active = append(active, v)
		}
	}
	return active
}

// cheapestVariant returns the first active variant with the lowest price.
func (p *Product) cheapestVariant() (ProductVariant, bool) {
	var (
		best  ProductVariant
		found bool
	)
	for _, v := range p.ActiveVariants() {
		if !found || v.Price < best.Price {
			best, found = v, true
		}
	}
	return best, found
}

// LowestPrice is the cheapest active variant's price, or the base price when
// the product has no active variants.
func (p *Product) LowestPrice() int64 {
	if v, ok := p.cheapestVariant(); ok {
		return v.Price
	}
	return p.BasePrice
}

// LowestOldPrice is the old price of the cheapest active variant, if it has one.
func (p *Product) LowestOldPrice() *int64 {
	v, ok := p.cheapestVariant()
	if !ok || v.OldPrice == nil {
		return nil
	}
	old := *v.OldPrice
	return &old
}

// HasStock reports whether any active variant can be sold.
func (p *Product) HasStock() bool {
	return slices.ContainsFunc(p.ActiveVariants(), ProductVariant.InStock)
}

// TotalStock sums stock over active variants that track inventory.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.ActiveVariants() {
		if v.TrackInventory {
			total += v.StockQuantity
		}
	}
	return total
}

// Variant returns the variant with the given id.
func (p *Product) Variant(id uuid.UUID) (ProductVariant, bool) {
	i := slices.IndexFunc(p.Variants, func(v ProductVariant) bool { return v.ID == id })
	if i < 0 {
		return ProductVariant{}, false
	}
	return p.Variants[i], true
}

// SetImages replaces the image list. When none is flagged primary the first
// image becomes primary.
func (p *Product) SetImages(images []ProductImage) error {
	var fields []apperrors.FieldError
	primary := -1
	out := make([]ProductImage, 0, len(images))
	for i, img := range images {
		img.URL = strings.TrimSpace(img.URL)
		if img.URL == "" {
			fields = append(fields, apperrors.FieldError{Field: fmt.Sprintf("images[%d].url", i), Message: "url is required"})
			continue
		}
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		if img.IsPrimary {
			if primary >= 0 {
				img.IsPrimary = false
			} else {
				primary = i
			}
		}
		out = append(out, img)
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	if primary < 0 && len(out) > 0 {
		out[0].IsPrimary = true
	}
	p.Images = out
	return nil
}

// PrimaryImage returns the image flagged primary.
func (p *Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// Delete soft-deletes the product.
func (p *Product) Delete(now time.Time) {
	MarkDeleted(&p.Audit, now)
}

// RemoveReview soft-deletes one of the product's reviews on behalf of actor.
// Only the review's author or an admin may do so. Reviews must have been
// loaded onto the aggregate.
func (p *Product) RemoveReview(reviewID uuid.UUID, actor Actor, now time.Time) (*ProductReview, error) {
	for i := range p.Reviews {
		r := &p.Reviews[i]
		if r.ID != reviewID || r.IsDeleted() {
			continue
		}
		if r.UserID != actor.UserID && !actor.IsAdmin {
			return nil, apperrors.Forbidden("only the review author or an admin can delete this review")
		}
		MarkDeleted(&r.Audit, now)
		return r, nil
	}
	return nil, apperrors.NotFound("review", reviewID.String())
}
