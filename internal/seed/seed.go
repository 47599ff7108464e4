// Package seed populates a catalog with deterministic demo data through the
// service layer, so every generated row passes the same checks as API
// traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// VariationTypes is the variation type surface the seeder needs.
type VariationTypes interface {
	ListVariationTypes(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error)
	CreateVariationType(ctx context.Context, in service.VariationTypeInput) (*domain.VariationType, error)
}

// Categories is the category surface the seeder needs.
type Categories interface {
	GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, in service.CreateCategoryInput) (*domain.Category, error)
}

// Products is the product surface the seeder needs.
type Products interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
}

// Result counts what a run created.
type Result struct {
	VariationTypes int
	Categories     int
	Products       int
	// Skipped products already existed from an earlier run.
	Skipped int
}

type optionDef struct {
	Value   string
	Display string
}

type variationTypeDef struct {
	Name    string
	Display string
	Options []optionDef
}

const (
	typeColor = "color"
	typeSize  = "size"
)

var variationTypeDefs = []variationTypeDef{
	{typeColor, "Color", []optionDef{
		{"black", "Black"}, {"navy", "Navy"}, {"beige", "Beige"}, {"burgundy", "Burgundy"}, {"olive", "Olive"},
	}},
	{typeSize, "Size", []optionDef{
		{"s", "S"}, {"m", "M"}, {"l", "L"}, {"xl", "XL"},
	}},
}

type categoryDef struct {
	Name     string
	Slug     string
	Sized    bool
	Nouns    []string
	Children []categoryDef
}

var categoryDefs = []categoryDef{
	{Name: "Dresses", Slug: "dresses", Sized: true, Children: []categoryDef{
		{Name: "Maxi Dresses", Slug: "maxi-dresses", Sized: true, Nouns: []string{"Maxi Dress", "Shirt Dress"}},
		{Name: "Knit Dresses", Slug: "knit-dresses", Sized: true, Nouns: []string{"Knit Dress", "Sweater Dress"}},
	}},
	{Name: "Outerwear", Slug: "outerwear", Sized: true, Children: []categoryDef{
		{Name: "Coats", Slug: "coats", Sized: true, Nouns: []string{"Wool Coat", "Puffer Coat"}},
		{Name: "Trench Coats", Slug: "trench-coats", Sized: true, Nouns: []string{"Trench Coat"}},
	}},
	{Name: "Tops", Slug: "tops", Sized: true, Children: []categoryDef{
		{Name: "Tunics", Slug: "tunics", Sized: true, Nouns: []string{"Tunic", "Long Tunic"}},
		{Name: "Shirts", Slug: "shirts", Sized: true, Nouns: []string{"Shirt", "Blouse"}},
	}},
	{Name: "Accessories", Slug: "accessories", Children: []categoryDef{
		{Name: "Scarves", Slug: "scarves", Nouns: []string{"Scarf", "Shawl"}},
	}},
}

var adjectives = []string{"Linen", "Pleated", "Belted", "Classic", "Oversized", "Striped", "Satin", "Cotton"}

// leaf is a category products can be assigned to.
type leaf struct {
	category *domain.Category
	def      categoryDef
}

// Seeder creates demo variation types, categories and products.
type Seeder struct {
	types      VariationTypes
	categories Categories
	products   Products
	logger     *slog.Logger
	rng        *rand.Rand
}

// New creates a seeder. The same seed always yields the same catalog.
func New(types VariationTypes, categories Categories, products Products, logger *slog.Logger, seed uint64) *Seeder {
	return &Seeder{
		types:      types,
		categories: categories,
		products:   products,
		logger:     logger,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), // #nosec G404 -- demo data
	}
}

// Run creates whatever of the demo catalog is missing plus count products.
// Existing variation types and categories are reused; products whose slug
// already exists are skipped.
func (s *Seeder) Run(ctx context.Context, count int) (Result, error) {
	var res Result

	types, err := s.ensureVariationTypes(ctx, &res)
	if err != nil {
		return res, err
	}
	leaves, err := s.ensureCategories(ctx, types, &res)
	if err != nil {
		return res, err
	}

	for i := range count {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in := s.product(i, leaves[i%len(leaves)], types)
		_, err := s.products.CreateProduct(ctx, in)
		switch {
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("create product %q: %w", in.Name, err)
		default:
			res.Products++
		}
		if (i+1)%100 == 0 {
			s.logger.InfoContext(ctx, "seeding products", slog.Int("done", i+1), slog.Int("total", count))
		}
	}
	return res, nil
}

func (s *Seeder) ensureVariationTypes(ctx context.Context, res *Result) (map[string]*domain.VariationType, error) {
	existing, err := s.types.ListVariationTypes(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list variation types: %w", err)
	}
	byName := make(map[string]*domain.VariationType, len(existing))
	for _, vt := range existing {
		byName[vt.Name] = vt
	}

	for _, def := range variationTypeDefs {
		if _, ok := byName[def.Name]; ok {
			continue
		}
		specs := make([]domain.OptionSpec, 0, len(def.Options))
		for i, o := range def.Options {
			specs = append(specs, domain.OptionSpec{Value: o.Value, DisplayValue: o.Display, SortOrder: i})
		}
		vt, err := s.types.CreateVariationType(ctx, service.VariationTypeInput{
			Name:        def.Name,
			DisplayName: def.Display,
			Options:     specs,
		})
		if err != nil {
			return nil, fmt.Errorf("create variation type %q: %w", def.Name, err)
		}
		byName[def.Name] = vt
		res.VariationTypes++
	}
	return byName, nil
}

func (s *Seeder) ensureCategories(ctx context.Context, types map[string]*domain.VariationType, res *Result) ([]leaf, error) {
	var leaves []leaf
	var walk func(defs []categoryDef, parent *uuid.UUID) error
	walk = func(defs []categoryDef, parent *uuid.UUID) error {
		for i, def := range defs {
			c, err := s.categories.GetCategory(ctx, def.Slug)
			if errors.Is(err, apperrors.ErrNotFound) {
				c, err = s.categories.CreateCategory(ctx, service.CreateCategoryInput{
					Name:           def.Name,
					Slug:           def.Slug,
					ParentID:       parent,
					SortOrder:      i,
					VariationTypes: categoryTypes(def, types),
				})
				if err == nil {
					res.Categories++
				}
			}
			if err != nil {
				return fmt.Errorf("ensure category %q: %w", def.Slug, err)
			}
			if len(def.Children) == 0 {
				leaves = append(leaves, leaf{category: c, def: def})
				continue
			}
			if err := walk(def.Children, &c.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(categoryDefs, nil); err != nil {
		return nil, err
	}
	return leaves, nil
}

func categoryTypes(def categoryDef, types map[string]*domain.VariationType) []service.CategoryVariationTypeInput {
	out := []service.CategoryVariationTypeInput{{VariationTypeID: types[typeColor].ID, IsRequired: true}}
	if def.Sized {
		out = append(out, service.CategoryVariationTypeInput{VariationTypeID: types[typeSize].ID, IsRequired: true})
	}
	return out
}

// product builds the i-th demo product: two colors, and for sized
// categories two to four sizes, with one variant per combination.
func (s *Seeder) product(i int, l leaf, types map[string]*domain.VariationType) service.ProductInput {
	color := types[typeColor]
	name := fmt.Sprintf("%s %s %05d",
		adjectives[s.rng.IntN(len(adjectives))],
		l.def.Nouns[s.rng.IntN(len(l.def.Nouns))],
		i+1,
	)
	basePrice := int64(1999 + s.rng.IntN(20)*500)

	typeIDs := []uuid.UUID{color.ID}
	colors := s.pick(color.Options, 2)
	sizes := []domain.VariantOption{{}}
	if l.def.Sized {
		size := types[typeSize]
		typeIDs = append(typeIDs, size.ID)
		sizes = s.pick(size.Options, 2+s.rng.IntN(3))
	}

	var variants []domain.VariantSpec
	for _, c := range colors {
		for _, sz := range sizes {
			selection := []domain.OptionSelection{{VariationTypeID: color.ID, OptionID: c.ID}}
			skuParts := []string{"SEED", fmt.Sprintf("%05d", i+1), c.Value}
			if sz.ID != uuid.Nil {
				selection = append(selection, domain.OptionSelection{VariationTypeID: sz.VariationTypeID, OptionID: sz.ID})
				skuParts = append(skuParts, sz.Value)
			}
			sku := strings.ToUpper(strings.Join(skuParts, "-"))

			v := domain.VariantSpec{
				SKU:             &sku,
				SelectedOptions: selection,
				Price:           basePrice,
				StockQuantity:   s.rng.IntN(40),
				TrackInventory:  true,
			}
			if s.rng.IntN(4) == 0 {
				old := basePrice + 1000
				v.OldPrice = &old
			}
			variants = append(variants, v)
		}
	}

	return service.ProductInput{
		Name:             name,
		Description:      fmt.Sprintf("%s from the %s collection.", name, l.def.Name),
		BasePrice:        basePrice,
		CategoryID:       &l.category.ID,
		VariationTypeIDs: typeIDs,
		Variants:         variants,
		Images: []service.ProductImageInput{{
			URL:       fmt.Sprintf("https://cdn.example.com/seed/%05d.jpg", i+1),
			AltText:   name,
			IsPrimary: true,
		}},
	}
}

// pick returns n distinct options in random order.
func (s *Seeder) pick(options []domain.VariantOption, n int) []domain.VariantOption {
	n = min(n, len(options))
	out := make([]domain.VariantOption, 0, n)
	for _, idx := range s.rng.Perm(len(options))[:n] {
		out = append(out, options[idx])
	}
	return out
}
