package http

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/pkg/pagination"
)

// --- Variation types ---

// VariantOptionResponse is one option of a variation type.
type VariantOptionResponse struct {
	ID           uuid.UUID `json:"id"`
	Value        string    `json:"value"`
	DisplayValue string    `json:"display_value"`
	SortOrder    int       `json:"sort_order"`
}

// VariationTypeResponse is the JSON shape of a variation type.
type VariationTypeResponse struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	DisplayName string                  `json:"display_name"`
	IsActive    bool                    `json:"is_active"`
	Options     []VariantOptionResponse `json:"options"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// ToVariationTypeResponse converts a variation type to its JSON shape.
func ToVariationTypeResponse(vt *domain.VariationType) VariationTypeResponse {
	options := make([]VariantOptionResponse, 0, len(vt.Options))
	for _, opt := range vt.Options {
		options = append(options, VariantOptionResponse{
			ID:           opt.ID,
			Value:        opt.Value,
			DisplayValue: opt.DisplayValue,
			SortOrder:    opt.SortOrder,
		})
	}
	return VariationTypeResponse{
		ID:          vt.ID,
		Name:        vt.Name,
		DisplayName: vt.DisplayName,
		IsActive:    vt.IsActive,
		Options:     options,
		CreatedAt:   vt.CreatedAt,
		UpdatedAt:   vt.UpdatedAt,
	}
}

// --- Categories ---

// CategoryVariationTypeResponse is a category's association with a type.
type CategoryVariationTypeResponse struct {
	VariationTypeID uuid.UUID              `json:"variation_type_id"`
	IsRequired      bool                   `json:"is_required"`
	VariationType   *VariationTypeResponse `json:"variation_type,omitempty"`
}

// CategoryResponse is the JSON shape of a category. SubCategories is only
// filled in the tree view.
type CategoryResponse struct {
	ID             uuid.UUID                       `json:"id"`
	Name           string                          `json:"name"`
	Slug           string                          `json:"slug"`
	Description    string                          `json:"description"`
	ParentID       *uuid.UUID                      `json:"parent_id"`
	Level          int                             `json:"level"`
	SortOrder      int                             `json:"sort_order"`
	IsActive       bool                            `json:"is_active"`
	VariationTypes []CategoryVariationTypeResponse `json:"variation_types"`
	SubCategories  []CategoryResponse              `json:"sub_categories,omitempty"`
	CreatedAt      time.Time                       `json:"created_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`
}

// ToCategoryResponse converts a category and its subtree.
func ToCategoryResponse(c *domain.Category) CategoryResponse {
	assocs := make([]CategoryVariationTypeResponse, 0, len(c.VariationTypes))
	for _, a := range c.VariationTypes {
		resp := CategoryVariationTypeResponse{VariationTypeID: a.VariationTypeID, IsRequired: a.IsRequired}
		if a.VariationType != nil {
			vt := ToVariationTypeResponse(a.VariationType)
			resp.VariationType = &vt
		}
		assocs = append(assocs, resp)
	}
	var children []CategoryResponse
	for _, sub := range c.SubCategories {
		children = append(children, ToCategoryResponse(sub))
	}
	return CategoryResponse{
		ID:             c.ID,
		Name:           c.Name,
		Slug:           c.Slug,
		Description:    c.Description,
		ParentID:       c.ParentID,
		Level:          c.Level,
		SortOrder:      c.SortOrder,
		IsActive:       c.IsActive,
		VariationTypes: assocs,
		SubCategories:  children,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToCategoryResponses converts a list of categories.
func ToCategoryResponses(categories []*domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, ToCategoryResponse(c))
	}
	return out
}

// --- Products ---

// ImageResponse is a product image.
type ImageResponse struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text"`
	SortOrder int       `json:"sort_order"`
	IsPrimary bool      `json:"is_primary"`
}

// SelectedOptionResponse is one (variation type, option) pair of a variant.
type SelectedOptionResponse struct {
	VariationTypeID uuid.UUID `json:"variation_type_id"`
	OptionID        uuid.UUID `json:"option_id"`
}

// VariantResponse is one product variant.
type VariantResponse struct {
	ID              uuid.UUID                `json:"id"`
	SKU             *string                  `json:"sku"`
	SelectedOptions []SelectedOptionResponse `json:"selected_options"`
	Price           int64                    `json:"price"`
	OldPrice        *int64                   `json:"old_price"`
	StockQuantity   int                      `json:"stock_quantity"`
	TrackInventory  bool                     `json:"track_inventory"`
	InStock         bool                     `json:"in_stock"`
	IsActive        bool                     `json:"is_active"`
}

// ProductListItemResponse is the list projection of a product.
type ProductListItemResponse struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	CategoryID     *uuid.UUID     `json:"category_id"`
	BasePrice      int64          `json:"base_price"`
	LowestPrice    int64          `json:"lowest_price"`
	LowestOldPrice *int64         `json:"lowest_old_price"`
	HasStock       bool           `json:"has_stock"`
	AverageRating  string         `json:"average_rating"`
	ReviewCount    int            `json:"review_count"`
	PrimaryImage   *ImageResponse `json:"primary_image"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ProductDetailResponse is the detail projection of a product.
type ProductDetailResponse struct {
	ProductListItemResponse
	Description      string            `json:"description"`
	VariationTypeIDs []uuid.UUID       `json:"variation_type_ids"`
	TotalStock       int               `json:"total_stock"`
	Variants         []VariantResponse `json:"variants"`
	Images           []ImageResponse   `json:"images"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func toImageResponse(img domain.ProductImage) ImageResponse {
	return ImageResponse{
		ID:        img.ID,
		URL:       img.URL,
		AltText:   img.AltText,
		SortOrder: img.SortOrder,
		IsPrimary: img.IsPrimary,
	}
}

// ToProductListItemResponse converts a product to its list projection.
func ToProductListItemResponse(p *domain.Product) ProductListItemResponse {
	resp := ProductListItemResponse{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		CategoryID:     p.CategoryID,
		BasePrice:      p.BasePrice,
		LowestPrice:    p.LowestPrice(),
		LowestOldPrice: p.LowestOldPrice(),
		HasStock:       p.HasStock(),
		AverageRating:  p.AverageRating.StringFixed(2),
		ReviewCount:    p.ReviewCount,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
	}
	if img := p.PrimaryImage(); img != nil {
		primary := toImageResponse(*img)
		resp.PrimaryImage = &primary
	}
	return resp
}

// ToProductListItemResponses converts a page of products.
func ToProductListItemResponses(products []*domain.Product) []ProductListItemResponse {
	out := make([]ProductListItemResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ToProductListItemResponse(p))
	}
	return out
}

// ToProductDetailResponse converts a product to its detail projection.
func ToProductDetailResponse(p *domain.Product) ProductDetailResponse {
	images := make([]ImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, toImageResponse(img))
	}
	variants := make([]VariantResponse, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantResponse{
			ID:              v.ID,
			SKU:             v.SKU,
			SelectedOptions: selectedOptions(v, p.VariationTypeIDs),
			Price:           v.Price,
			OldPrice:        v.OldPrice,
			StockQuantity:   v.StockQuantity,
			TrackInventory:  v.TrackInventory,
			InStock:         v.InStock(),
			IsActive:        v.IsActive,
		})
	}
	typeIDs := p.VariationTypeIDs
	if typeIDs == nil {
		typeIDs = []uuid.UUID{}
	}
	return ProductDetailResponse{
		ProductListItemResponse: ToProductListItemResponse(p),
		Description:             p.Description,
		VariationTypeIDs:        typeIDs,
		TotalStock:              p.TotalStock(),
		Variants:                variants,
		Images:                  images,
		UpdatedAt:               p.UpdatedAt,
	}
}

// selectedOptions lists a variant's selection in the product's type order;
// types the product no longer declares follow, ordered by id.
func selectedOptions(v domain.ProductVariant, order []uuid.UUID) []SelectedOptionResponse {
	out := make([]SelectedOptionResponse, 0, len(v.SelectedOptions))
	for _, typeID := range order {
		if optionID, ok := v.SelectedOptions[typeID]; ok {
			out = append(out, SelectedOptionResponse{VariationTypeID: typeID, OptionID: optionID})
		}
	}
	var rest []SelectedOptionResponse
	for typeID, optionID := range v.SelectedOptions {
		if !slices.Contains(order, typeID) {
			rest = append(rest, SelectedOptionResponse{VariationTypeID: typeID, OptionID: optionID})
		}
	}
	slices.SortFunc(rest, func(a, b SelectedOptionResponse) int {
		return slices.Compare(a.VariationTypeID[:], b.VariationTypeID[:])
	})
	return append(out, rest...)
}

// --- Reviews ---

// ReviewResponse is the JSON shape of a review.
type ReviewResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ReviewerName   string    `json:"reviewer_name"`
	Rating         int       `json:"rating"`
	Title          *string   `json:"title"`
	Comment        *string   `json:"comment"`
	HelpfulCount   int       `json:"helpful_count"`
	UnhelpfulCount int       `json:"unhelpful_count"`
	MyVote         *string   `json:"my_vote,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReviewListResponse is a page of reviews with rating statistics.
type ReviewListResponse struct {
	pagination.Result[ReviewResponse]
	AverageRating      string      `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// VoteResponse reports review counters after a vote.
type VoteResponse struct {
	ReviewID       uuid.UUID `json:"review_id"`
	HelpfulCount   int       `json:"helpful_count"`
	UnhelpfulCount int       `json:"unhelpful_count"`
	State          string    `json:"state"`
	VoteType       *string   `json:"vote_type"`
}

// ToReviewResponse converts a review; reviewerName is already censored.
func ToReviewResponse(r *domain.ProductReview, reviewerName string, myVote *domain.VoteType) ReviewResponse {
	resp := ReviewResponse{
		ID:             r.ID,
		ProductID:      r.ProductID,
		ReviewerName:   reviewerName,
		Rating:         r.Rating,
		Title:          r.Title,
		Comment:        r.Comment,
		HelpfulCount:   r.HelpfulCount,
		UnhelpfulCount: r.UnhelpfulCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if myVote != nil {
		v := string(*myVote)
		resp.MyVote = &v
	}
	return resp
}

// ToReviewListResponse converts a review page.
func ToReviewListResponse(list *service.ReviewList) ReviewListResponse {
	items := make([]ReviewResponse, 0, len(list.Items))
	for _, view := range list.Items {
		items = append(items, ToReviewResponse(view.Review, view.ReviewerName, view.MyVote))
	}
	return ReviewListResponse{
		Result: pagination.Result[ReviewResponse]{
			Items:      items,
			TotalCount: list.TotalCount,
			Page:       list.Page,
			PerPage:    list.PerPage,
			TotalPages: list.TotalPages,
			HasNext:    list.HasNext,
			HasPrev:    list.HasPrev,
		},
		AverageRating:      list.AverageRating.StringFixed(2),
		RatingDistribution: list.RatingDistribution,
	}
}

// ToVoteResponse converts a vote result.
func ToVoteResponse(res *service.VoteResult) VoteResponse {
	resp := VoteResponse{
		ReviewID:       res.ReviewID,
		HelpfulCount:   res.HelpfulCount,
		UnhelpfulCount: res.UnhelpfulCount,
		State:          string(res.Transition),
	}
	if res.CurrentVote != nil {
		v := string(*res.CurrentVote)
		resp.VoteType = &v
	}
	return resp
}
