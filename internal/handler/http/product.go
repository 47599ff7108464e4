package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/pkg/httputil"
	"github.com/utafrali/catalog/pkg/pagination"
)

// ProductService is the product use-case surface the handler needs.
type ProductService interface {
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error)
	ListProducts(ctx context.Context, in service.ListProductsInput) (*pagination.Result[*domain.Product], error)
}

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// SelectedOptionRequest picks one option of one variation type.
type SelectedOptionRequest struct {
	VariationTypeID uuid.UUID `json:"variation_type_id" validate:"required"`
	OptionID        uuid.UUID `json:"option_id" validate:"required"`
}

// VariantRequest is the requested state of a variant. Omit id to add one.
// track_inventory defaults to true.
type VariantRequest struct {
	ID              *uuid.UUID              `json:"id"`
	SKU             *string                 `json:"sku" validate:"omitempty,max=100"`
	SelectedOptions []SelectedOptionRequest `json:"selected_options" validate:"omitempty,dive"`
	Price           int64                   `json:"price" validate:"gte=0"`
	OldPrice        *int64                  `json:"old_price" validate:"omitempty,gte=0"`
	StockQuantity   int                     `json:"stock_quantity" validate:"gte=0"`
	TrackInventory  *bool                   `json:"track_inventory"`
}

// ImageRequest is one product image.
type ImageRequest struct {
	URL       string `json:"url" validate:"required,url,max=2048"`
	AltText   string `json:"alt_text" validate:"max=255"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
	IsPrimary bool   `json:"is_primary"`
}

// ProductRequest is the JSON request body for creating or replacing a
// product.
type ProductRequest struct {
	Name             string           `json:"name" validate:"required,notblank,max=500"`
	Slug             string           `json:"slug" validate:"omitempty,slug,max=500"`
	Description      string           `json:"description" validate:"max=10000"`
	BasePrice        int64            `json:"base_price" validate:"gte=0"`
	CategoryID       *uuid.UUID       `json:"category_id"`
	VariationTypeIDs []uuid.UUID      `json:"variation_type_ids" validate:"omitempty,dive,required"`
	Variants         []VariantRequest `json:"variants" validate:"omitempty,dive"`
	Images           []ImageRequest   `json:"images" validate:"omitempty,max=50,dive"`
	IsActive         *bool            `json:"is_active"`
}

func (req ProductRequest) input() service.ProductInput {
	variants := make([]domain.VariantSpec, 0, len(req.Variants))
	for _, v := range req.Variants {
		selection := make([]domain.OptionSelection, 0, len(v.SelectedOptions))
		for _, s := range v.SelectedOptions {
			selection = append(selection, domain.OptionSelection{VariationTypeID: s.VariationTypeID, OptionID: s.OptionID})
		}
		track := true
		if v.TrackInventory != nil {
			track = *v.TrackInventory
		}
		variants = append(variants, domain.VariantSpec{
			ID:              v.ID,
			SKU:             v.SKU,
			SelectedOptions: selection,
			Price:           v.Price,
			OldPrice:        v.OldPrice,
			StockQuantity:   v.StockQuantity,
			TrackInventory:  track,
		})
	}
	images := make([]service.ProductImageInput, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, service.ProductImageInput{
			URL:       img.URL,
			AltText:   img.AltText,
			SortOrder: img.SortOrder,
			IsPrimary: img.IsPrimary,
		})
	}
	return service.ProductInput{
		Name:             req.Name,
		Slug:             req.Slug,
		Description:      req.Description,
		BasePrice:        req.BasePrice,
		CategoryID:       req.CategoryID,
		VariationTypeIDs: req.VariationTypeIDs,
		Variants:         variants,
		Images:           images,
		IsActive:         req.IsActive,
	}
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	in := service.ListProductsInput{
		CategoryID: q.UUID("category_id"),
		Search:     q.String("search"),
		MinPrice:   q.Int64("min_price"),
		MaxPrice:   q.Int64("max_price"),
		IsActive:   q.Bool("is_active"),
		InStock:    q.Bool("in_stock"),
		Page:       q.Int("page"),
		PerPage:    q.Int("per_page"),
	}
	if sortBy := q.String("sort_by"); sortBy != nil {
		in.SortBy = *sortBy
	}
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.ListProducts(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.Result[ProductListItemResponse]{
		Items:      ToProductListItemResponses(page.Items),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	})
}

// GetProduct handles GET /api/v1/products/{productID}, where the key is a
// product id or slug.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToProductDetailResponse(p))
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.service.CreateProduct(r.Context(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ToProductDetailResponse(p))
}

// UpdateProduct handles PUT /api/v1/products/{productID}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	var req ProductRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToProductDetailResponse(p))
}

// DeleteProduct handles DELETE /api/v1/products/{productID}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id.String(), "status": "deleted"})
}
