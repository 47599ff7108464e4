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
)

// CategoryService is the category use-case surface the handler needs.
type CategoryService interface {
	CreateCategory(ctx context.Context, in service.CreateCategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in service.UpdateCategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	GetCategoryTree(ctx context.Context) ([]*domain.Category, error)
}

// CategoryHandler handles HTTP requests for category endpoints.
type CategoryHandler struct {
	service CategoryService
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CategoryVariationTypeRequest associates a variation type with a category.
type CategoryVariationTypeRequest struct {
	VariationTypeID uuid.UUID `json:"variation_type_id" validate:"required"`
	IsRequired      bool      `json:"is_required"`
}

// CreateCategoryRequest is the JSON request body for creating a category.
type CreateCategoryRequest struct {
	Name           string                         `json:"name" validate:"required,notblank,max=255"`
	Slug           string                         `json:"slug" validate:"omitempty,slug,max=255"`
	Description    string                         `json:"description" validate:"max=2000"`
	ParentID       *uuid.UUID                     `json:"parent_id"`
	SortOrder      int                            `json:"sort_order" validate:"gte=0"`
	IsActive       *bool                          `json:"is_active"`
	VariationTypes []CategoryVariationTypeRequest `json:"variation_types" validate:"omitempty,dive"`
}

// UpdateCategoryRequest is the JSON request body for updating a category.
// Absent fields are left unchanged; clear_parent moves it to the root.
type UpdateCategoryRequest struct {
	Name           *string                         `json:"name" validate:"omitempty,notblank,max=255"`
	Slug           *string                         `json:"slug" validate:"omitempty,slug,max=255"`
	Description    *string                         `json:"description" validate:"omitempty,max=2000"`
	ParentID       *uuid.UUID                      `json:"parent_id"`
	ClearParent    bool                            `json:"clear_parent"`
	SortOrder      *int                            `json:"sort_order" validate:"omitempty,gte=0"`
	IsActive       *bool                           `json:"is_active"`
	VariationTypes *[]CategoryVariationTypeRequest `json:"variation_types" validate:"omitempty,dive"`
}

func toCategoryVariationTypeInputs(in []CategoryVariationTypeRequest) []service.CategoryVariationTypeInput {
	out := make([]service.CategoryVariationTypeInput, 0, len(in))
	for _, a := range in {
		out = append(out, service.CategoryVariationTypeInput{VariationTypeID: a.VariationTypeID, IsRequired: a.IsRequired})
	}
	return out
}

// --- Handlers ---

// ListCategories handles GET /api/v1/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	active := q.Bool("active")
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	categories, err := h.service.ListCategories(r.Context(), active != nil && *active)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToCategoryResponses(categories))
}

// GetCategoryTree handles GET /api/v1/categories/tree
func (h *CategoryHandler) GetCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.GetCategoryTree(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToCategoryResponses(tree))
}

// GetCategory handles GET /api/v1/categories/{idOrSlug}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToCategoryResponse(c))
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	c, err := h.service.CreateCategory(r.Context(), service.CreateCategoryInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		ParentID:       req.ParentID,
		SortOrder:      req.SortOrder,
		IsActive:       req.IsActive,
		VariationTypes: toCategoryVariationTypeInputs(req.VariationTypes),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ToCategoryResponse(c))
}

// UpdateCategory handles PUT /api/v1/categories/{idOrSlug}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "idOrSlug"))
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	in := service.UpdateCategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}
	if req.VariationTypes != nil {
		assocs := toCategoryVariationTypeInputs(*req.VariationTypes)
		in.VariationTypes = &assocs
	}

	c, err := h.service.UpdateCategory(r.Context(), id, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToCategoryResponse(c))
}

// DeleteCategory handles DELETE /api/v1/categories/{idOrSlug}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "idOrSlug"))
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id.String(), "status": "deleted"})
}
