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

// VariationTypeService is the variation type use-case surface the handler
// needs.
type VariationTypeService interface {
	CreateVariationType(ctx context.Context, in service.VariationTypeInput) (*domain.VariationType, error)
	UpdateVariationType(ctx context.Context, id uuid.UUID, in service.UpdateVariationTypeInput) (*domain.VariationType, error)
	DeleteVariationType(ctx context.Context, id uuid.UUID) (service.RemovalOutcome, error)
	GetVariationType(ctx context.Context, id uuid.UUID) (*domain.VariationType, error)
	ListVariationTypes(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error)
}

// VariationTypeHandler handles HTTP requests for variation type endpoints.
type VariationTypeHandler struct {
	service VariationTypeService
	logger  *slog.Logger
}

// NewVariationTypeHandler creates a new variation type HTTP handler.
func NewVariationTypeHandler(svc VariationTypeService, logger *slog.Logger) *VariationTypeHandler {
	return &VariationTypeHandler{service: svc, logger: logger}
}

// VariantOptionRequest is one requested option.
type VariantOptionRequest struct {
	Value        string `json:"value" validate:"required,notblank,max=100"`
	DisplayValue string `json:"display_value" validate:"max=100"`
	SortOrder    int    `json:"sort_order" validate:"gte=0"`
}

// CreateVariationTypeRequest is the JSON request body for creating a
// variation type.
type CreateVariationTypeRequest struct {
	Name        string                 `json:"name" validate:"required,notblank,max=100"`
	DisplayName string                 `json:"display_name" validate:"max=100"`
	Options     []VariantOptionRequest `json:"options" validate:"omitempty,dive"`
}

// UpdateVariationTypeRequest is the JSON request body for updating a
// variation type. options, when present, replaces the whole list.
type UpdateVariationTypeRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,notblank,max=100"`
	DisplayName *string                 `json:"display_name" validate:"omitempty,max=100"`
	IsActive    *bool                   `json:"is_active"`
	Options     *[]VariantOptionRequest `json:"options" validate:"omitempty,dive"`
}

func toOptionSpecs(in []VariantOptionRequest) []domain.OptionSpec {
	out := make([]domain.OptionSpec, 0, len(in))
	for _, o := range in {
		out = append(out, domain.OptionSpec{Value: o.Value, DisplayValue: o.DisplayValue, SortOrder: o.SortOrder})
	}
	return out
}

// ListVariationTypes handles GET /api/v1/variation-types
func (h *VariationTypeHandler) ListVariationTypes(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	active := q.Bool("active")
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	types, err := h.service.ListVariationTypes(r.Context(), active != nil && *active)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	out := make([]VariationTypeResponse, 0, len(types))
	for _, vt := range types {
		out = append(out, ToVariationTypeResponse(vt))
	}
	httputil.WriteData(w, http.StatusOK, out)
}

// GetVariationType handles GET /api/v1/variation-types/{id}
func (h *VariationTypeHandler) GetVariationType(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	vt, err := h.service.GetVariationType(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToVariationTypeResponse(vt))
}

// CreateVariationType handles POST /api/v1/variation-types
func (h *VariationTypeHandler) CreateVariationType(w http.ResponseWriter, r *http.Request) {
	var req CreateVariationTypeRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	vt, err := h.service.CreateVariationType(r.Context(), service.VariationTypeInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Options:     toOptionSpecs(req.Options),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ToVariationTypeResponse(vt))
}

// UpdateVariationType handles PUT /api/v1/variation-types/{id}
func (h *VariationTypeHandler) UpdateVariationType(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req UpdateVariationTypeRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	in := service.UpdateVariationTypeInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
	}
	if req.Options != nil {
		specs := toOptionSpecs(*req.Options)
		in.Options = &specs
	}

	vt, err := h.service.UpdateVariationType(r.Context(), id, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToVariationTypeResponse(vt))
}

// DeleteVariationType handles DELETE /api/v1/variation-types/{id}. The
// status field reports whether the type was deleted or only deactivated.
func (h *VariationTypeHandler) DeleteVariationType(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	outcome, err := h.service.DeleteVariationType(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id.String(), "status": string(outcome)})
}
