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
	"github.com/utafrali/catalog/pkg/middleware"
)

// ReviewService is the review use-case surface the handler needs.
type ReviewService interface {
	SubmitReview(ctx context.Context, in service.SubmitReviewInput) (*service.ReviewView, error)
	UpdateReview(ctx context.Context, in service.UpdateReviewInput) (*service.ReviewView, error)
	DeleteReview(ctx context.Context, productID, reviewID uuid.UUID, actor domain.Actor) error
	GetReview(ctx context.Context, productID, reviewID uuid.UUID) (*service.ReviewView, error)
	ListReviews(ctx context.Context, in service.ListReviewsInput) (*service.ReviewList, error)
	VoteReview(ctx context.Context, productID, reviewID, voterID uuid.UUID, vt domain.VoteType) (*service.VoteResult, error)
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// ReviewRequest is the JSON request body for submitting or editing a
// review. Title or comment must be non-blank.
type ReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

// VoteRequest is the JSON request body for a helpfulness vote.
type VoteRequest struct {
	VoteType string `json:"vote_type" validate:"required,oneof=helpful unhelpful"`
}

func (h *ReviewHandler) ids(w http.ResponseWriter, r *http.Request) (productID, reviewID uuid.UUID, ok bool) {
	productID, ok = httputil.ParseUUID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	reviewID, ok = httputil.ParseUUID(w, r, chi.URLParam(r, "reviewID"))
	return
}

// ListReviews handles GET /api/v1/products/{productID}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	q := newQueryParams(r)
	in := service.ListReviewsInput{
		ProductID: productID,
		Page:      q.Int("page"),
		PerPage:   q.Int("per_page"),
	}
	if sortBy := q.String("sort_by"); sortBy != nil {
		in.SortBy = *sortBy
	}
	if err := q.Err(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if viewer, ok := middleware.UserIDFromContext(r.Context()); ok {
		in.Viewer = &viewer
	}

	list, err := h.service.ListReviews(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToReviewListResponse(list))
}

// GetReview handles GET /api/v1/products/{productID}/reviews/{reviewID}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	productID, reviewID, ok := h.ids(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetReview(r.Context(), productID, reviewID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToReviewResponse(view.Review, view.ReviewerName, view.MyVote))
}

// SubmitReview handles POST /api/v1/products/{productID}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}
	var req ReviewRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	view, err := h.service.SubmitReview(r.Context(), service.SubmitReviewInput{
		ProductID: productID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ToReviewResponse(view.Review, view.ReviewerName, nil))
}

// UpdateReview handles PUT /api/v1/products/{productID}/reviews/{reviewID}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	productID, reviewID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	view, err := h.service.UpdateReview(r.Context(), service.UpdateReviewInput{
		ProductID: productID,
		ReviewID:  reviewID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToReviewResponse(view.Review, view.ReviewerName, view.MyVote))
}

// DeleteReview handles DELETE /api/v1/products/{productID}/reviews/{reviewID}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	productID, reviewID, ok := h.ids(w, r)
	if !ok {
		return
	}
	id := middleware.IdentityFromContext(r.Context())
	actor := domain.Actor{UserID: id.UserID, IsAdmin: id.IsAdmin()}

	if err := h.service.DeleteReview(r.Context(), productID, reviewID, actor); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": reviewID.String(), "status": "deleted"})
}

// VoteReview handles POST /api/v1/products/{productID}/reviews/{reviewID}/votes
func (h *ReviewHandler) VoteReview(w http.ResponseWriter, r *http.Request) {
	productID, reviewID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if err := httputil.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	voterID, _ := middleware.UserIDFromContext(r.Context())

	res, err := h.service.VoteReview(r.Context(), productID, reviewID, voterID, domain.VoteType(req.VoteType))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ToVoteResponse(res))
}
