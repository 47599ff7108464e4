package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/pagination"
)

// reviewerLookupConcurrency bounds parallel user directory calls per list.
const reviewerLookupConcurrency = 8

// ReviewService implements reviews, helpfulness voting and the product
// rating statistics derived from them.
type ReviewService struct {
	uow            repository.UnitOfWork
	repos          repository.Repositories
	orders         OrderHistory
	users          UserDirectory
	events         EventPublisher
	logger         *slog.Logger
	defaultPerPage int
	now            func() time.Time
}

// ReviewServiceDeps groups the collaborators of ReviewService.
type ReviewServiceDeps struct {
	UnitOfWork     repository.UnitOfWork
	Repositories   repository.Repositories
	Orders         OrderHistory
	Users          UserDirectory
	Events         EventPublisher
	Logger         *slog.Logger
	DefaultPerPage int
}

// NewReviewService creates a new review service.
func NewReviewService(deps ReviewServiceDeps) *ReviewService {
	perPage := deps.DefaultPerPage
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	return &ReviewService{
		uow:            deps.UnitOfWork,
		repos:          deps.Repositories,
		orders:         deps.Orders,
		users:          deps.Users,
		events:         deps.Events,
		logger:         deps.Logger,
		defaultPerPage: perPage,
		now:            utcNow,
	}
}

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Title     *string
	Comment   *string
}

// UpdateReviewInput holds the parameters for editing a review.
type UpdateReviewInput struct {
	ProductID uuid.UUID
	ReviewID  uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Title     *string
	Comment   *string
}

// ListReviewsInput holds review list sorting and paging. Viewer, when set,
// asks for the viewer's own vote on each review.
type ListReviewsInput struct {
	ProductID uuid.UUID
	SortBy    string
	Page      int
	PerPage   int
	Viewer    *uuid.UUID
}

// ReviewView is a review as shown to readers.
type ReviewView struct {
	Review       *domain.ProductReview
	ReviewerName string
	MyVote       *domain.VoteType
}

// ReviewList is one page of reviews with the product's rating statistics.
type ReviewList struct {
	pagination.Result[ReviewView]
	AverageRating      decimal.Decimal
	RatingDistribution map[int]int
}

// VoteResult reports the review counters after a vote.
type VoteResult struct {
	ReviewID       uuid.UUID
	HelpfulCount   int
	UnhelpfulCount int
	Transition     domain.VoteTransition
	CurrentVote    *domain.VoteType
}

// SubmitReview records a review by a user who has received the product.
// Eligibility is checked before uniqueness, and both before the product
// lookup.
func (s *ReviewService) SubmitReview(ctx context.Context, in SubmitReviewInput) (*ReviewView, error) {
	review, err := domain.NewReview(in.ProductID, in.UserID, in.Rating, in.Title, in.Comment, s.now())
	if err != nil {
		return nil, err
	}

	eligible, err := s.orders.HasReceivedProduct(ctx, in.UserID, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check review eligibility: %w", err)
	}
	if !eligible {
		return nil, apperrors.BusinessRule(domain.ErrCodeReviewNotEligible,
			"you can only review products you have purchased and received")
	}

	exists, err := s.repos.Reviews.ExistsForUser(ctx, in.ProductID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, apperrors.ConflictCode(domain.ErrCodeReviewAlreadyExists,
			"you have already reviewed this product")
	}

	if _, err := s.repos.Products.GetByID(ctx, in.ProductID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Reviews.Create(ctx, review); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recalculateAfter(ctx, review.ProductID)
	logPublishError(ctx, s.logger, "review.submitted", s.events.PublishReviewSubmitted(ctx, review),
		slog.String("review_id", review.ID.String()))

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID.String()),
		slog.String("product_id", review.ProductID.String()),
		slog.Int("rating", review.Rating),
	)
	return s.view(ctx, review), nil
}

// UpdateReview edits a review. Only its author may do so, and only while the
// product is live.
func (s *ReviewService) UpdateReview(ctx context.Context, in UpdateReviewInput) (*ReviewView, error) {
	var updated *domain.ProductReview
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		review, err := repos.Reviews.GetByIDForUpdate(ctx, in.ReviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if review.ProductID != in.ProductID {
			return apperrors.NotFound("review", in.ReviewID.String())
		}
		if _, err := repos.Products.GetByID(ctx, review.ProductID); err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if err := review.Edit(in.UserID, in.Rating, in.Title, in.Comment, s.now()); err != nil {
			return err
		}
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recalculateAfter(ctx, updated.ProductID)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID.String()),
		slog.Int("rating", updated.Rating),
	)
	return s.view(ctx, updated), nil
}

// DeleteReview soft-deletes a review on behalf of its author or an admin.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID uuid.UUID, actor domain.Actor) error {
	var removed *domain.ProductReview
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		p, err := repos.Products.GetWithReviews(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		review, err := p.RemoveReview(reviewID, actor, s.now())
		if err != nil {
			return err
		}
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		removed = review
		return nil
	})
	if err != nil {
		return err
	}

	s.recalculateAfter(ctx, productID)
	logPublishError(ctx, s.logger, "review.deleted", s.events.PublishReviewDeleted(ctx, removed),
		slog.String("review_id", removed.ID.String()))

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID.String()),
		slog.String("product_id", productID.String()),
		slog.Bool("by_admin", actor.IsAdmin && actor.UserID != removed.UserID),
	)
	return nil
}

// GetReview retrieves one review of a product.
func (s *ReviewService) GetReview(ctx context.Context, productID, reviewID uuid.UUID) (*ReviewView, error) {
	review, err := s.repos.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.ProductID != productID {
		return nil, apperrors.NotFound("review", reviewID.String())
	}
	return s.view(ctx, review), nil
}

func (s *ReviewService) view(ctx context.Context, review *domain.ProductReview) *ReviewView {
	names := s.reviewerNames(ctx, []*domain.ProductReview{review})
	return &ReviewView{Review: review, ReviewerName: names[review.UserID]}
}

// ListReviews returns one page of a product's reviews, its rating
// statistics and, for an identified viewer, the viewer's votes.
func (s *ReviewService) ListReviews(ctx context.Context, in ListReviewsInput) (*ReviewList, error) {
	if !domain.IsValidReviewSort(in.SortBy) {
		return nil, apperrors.FieldInvalid("sort_by",
			"sort_by must be one of: newest, oldest, highest, lowest, most_helpful")
	}
	perPage := in.PerPage
	if perPage <= 0 {
		perPage = s.defaultPerPage
	}
	params := pagination.New(in.Page, perPage)

	if _, err := s.repos.Products.GetByID(ctx, in.ProductID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	var (
		reviews   []*domain.ProductReview
		total     int
		histogram map[int]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviews, total, err = s.repos.Reviews.List(gctx, repository.ReviewFilter{
			ProductID: in.ProductID,
			SortBy:    in.SortBy,
			Page:      params.Page,
			PerPage:   params.PerPage,
		})
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		histogram, err = s.repos.Reviews.RatingHistogram(gctx, in.ProductID)
		if err != nil {
			return fmt.Errorf("get rating histogram: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	votes := map[uuid.UUID]domain.VoteType{}
	if in.Viewer != nil && len(reviews) > 0 {
		ids := make([]uuid.UUID, 0, len(reviews))
		for _, r := range reviews {
			ids = append(ids, r.ID)
		}
		var err error
		votes, err = s.repos.Reviews.VotesByUser(ctx, *in.Viewer, ids)
		if err != nil {
			return nil, fmt.Errorf("get viewer votes: %w", err)
		}
	}

	names := s.reviewerNames(ctx, reviews)
	items := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := ReviewView{Review: r, ReviewerName: names[r.UserID]}
		if vt, ok := votes[r.ID]; ok {
			view.MyVote = &vt
		}
		items = append(items, view)
	}

	summary := domain.NewRatingSummary(histogram)
	return &ReviewList{
		Result:             pagination.NewResult(items, total, params),
		AverageRating:      summary.Average,
		RatingDistribution: summary.Distribution,
	}, nil
}

// reviewerNames resolves censored display names for the authors of reviews.
// Lookup failures fall back to the anonymous name.
func (s *ReviewService) reviewerNames(ctx context.Context, reviews []*domain.ProductReview) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(reviews))
	var userIDs []uuid.UUID
	for _, r := range reviews {
		if _, seen := names[r.UserID]; !seen {
			names[r.UserID] = domain.AnonymousReviewer
			userIDs = append(userIDs, r.UserID)
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(reviewerLookupConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			u, err := s.users.GetUser(ctx, userID)
			if err != nil {
				s.logger.WarnContext(ctx, "reviewer name lookup failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			name := domain.CensorName(u.FirstName, u.LastName)
			mu.Lock()
			names[userID] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}

// VoteReview applies a helpfulness vote. Repeating the current vote removes
// it and voting the other way switches it. Reviews of deleted products take
// no votes. The review row stays locked
// while the vote row and counters change.
func (s *ReviewService) VoteReview(ctx context.Context, productID, reviewID, voterID uuid.UUID, vt domain.VoteType) (*VoteResult, error) {
	var result VoteResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		review, err := repos.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if review.ProductID != productID {
			return apperrors.NotFound("review", reviewID.String())
		}
		if _, err := repos.Products.GetByID(ctx, productID); err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		existing, err := repos.Reviews.GetVote(ctx, reviewID, voterID)
		if err != nil {
			return fmt.Errorf("get vote: %w", err)
		}
		outcome, err := review.ApplyVote(voterID, existing, vt, s.now())
		if err != nil {
			return err
		}

		switch outcome.Transition {
		case domain.VoteAdded:
			err = repos.Reviews.InsertVote(ctx, &outcome.Vote)
		case domain.VoteRemoved:
			err = repos.Reviews.DeleteVote(ctx, outcome.Vote.ID)
		case domain.VoteChanged:
			err = repos.Reviews.UpdateVote(ctx, &outcome.Vote)
		}
		if err != nil {
			return fmt.Errorf("write vote: %w", err)
		}
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return fmt.Errorf("update review counters: %w", err)
		}

		result = VoteResult{
			ReviewID:       review.ID,
			HelpfulCount:   review.HelpfulCount,
			UnhelpfulCount: review.UnhelpfulCount,
			Transition:     outcome.Transition,
		}
		if outcome.Transition != domain.VoteRemoved {
			current := outcome.Vote.Type
			result.CurrentVote = &current
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ReviewVotesTotal.WithLabelValues(string(result.Transition)).Inc()
	s.logger.InfoContext(ctx, "review vote recorded",
		slog.String("review_id", reviewID.String()),
		slog.String("transition", string(result.Transition)),
	)
	return &result, nil
}

// RecalculateRating recomputes and stores a product's review count and
// average rating from its non-deleted reviews. Running it twice gives the
// same result.
func (s *ReviewService) RecalculateRating(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	var summary domain.RatingSummary
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		histogram, err := repos.Reviews.RatingHistogram(ctx, productID)
		if err != nil {
			return fmt.Errorf("get rating histogram: %w", err)
		}
		summary = domain.NewRatingSummary(histogram)
		if err := repos.Products.UpdateRating(ctx, productID, summary); err != nil {
			return fmt.Errorf("update product rating: %w", err)
		}
		return nil
	})
	if err != nil {
		RatingRecalculationsTotal.WithLabelValues("error").Inc()
		return domain.RatingSummary{}, err
	}
	RatingRecalculationsTotal.WithLabelValues("success").Inc()

	logPublishError(ctx, s.logger, "product.rating_recalculated",
		s.events.PublishRatingRecalculated(ctx, productID.String(), summary),
		slog.String("product_id", productID.String()))
	return summary, nil
}

// recalculateAfter runs RecalculateRating after a committed review change.
// A failure leaves stale statistics and is only logged.
func (s *ReviewService) recalculateAfter(ctx context.Context, productID uuid.UUID) {
	if _, err := s.RecalculateRating(ctx, productID); err != nil {
		s.logger.ErrorContext(ctx, "failed to recalculate product rating",
			slog.String("product_id", productID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// RecalculateAllRatings repairs the statistics of every product. It keeps
// going past individual failures and returns how many products succeeded
// along with the joined errors.
func (s *ReviewService) RecalculateAllRatings(ctx context.Context) (int, error) {
	ids, err := s.repos.Products.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list product ids: %w", err)
	}

	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.RecalculateRating(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", id, err))
			continue
		}
		done++
	}

	s.logger.InfoContext(ctx, "product ratings recalculated",
		slog.Int("products", len(ids)),
		slog.Int("succeeded", done),
		slog.Int("failed", len(errs)),
	)
	return done, errors.Join(errs...)
}
