package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	"github.com/utafrali/catalog/pkg/database"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

const reviewColumns = `id, product_id, user_id, rating, title, comment, helpful_count, unhelpful_count, ` +
	`created_at, updated_at, deleted_at`

var reviewSortClauses = map[string]string{
	domain.ReviewSortNewest:      "created_at DESC, id",
	domain.ReviewSortOldest:      "created_at ASC, id",
	domain.ReviewSortHighest:     "rating DESC, created_at DESC, id",
	domain.ReviewSortLowest:      "rating ASC, created_at DESC, id",
	domain.ReviewSortMostHelpful: "helpful_count DESC, created_at DESC, id",
}

// ReviewRepository implements repository.ReviewRepository.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.ProductReview) (err error) {
	query := `
		INSERT INTO product_reviews (id, product_id, user_id, rating, title, comment, helpful_count,
		                             unhelpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, done := trace(ctx, "review.create", query)
	defer done(&err)

	_, err = r.db.Exec(ctx, query,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment,
		rv.HelpfulCount, rv.UnhelpfulCount, rv.CreatedAt, rv.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "uq_product_reviews_user"):
			return apperrors.ConflictCode(domain.ErrCodeReviewAlreadyExists, "you have already reviewed this product")
		case database.IsForeignKeyViolation(err):
			return apperrors.NotFound("product", rv.ProductID.String())
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Update rewrites content, counters and deletion state of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.ProductReview) (err error) {
	query := `
		UPDATE product_reviews
		SET rating = $1, title = $2, comment = $3, helpful_count = $4, unhelpful_count = $5,
		    updated_at = $6, deleted_at = $7
		WHERE id = $8`

	ctx, done := trace(ctx, "review.update", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query,
		rv.Rating, rv.Title, rv.Comment, rv.HelpfulCount, rv.UnhelpfulCount, rv.UpdatedAt, rv.DeletedAt, rv.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID.String())
	}
	return nil
}

// GetByID retrieves a non-deleted review.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (rv *domain.ProductReview, err error) {
	query := `SELECT ` + reviewColumns + ` FROM product_reviews WHERE id = $1 AND deleted_at IS NULL`

	ctx, done := trace(ctx, "review.get_by_id", query)
	defer done(&err)

	rv, err = scanReview(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "review", id.String())
	}
	return rv, nil
}

// GetByIDForUpdate retrieves a non-deleted review and locks its row until
// the surrounding transaction ends.
func (r *ReviewRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (rv *domain.ProductReview, err error) {
	query := `SELECT ` + reviewColumns + ` FROM product_reviews WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	ctx, done := trace(ctx, "review.get_for_update", query)
	defer done(&err)

	rv, err = scanReview(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "review", id.String())
	}
	return rv, nil
}

// ExistsForUser reports whether the user has a non-deleted review of the
// product.
func (r *ReviewRepository) ExistsForUser(ctx context.Context, productID, userID uuid.UUID) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM product_reviews WHERE product_id = $1 AND user_id = $2 AND deleted_at IS NULL)`

	ctx, done := trace(ctx, "review.exists_for_user", query)
	defer done(&err)

	if err = r.db.QueryRow(ctx, query, productID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return exists, nil
}

// List returns one page of a product's non-deleted reviews and the total
// count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) (reviews []*domain.ProductReview, total int, err error) {
	orderBy, ok := reviewSortClauses[filter.SortBy]
	if !ok {
		orderBy = reviewSortClauses[domain.ReviewSortNewest]
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
		FROM product_reviews
		WHERE product_id = $1 AND deleted_at IS NULL
		ORDER BY %s
		LIMIT $2 OFFSET $3`, reviewColumns, orderBy)

	ctx, done := trace(ctx, "review.list", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, filter.ProductID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews = []*domain.ProductReview{}
	for rows.Next() {
		rv, err := scanReview(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, total, nil
}

// RatingHistogram counts the product's non-deleted reviews per rating.
func (r *ReviewRepository) RatingHistogram(ctx context.Context, productID uuid.UUID) (hist map[int]int, err error) {
	query := `
		SELECT rating, COUNT(*)
		FROM product_reviews
		WHERE product_id = $1 AND deleted_at IS NULL
		GROUP BY rating`

	ctx, done := trace(ctx, "review.rating_histogram", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query rating histogram: %w", err)
	}
	defer rows.Close()

	hist = make(map[int]int, domain.MaxRating)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating histogram: %w", err)
		}
		hist[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating histogram: %w", err)
	}
	return hist, nil
}

// GetVote returns the user's vote on the review, or nil when there is none.
func (r *ReviewRepository) GetVote(ctx context.Context, reviewID, userID uuid.UUID) (v *domain.ReviewVote, err error) {
	query := `
		SELECT id, review_id, user_id, vote_type, created_at, updated_at
		FROM review_votes
		WHERE review_id = $1 AND user_id = $2`

	ctx, done := trace(ctx, "review.get_vote", query)
	defer done(&err)

	var (
		vote     domain.ReviewVote
		voteType string
	)
	err = r.db.QueryRow(ctx, query, reviewID, userID).Scan(
		&vote.ID, &vote.ReviewID, &vote.UserID, &voteType, &vote.CreatedAt, &vote.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review vote: %w", err)
	}
	vote.Type = domain.VoteType(voteType)
	return &vote, nil
}

// InsertVote inserts a vote row.
func (r *ReviewRepository) InsertVote(ctx context.Context, v *domain.ReviewVote) (err error) {
	query := `
		INSERT INTO review_votes (id, review_id, user_id, vote_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, done := trace(ctx, "review.insert_vote", query)
	defer done(&err)

	_, err = r.db.Exec(ctx, query, v.ID, v.ReviewID, v.UserID, string(v.Type), v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_review_votes_user") {
			return apperrors.Conflict("you have already voted on this review")
		}
		return fmt.Errorf("insert review vote: %w", err)
	}
	return nil
}

// UpdateVote changes the type of an existing vote row.
func (r *ReviewRepository) UpdateVote(ctx context.Context, v *domain.ReviewVote) (err error) {
	query := `UPDATE review_votes SET vote_type = $1, updated_at = $2 WHERE id = $3`

	ctx, done := trace(ctx, "review.update_vote", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, string(v.Type), v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("update review vote: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review vote", v.ID.String())
	}
	return nil
}

// DeleteVote removes a vote row.
func (r *ReviewRepository) DeleteVote(ctx context.Context, id uuid.UUID) (err error) {
	query := `DELETE FROM review_votes WHERE id = $1`

	ctx, done := trace(ctx, "review.delete_vote", query)
	defer done(&err)

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review vote: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review vote", id.String())
	}
	return nil
}

// VotesByUser returns the user's votes among the given reviews, keyed by
// review id.
func (r *ReviewRepository) VotesByUser(ctx context.Context, userID uuid.UUID, reviewIDs []uuid.UUID) (votes map[uuid.UUID]domain.VoteType, err error) {
	votes = make(map[uuid.UUID]domain.VoteType)
	if len(reviewIDs) == 0 {
		return votes, nil
	}
	query := `SELECT review_id, vote_type FROM review_votes WHERE user_id = $1 AND review_id = ANY($2)`

	ctx, done := trace(ctx, "review.votes_by_user", query)
	defer done(&err)

	rows, err := r.db.Query(ctx, query, userID, reviewIDs)
	if err != nil {
		return nil, fmt.Errorf("query user votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reviewID uuid.UUID
			voteType string
		)
		if err := rows.Scan(&reviewID, &voteType); err != nil {
			return nil, fmt.Errorf("scan user vote: %w", err)
		}
		votes[reviewID] = domain.VoteType(voteType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user votes: %w", err)
	}
	return votes, nil
}

// scanReview reads reviewColumns, followed by any extra destinations.
func scanReview(row pgx.Row, extra ...any) (*domain.ProductReview, error) {
	var rv domain.ProductReview
	dest := []any{
		&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.HelpfulCount, &rv.UnhelpfulCount, &rv.CreatedAt, &rv.UpdatedAt, &rv.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &rv, nil
}
