package domain

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// Review error codes.
const (
	ErrCodeReviewNotEligible   = "REVIEW_NOT_ELIGIBLE"
	ErrCodeReviewAlreadyExists = "REVIEW_ALREADY_EXISTS"
)

// MsgReviewContentRequired is reported when both title and comment are blank.
const MsgReviewContentRequired = "Either title or comment must be provided"

// AnonymousReviewer is shown when the reviewer's name is unavailable.
const AnonymousReviewer = "Anonymous User"

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review list sort orders.
const (
	ReviewSortNewest      = "newest"
	ReviewSortOldest      = "oldest"
	ReviewSortHighest     = "highest"
	ReviewSortLowest      = "lowest"
	ReviewSortMostHelpful = "most_helpful"
)

// IsValidReviewSort reports whether s is a known review sort. Empty means newest.
func IsValidReviewSort(s string) bool {
	return s == "" || slices.Contains([]string{
		ReviewSortNewest, ReviewSortOldest, ReviewSortHighest, ReviewSortLowest, ReviewSortMostHelpful,
	}, s)
}

// Actor is the user performing a command.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ProductReview is one user's rating of a product.
type ProductReview struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	UserID         uuid.UUID
	Rating         int
	Title          *string
	Comment        *string
	HelpfulCount   int
	UnhelpfulCount int
	Audit
}

// NewReview builds a review after checking rating range and content.
func NewReview(productID, userID uuid.UUID, rating int, title, comment *string, now time.Time) (*ProductReview, error) {
	r := &ProductReview{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    userID,
	}
	if err := r.setContent(rating, title, comment); err != nil {
		return nil, err
	}
	MarkCreated(&r.Audit, now)
	return r, nil
}

// Edit changes rating and text. Only the author may edit.
func (r *ProductReview) Edit(actor uuid.UUID, rating int, title, comment *string, now time.Time) error {
	if actor != r.UserID {
		return apperrors.Forbidden("only the review author can update this review")
	}
	if err := r.setContent(rating, title, comment); err != nil {
		return err
	}
	MarkUpdated(&r.Audit, now)
	return nil
}

func (r *ProductReview) setContent(rating int, title, comment *string) error {
	var fields []apperrors.FieldError
	if rating < MinRating || rating > MaxRating {
		fields = append(fields, apperrors.FieldError{Field: "rating", Message: "rating must be between 1 and 5"})
	}
	title, comment = trimmedOrNil(title), trimmedOrNil(comment)
	if title == nil && comment == nil {
		fields = append(fields, apperrors.FieldError{Field: "title", Message: MsgReviewContentRequired})
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	r.Rating, r.Title, r.Comment = rating, title, comment
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// CensorName renders a reviewer as "First L***". A blank first name yields
// AnonymousReviewer.
func CensorName(first, last string) string {
	first = strings.TrimSpace(first)
	if first == "" {
		return AnonymousReviewer
	}
	last = strings.TrimSpace(last)
	if last == "" {
		return first
	}
	initial, _ := utf8.DecodeRuneInString(last)
	return first + " " + string(unicode.ToUpper(initial)) + "***"
}
