// Package service implements the catalog's use cases on top of the domain
// aggregates and the repository layer.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/client"
	"github.com/utafrali/catalog/internal/domain"
)

// EventPublisher emits catalog domain events. *event.Producer satisfies it.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, product *domain.Product) error
	PublishRatingRecalculated(ctx context.Context, productID string, summary domain.RatingSummary) error
	PublishReviewSubmitted(ctx context.Context, review *domain.ProductReview) error
	PublishReviewDeleted(ctx context.Context, review *domain.ProductReview) error
}

// UserDirectory resolves user profiles. *client.UserClient satisfies it.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*client.User, error)
}

// OrderHistory answers purchase questions. *client.OrderClient satisfies it.
type OrderHistory interface {
	HasReceivedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	IsVariantReferenced(ctx context.Context, variantID uuid.UUID) (bool, error)
}

func utcNow() time.Time { return time.Now().UTC() }

func logPublishError(ctx context.Context, logger *slog.Logger, event string, err error, attrs ...any) {
	if err == nil {
		return
	}
	attrs = append(attrs, slog.String("event", event), slog.String("error", err.Error()))
	logger.ErrorContext(ctx, "failed to publish event", attrs...)
}

// parseIDOrSlug splits a path key into an id or a slug.
func parseIDOrSlug(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(key)
	return id, err == nil
}
