// Package event publishes catalog domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog/internal/domain"
	pkgkafka "github.com/utafrali/catalog/pkg/kafka"
	"github.com/utafrali/catalog/pkg/logger"
)

// Aggregate types.
const (
	AggregateTypeProduct = "product"
	AggregateTypeReview  = "review"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// Kafka topics for catalog domain events.
var (
	TopicProductCreated            = pkgkafka.Topic(AggregateTypeProduct, "created")
	TopicProductUpdated            = pkgkafka.Topic(AggregateTypeProduct, "updated")
	TopicProductDeleted            = pkgkafka.Topic(AggregateTypeProduct, "deleted")
	TopicProductRatingRecalculated = pkgkafka.Topic(AggregateTypeProduct, "rating_recalculated")
	TopicReviewSubmitted           = pkgkafka.Topic(AggregateTypeReview, "submitted")
	TopicReviewDeleted             = pkgkafka.Topic(AggregateTypeReview, "deleted")
)

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	CategoryID   *string `json:"category_id,omitempty"`
	BasePrice    int64   `json:"base_price"`
	LowestPrice  int64   `json:"lowest_price"`
	HasStock     bool    `json:"has_stock"`
	VariantCount int     `json:"variant_count"`
	IsActive     bool    `json:"is_active"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// RatingRecalculatedData is the payload of product.rating_recalculated.
type RatingRecalculatedData struct {
	ProductID     string `json:"product_id"`
	AverageRating string `json:"average_rating"`
	ReviewCount   int    `json:"review_count"`
}

// ReviewData is the payload of review.submitted and review.deleted.
type ReviewData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Discard is a Publisher that drops every event, used when no brokers are
// configured.
var Discard Publisher = discardPublisher{}

// Producer publishes catalog domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID.String(), AggregateTypeProduct, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID.String(), AggregateTypeProduct, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, product *domain.Product) error {
	id := product.ID.String()
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct, ProductDeletedData{ID: id})
}

// PublishRatingRecalculated publishes a product.rating_recalculated event.
func (p *Producer) PublishRatingRecalculated(ctx context.Context, productID string, summary domain.RatingSummary) error {
	data := RatingRecalculatedData{
		ProductID:     productID,
		AverageRating: summary.Average.StringFixed(2),
		ReviewCount:   summary.Count,
	}
	return p.publish(ctx, TopicProductRatingRecalculated, productID, AggregateTypeProduct, data)
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.ProductReview) error {
	return p.publish(ctx, TopicReviewSubmitted, review.ID.String(), AggregateTypeReview, reviewData(review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.ProductReview) error {
	return p.publish(ctx, TopicReviewDeleted, review.ID.String(), AggregateTypeReview, reviewData(review))
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func productData(product *domain.Product) ProductData {
	data := ProductData{
		ID:           product.ID.String(),
		Name:         product.Name,
		Slug:         product.Slug,
		BasePrice:    product.BasePrice,
		LowestPrice:  product.LowestPrice(),
		HasStock:     product.HasStock(),
		VariantCount: len(product.ActiveVariants()),
		IsActive:     product.IsActive,
	}
	if product.CategoryID != nil {
		id := product.CategoryID.String()
		data.CategoryID = &id
	}
	return data
}

func reviewData(review *domain.ProductReview) ReviewData {
	return ReviewData{
		ID:        review.ID.String(),
		ProductID: review.ProductID.String(),
		UserID:    review.UserID.String(),
		Rating:    review.Rating,
	}
}
