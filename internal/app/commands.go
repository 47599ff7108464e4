package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/config"
	"github.com/utafrali/catalog/internal/seed"
	"github.com/utafrali/catalog/migrations"
	"github.com/utafrali/catalog/pkg/database"
)

// Migrate applies pending schema migrations. With dryRun it only lists them.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) error {
	in, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	pending, err := database.PendingMigrations(ctx, in.pool, migrations.FS)
	if err != nil {
		return fmt.Errorf("list pending migrations: %w", err)
	}
	logger.Info("pending migrations", slog.Int("count", len(pending)), slog.Any("files", pending))
	if dryRun || len(pending) == 0 {
		return nil
	}

	if err := database.RunMigrations(ctx, in.pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

// RecomputeRatings rebuilds the stored rating of one product, or of every
// product when productID is nil.
func RecomputeRatings(ctx context.Context, cfg *config.Config, logger *slog.Logger, productID *uuid.UUID) error {
	in, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	reviews := in.services().Reviews

	if productID != nil {
		summary, err := reviews.RecalculateRating(ctx, *productID)
		if err != nil {
			return fmt.Errorf("recompute rating for %s: %w", productID, err)
		}
		logger.Info("rating recomputed",
			slog.String("product_id", productID.String()),
			slog.String("average_rating", summary.Average.StringFixed(2)),
			slog.Int("review_count", summary.Count),
		)
		return nil
	}

	succeeded, err := reviews.RecalculateAllRatings(ctx)
	logger.Info("ratings recomputed", slog.Int("succeeded", succeeded))
	if err != nil {
		return fmt.Errorf("recompute ratings: %w", err)
	}
	return nil
}

// Seed fills the catalog with deterministic demo data.
func Seed(ctx context.Context, cfg *config.Config, logger *slog.Logger, products int, randSeed uint64) error {
	in, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	svcs := in.services()
	res, err := seed.New(svcs.VariationTypes, svcs.Categories, svcs.Products, logger, randSeed).Run(ctx, products)
	logger.Info("seed finished",
		slog.Int("variation_types", res.VariationTypes),
		slog.Int("categories", res.Categories),
		slog.Int("products", res.Products),
		slog.Int("skipped", res.Skipped),
	)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}
