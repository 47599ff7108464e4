package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/utafrali/catalog/internal/app"
	"github.com/utafrali/catalog/internal/config"
	"github.com/utafrali/catalog/pkg/logger"
)

func main() {
	cmd := &cli.Command{
		Name:   "catalog",
		Usage:  "Product catalog service",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply pending database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "only list pending migrations"},
				},
				Action: migrate,
			},
			{
				Name:  "recompute-ratings",
				Usage: "Rebuild stored product ratings from reviews",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product-id", Usage: "recompute a single product"},
				},
				Action: recomputeRatings,
			},
			{
				Name:  "seed",
				Usage: "Create demo variation types, categories and products",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "products", Value: 200, Usage: "number of products to create"},
					&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed; equal seeds yield equal catalogs"},
				},
				Action: seedCatalog,
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("catalog exited with error", slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(app.ServiceName, cfg.LogLevel), nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	log.Info("starting catalog service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("catalog service stopped")
	return nil
}

func migrate(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	return app.Migrate(ctx, cfg, log, c.Bool("dry-run"))
}

func recomputeRatings(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	var productID *uuid.UUID
	if raw := c.String("product-id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid --product-id %q: %w", raw, err)
		}
		productID = &id
	}
	return app.RecomputeRatings(ctx, cfg, log, productID)
}

func seedCatalog(ctx context.Context, c *cli.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	products := c.Int("products")
	if products < 0 {
		return fmt.Errorf("--products must not be negative, got %d", products)
	}
	return app.Seed(ctx, cfg, log, int(products), c.Uint64("seed"))
}
