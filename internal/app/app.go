// Package app wires the catalog service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/catalog/internal/client"
	"github.com/utafrali/catalog/internal/config"
	"github.com/utafrali/catalog/internal/event"
	handler "github.com/utafrali/catalog/internal/handler/http"
	"github.com/utafrali/catalog/internal/repository/postgres"
	"github.com/utafrali/catalog/internal/service"
	"github.com/utafrali/catalog/migrations"
	"github.com/utafrali/catalog/pkg/database"
	"github.com/utafrali/catalog/pkg/health"
	"github.com/utafrali/catalog/pkg/httpclient"
	pkgkafka "github.com/utafrali/catalog/pkg/kafka"
	"github.com/utafrali/catalog/pkg/tracing"
)

// ServiceName identifies the catalog in logs, metrics and traces.
const ServiceName = "catalog"

const (
	initTimeout    = 30 * time.Second
	tracerShutdown = 3 * time.Second
)

// Services holds the catalog use cases.
type Services struct {
	Categories     *service.CategoryService
	VariationTypes *service.VariationTypeService
	Products       *service.ProductService
	Reviews        *service.ReviewService
}

// infra holds the connections shared by every entry point.
type infra struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	producer *pkgkafka.Producer
}

func openInfra(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*infra, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	in := &infra{cfg: cfg, logger: logger, pool: pool}
	if len(cfg.KafkaBrokers) > 0 {
		in.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, in.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
	} else {
		logger.Warn("no kafka brokers configured, domain events are discarded")
	}
	return in, nil
}

func (in *infra) publisher() event.Publisher {
	if in.producer == nil {
		return event.Discard
	}
	return in.producer
}

// services builds the use-case layer on top of the pool and downstream
// clients.
func (in *infra) services() Services {
	repos := postgres.NewRepositories(in.pool)
	uow := postgres.NewUnitOfWork(in.pool)
	events := event.NewProducer(in.publisher(), in.logger)

	base := httpclient.New(in.cfg.HTTPClient())
	users := client.NewUserClient(in.cfg.UserServiceURL,
		httpclient.NewCircuitBreakerClient(base, in.cfg.CircuitBreaker("user-service"), in.logger))
	orders := client.NewOrderClient(in.cfg.OrderServiceURL,
		httpclient.NewCircuitBreakerClient(base, in.cfg.CircuitBreaker("order-service"), in.logger))

	return Services{
		Categories:     service.NewCategoryService(uow, repos, in.logger),
		VariationTypes: service.NewVariationTypeService(uow, repos, in.logger),
		Products:       service.NewProductService(uow, repos, orders, events, in.logger),
		Reviews: service.NewReviewService(service.ReviewServiceDeps{
			UnitOfWork:     uow,
			Repositories:   repos,
			Orders:         orders,
			Users:          users,
			Events:         events,
			Logger:         in.logger,
			DefaultPerPage: in.cfg.ReviewDefaultPageSize,
		}),
	}
}

// Close releases the producer and the pool.
func (in *infra) Close() error {
	var err error
	if in.producer != nil {
		if cerr := in.producer.Close(); cerr != nil {
			in.logger.Error("kafka producer close error", slog.String("error", cerr.Error()))
			err = cerr
		}
	}
	in.pool.Close()
	return err
}

// App runs the catalog HTTP service.
type App struct {
	*infra
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	in, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, in.pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.MigrateOnStart {
		if err := database.RunMigrations(ctx, in.pool, migrations.FS, logger); err != nil {
			_ = in.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return in.pool.Ping(ctx)
	})
	if in.producer != nil {
		healthHandler.RegisterNonCritical("kafka", in.producer.Ping)
	}

	svcs := in.services()
	router := handler.NewRouter(handler.Deps{
		Categories:     svcs.Categories,
		VariationTypes: svcs.VariationTypes,
		Products:       svcs.Products,
		Reviews:        svcs.Reviews,
		Health:         healthHandler,
		CORS:           cfg.CORS(),
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Logger:         logger,
	})

	return &App{
		infra: in,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           router,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracerShutdown: shutdownTracer,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown drains HTTP requests, flushes spans, then closes the producer and
// the pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), tracerShutdown)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.infra.Close(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry pings the producer up to three times with 1s/2s
// backoff and ±25% jitter.
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	const attempts = 3
	var lastErr error
	for attempt := range attempts {
		if lastErr = producer.Ping(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		base := time.Duration(1<<attempt) * time.Second
		wait := base + time.Duration(float64(base)*0.25*(2*rand.Float64()-1)) // #nosec G404 -- retry jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after %d attempts: %w", attempts, lastErr)
}
