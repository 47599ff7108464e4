package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalog/pkg/health"
	"github.com/utafrali/catalog/pkg/middleware"
)

// ServiceName labels HTTP metrics and traces.
const ServiceName = "catalog"

// Deps holds everything the router needs.
type Deps struct {
	Categories     CategoryService
	VariationTypes VariationTypeService
	Products       ProductService
	Reviews        ReviewService
	Health         *health.Handler
	CORS           middleware.CORSConfig
	// PprofCIDRs enables /debug/pprof for the listed networks when non-empty.
	PprofCIDRs []string
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestLogging(d.Logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.CORS(d.CORS))

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(d.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, d.PprofCIDRs, d.Logger)
	}

	admin := middleware.RequireRole(middleware.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.GatewayIdentity)
		r.Use(middleware.RequestLogger(d.Logger))
		r.Use(middleware.NoStore)
		r.Use(middleware.ContentTypeJSON)

		categories := NewCategoryHandler(d.Categories, d.Logger)
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.ListCategories)
			r.Get("/tree", categories.GetCategoryTree)
			r.Get("/{idOrSlug}", categories.GetCategory)
			r.With(admin).Post("/", categories.CreateCategory)
			r.With(admin).Put("/{idOrSlug}", categories.UpdateCategory)
			r.With(admin).Delete("/{idOrSlug}", categories.DeleteCategory)
		})

		variationTypes := NewVariationTypeHandler(d.VariationTypes, d.Logger)
		r.Route("/variation-types", func(r chi.Router) {
			r.Get("/", variationTypes.ListVariationTypes)
			r.Get("/{id}", variationTypes.GetVariationType)
			r.With(admin).Post("/", variationTypes.CreateVariationType)
			r.With(admin).Put("/{id}", variationTypes.UpdateVariationType)
			r.With(admin).Delete("/{id}", variationTypes.DeleteVariationType)
		})

		products := NewProductHandler(d.Products, d.Logger)
		reviews := NewReviewHandler(d.Reviews, d.Logger)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.With(admin).Post("/", products.CreateProduct)

			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", products.GetProduct)
				r.With(admin).Put("/", products.UpdateProduct)
				r.With(admin).Delete("/", products.DeleteProduct)

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", reviews.ListReviews)
					r.With(middleware.RequireUser).Post("/", reviews.SubmitReview)

					r.Route("/{reviewID}", func(r chi.Router) {
						r.Get("/", reviews.GetReview)
						r.Group(func(r chi.Router) {
							r.Use(middleware.RequireUser)
							r.Put("/", reviews.UpdateReview)
							r.Delete("/", reviews.DeleteReview)
							r.Post("/votes", reviews.VoteReview)
						})
					})
				})
			})
		})
	})

	return r
}
