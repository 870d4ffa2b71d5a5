package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/CosmeticsGo/pkg/health"
	"github.com/utafrali/CosmeticsGo/pkg/middleware"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/service"
)

const (
	serviceName = "storefront"
	bandsMaxAge = 3600
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	storefrontService *service.StorefrontService,
	checkoutService *service.CheckoutService,
	healthHandler *health.Handler,
	cors middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	storefrontHandler := NewStorefrontHandler(storefrontService, logger)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)

	r.Route("/api/v1/storefront", func(r chi.Router) {
		// Page results follow the live catalog; the bands never change.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(0))
			r.Get("/search", storefrontHandler.Search)
			r.Get("/categories/{category}", storefrontHandler.Category)
			r.Get("/categories/{category}/{subcategory}", storefrontHandler.Subcategory)
			r.Get("/promotions", storefrontHandler.Promotions)
		})
		r.With(middleware.CacheControl(bandsMaxAge)).Get("/facets/bands", storefrontHandler.Bands)

		r.Route("/sessions", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.CacheControl(0))
			r.Post("/", storefrontHandler.OpenSession)
			r.Get("/{id}", storefrontHandler.GetSession)
			r.Delete("/{id}", storefrontHandler.CloseSession)
			r.Post("/{id}/toggle", storefrontHandler.Toggle)
			r.Put("/{id}/price-band", storefrontHandler.SetPriceBand)
			r.Put("/{id}/discount-band", storefrontHandler.SetDiscountBand)
			r.Put("/{id}/sort", storefrontHandler.SetSort)
			r.Post("/{id}/reset", storefrontHandler.Reset)
			r.Post("/{id}/reload", storefrontHandler.Reload)
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.RequireUser)
			r.Post("/cart/items", checkoutHandler.AddItem)
			r.Post("/checkout", checkoutHandler.Checkout)
		})
	})

	return r
}
