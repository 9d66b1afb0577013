package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bluebeachhouse/storefront-backend/api/controllers"
	webhookcontrollers "github.com/bluebeachhouse/storefront-backend/api/controllers/webhooks"
	"github.com/bluebeachhouse/storefront-backend/api/middleware"
	"github.com/bluebeachhouse/storefront-backend/internal/cart"
	"github.com/bluebeachhouse/storefront-backend/internal/catalog"
	checkoutsvc "github.com/bluebeachhouse/storefront-backend/internal/checkout"
	contactsvc "github.com/bluebeachhouse/storefront-backend/internal/contact"
	stripewebhook "github.com/bluebeachhouse/storefront-backend/internal/webhooks/stripe"
	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/db"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/metrics"
	"github.com/bluebeachhouse/storefront-backend/pkg/ratelimit"
	"github.com/bluebeachhouse/storefront-backend/pkg/redis"
	"github.com/bluebeachhouse/storefront-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metr *metrics.HTTPMetrics,
	registry *prometheus.Registry,
	limiter *ratelimit.Limiter,
	catalogService *catalog.Service,
	cartService *cart.Service,
	checkoutService *checkoutsvc.Service,
	contactService *contactsvc.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(metr),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Webhooks authenticate by signature and must stay reachable when a
	// client IP is over quota, so they sit outside the admission gate.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, metr, logg))
	})

	// The admission gate covers writes only: cart mutations, checkout and
	// contact. Catalog browsing and cart reads stay ungated.
	gate := middleware.RateLimit(limiter, metr, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(catalogService, logg))
			r.Get("/{productId}", controllers.GetProduct(catalogService, logg))
		})

		r.With(gate).Post("/contact", controllers.Contact(contactService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartToken(cfg.Cart, cfg.App.IsProd()))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartService, logg))
				r.Post("/open", controllers.SetCartVisibility(cartService, logg, cart.Snapshot.Open))
				r.Post("/close", controllers.SetCartVisibility(cartService, logg, cart.Snapshot.Close))
				r.Post("/toggle", controllers.SetCartVisibility(cartService, logg, cart.Snapshot.Toggle))

				r.Group(func(r chi.Router) {
					r.Use(gate)
					r.Delete("/", controllers.ClearCart(cartService, logg))
					r.Post("/items", controllers.AddCartItem(cartService, catalogService, logg))
					r.Patch("/items/{productId}", controllers.UpdateCartItem(cartService, logg))
					r.Delete("/items/{productId}", controllers.RemoveCartItem(cartService, logg))
				})
			})

			r.With(gate).Post("/checkout", controllers.Checkout(checkoutService, metr, logg))
		})
	})

	return r
}
