package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/topsevenstore/checkout-api/api/controllers"
	"github.com/topsevenstore/checkout-api/api/middleware"
	"github.com/topsevenstore/checkout-api/internal/agencies"
	"github.com/topsevenstore/checkout-api/internal/cart"
	checkoutsvc "github.com/topsevenstore/checkout-api/internal/checkout"
	"github.com/topsevenstore/checkout-api/internal/payment"
	"github.com/topsevenstore/checkout-api/pkg/config"
	"github.com/topsevenstore/checkout-api/pkg/content"
	"github.com/topsevenstore/checkout-api/pkg/logger"
	"github.com/topsevenstore/checkout-api/pkg/metrics"
	redispkg "github.com/topsevenstore/checkout-api/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient redispkg.Pinger,
	contentClient *content.Client,
	cartService cart.Service,
	agencyService agencies.Service,
	checkoutService checkoutsvc.Service,
	paymentService payment.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	httpMetrics := metrics.NewHTTPMetrics(registry)

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		httpMetrics.Middleware(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient, contentClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAdd(cartService, logg))
			r.Delete("/items/{productID}", controllers.CartRemove(cartService, logg))
		})

		r.Get("/agencies", controllers.AgencyList(agencyService, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutFetch(checkoutService, logg))
			r.Post("/details", controllers.CheckoutDetails(checkoutService, logg))
			r.Route("/payment", func(r chi.Router) {
				r.Post("/open", controllers.PaymentOpen(checkoutService, logg))
				r.Post("/cancel", controllers.PaymentCancel(checkoutService, logg))
				r.Post("/confirm", controllers.PaymentConfirm(checkoutService, logg))
			})
		})

		r.Get("/orders/confirmation", controllers.OrderConfirmation(paymentService, logg))
	})

	return r
}
