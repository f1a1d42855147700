package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/launchforge/launchforge-backend/api/controllers"
	billingcontrollers "github.com/launchforge/launchforge-backend/api/controllers/billing"
	webhookcontrollers "github.com/launchforge/launchforge-backend/api/controllers/webhooks"
	"github.com/launchforge/launchforge-backend/api/middleware"
	billingsvc "github.com/launchforge/launchforge-backend/internal/billing"
	stripewebhook "github.com/launchforge/launchforge-backend/internal/webhooks/stripe"
	"github.com/launchforge/launchforge-backend/pkg/config"
	"github.com/launchforge/launchforge-backend/pkg/logger"
	"github.com/launchforge/launchforge-backend/pkg/metrics"
	"github.com/launchforge/launchforge-backend/pkg/stripe"
)

type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	Stripe       *stripe.Client
	Billing      billingsvc.Service
	Webhooks     *stripewebhook.Service
	WebhookGuard *stripewebhook.IdempotencyGuard
	HTTPMetrics  *metrics.HTTPMetrics
	Registry     *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(params.HTTPMetrics),
		middleware.CORS(cfg.CORS, cfg.App.FrontendURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.Webhooks, params.Stripe, params.WebhookGuard, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Session, logg))

		r.Get("/products", billingcontrollers.Products(params.Billing, logg))
		r.Get("/subscription", billingcontrollers.Subscription(params.Billing, logg))
		r.Put("/subscriptions/{subscriptionId}", billingcontrollers.UpdateSubscription(params.Billing, logg))
		r.Post("/checkout", billingcontrollers.Checkout(params.Billing, logg))
		r.Post("/portal", billingcontrollers.Portal(params.Billing, logg))
		r.Get("/billing-info", billingcontrollers.BillingInfo(params.Billing, logg))
		r.Put("/billing-email", billingcontrollers.UpdateBillingEmail(params.Billing, logg))
		r.Post("/usage", billingcontrollers.AddUsage(params.Billing, logg))
		r.Get("/usage", billingcontrollers.ListUsage(params.Billing, logg))
		r.Get("/gate", billingcontrollers.Gate(params.Billing, logg))
	})

	return r
}
