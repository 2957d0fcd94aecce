package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nospicy/possync/api/controllers"
	"github.com/nospicy/possync/api/middleware"
	"github.com/nospicy/possync/pkg/config"
	"github.com/nospicy/possync/pkg/logger"
)

// RouterParams carries the dependencies of the trigger API.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Runner   controllers.SyncRunner
	Gatherer prometheus.Gatherer
	// Ready lists dependencies checked by /health/ready; nil values are skipped.
	Ready map[string]controllers.Pinger
}

func NewRouter(params RouterParams) http.Handler {
	cfg, logg := params.Config, params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Ready))
	})

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.Trigger.RateLimitPerMinute, time.Minute, logg))
		r.Use(middleware.TriggerAuth(cfg.Trigger, logg))

		sync := controllers.SyncTrigger(params.Runner, logg)
		r.Get("/sync", sync)
		r.Post("/sync", sync)
	})

	return r
}
