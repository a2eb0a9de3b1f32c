package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/podreach/publisher/internal/api/handler"
	apimw "github.com/podreach/publisher/internal/api/middleware"
	"github.com/podreach/publisher/internal/audit"
	"github.com/podreach/publisher/internal/dispatch"
	"github.com/podreach/publisher/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.QueueService,
	dispatcher *dispatch.Dispatcher,
	sink audit.Sink,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(svc, logger)
	ph := handler.NewPublishHandler(dispatcher, logger)
	ah := handler.NewAuditHandler(sink)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Queue — note: /stats must be registered before /{id}
		// so chi does not treat the literal string "stats" as an ID.
		r.Get("/queue/stats", qh.Stats)
		r.Post("/queue", qh.Enqueue)
		r.Get("/queue", qh.List)
		r.Get("/queue/{id}", qh.GetByID)

		// Publishing
		r.Post("/publish/run", ph.Run)

		// Batch history
		r.Get("/audit", ah.Recent)
	})

	return r
}
