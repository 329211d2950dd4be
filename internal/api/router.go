package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/campaign-queue/internal/auth"
	"github.com/sungwon/campaign-queue/internal/queue"
	"github.com/sungwon/campaign-queue/internal/storage"
)

// NewRouter creates a chi.Mux with all routes, middleware, and handlers
// configured. apiKeyHash is the bcrypt hash the /api/v1 routes authenticate
// against; when empty, those routes are served without authentication.
func NewRouter(queries storage.Querier, db *storage.DB, svc *queue.Service, apiKeyHash string, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))
	r.Use(MetricsMiddleware)

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// API routes (auth required)
	r.Route("/api/v1", func(r chi.Router) {
		if apiKeyHash != "" {
			r.Use(auth.BearerAuth(apiKeyHash))
		}

		// Queue
		r.Post("/queue", EnqueueHandler(svc))
		r.Get("/queue", ListQueueHandler(queries))
		r.Post("/queue/dispatch", DispatchHandler(svc))

		// Sent campaigns
		r.Post("/campaigns", LogCampaignHandler(svc))
		r.Get("/campaigns", ListCampaignsHandler(queries))
		r.Get("/campaigns/{campaignID}", GetCampaignHandler(queries))
		r.Get("/campaigns/{campaignID}/recipients", ListRecipientsHandler(queries))
	})

	return r
}
