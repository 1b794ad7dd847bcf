// Package api assembles the HTTP surface of the cashflow service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/api/handlers"
	"github.com/rutwin/cashflow/internal/api/middleware"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/metrics"
	"github.com/rutwin/cashflow/internal/webhook"
)

// requestTimeout bounds a synchronous analysis. Ledger queries over a long
// window are the slow part.
const requestTimeout = 2 * time.Minute

// RouterConfig lists what the router mounts. Optional parts are skipped when
// nil: the jobs API needs both Store and Publisher.
type RouterConfig struct {
	Analyzer       handlers.Analyzer
	Store          jobs.JobStore
	Publisher      jobs.Publisher
	Webhook        *webhook.TellerHandler
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter returns the chi router with all routes mounted.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		if cfg.Analyzer != nil {
			analysis := handlers.NewAnalysisHandler(cfg.Analyzer, cfg.Logger)
			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(requestTimeout))
				r.Post("/recurring", analysis.IdentifyRecurring)
				r.Post("/forecast", analysis.ForecastCashFlow)
				r.Post("/cashflow", analysis.AnalyzeCashFlow)
			})
		}

		if cfg.Store != nil && cfg.Publisher != nil {
			jobsHandler := handlers.NewJobsHandler(cfg.Store, cfg.Publisher, cfg.Logger)
			r.Post("/jobs", jobsHandler.CreateJob)
			r.Get("/jobs", jobsHandler.ListJobs)
			r.Get("/jobs/{id}", jobsHandler.GetJob)
		}
	})

	if cfg.Webhook != nil {
		r.Get("/webhook/teller", cfg.Webhook.Status)
		r.Post("/webhook/teller", cfg.Webhook.Receive)
	}

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
