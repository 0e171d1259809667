package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "churn-insights/docs"
	"churn-insights/internal/api/handler"
	"churn-insights/internal/metrics"
	"churn-insights/pkg/logger"
	"churn-insights/pkg/router"
)

// Options configure the HTTP surface. Gatherer serves /metrics; nil disables it.
type Options struct {
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Color    bool
}

// NewRouter builds the full HTTP handler of the API.
func NewRouter(h *handler.ChurnHandler, opts Options) http.Handler {
	r := router.New(router.Options{Logger: opts.Logger, Metrics: opts.Metrics, Color: opts.Color})
	RegisterRoutes(r, h)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	return r
}

// RegisterRoutes mounts the JSON endpoints on r.
func RegisterRoutes(r chi.Router, h *handler.ChurnHandler) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/dataset", h.GetDataset)
		r.Get("/insights", h.GetInsights)
		r.Get("/report", h.GetReport)
		r.Get("/model", h.GetModel)
		r.Get("/model/form", h.GetForm)
		r.Post("/predict", h.Predict)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
		r.Get("/runs/{id}/predictions", h.ListRunPredictions)
	})
}
