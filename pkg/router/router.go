package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"churn-insights/internal/metrics"
	"churn-insights/pkg/logger"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

// Options configure the base router. Logger and Metrics may be nil.
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Color   bool // colored one-line access log instead of structured fields
}

// New returns a chi router with request IDs, panic recovery, access logging
// and request metrics installed.
func New(opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(opts.Logger, opts.Color))
	if opts.Metrics != nil {
		r.Use(Instrument(opts.Metrics))
	}
	return r
}

// AccessLog logs one line per request with its status and duration.
func AccessLog(log *logger.Logger, color bool) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(lrw, req)
			duration := time.Since(start)

			if color {
				log.Info(fmt.Sprintf("%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s",
					colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
					methodColor(req.Method), req.Method, colorReset,
					req.URL.Path,
					statusColor(lrw.statusCode), lrw.statusCode, colorReset,
					colorBlue, duration, colorReset,
				))
				return
			}
			log.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", lrw.statusCode,
				"duration", duration.String(),
				"request_id", middleware.GetReqID(req.Context()),
			)
		})
	}
}

// Instrument counts requests and observes latency per route pattern.
// Unmatched paths share the "unmatched" route label.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(lrw, req)

			route := "unmatched"
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(lrw.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// --- Start server ---

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("🚀 Server started on %shttp://localhost%s%s", colorGreen, addr, colorReset))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if !lrw.wrote {
		lrw.statusCode = code
		lrw.wrote = true
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.wrote = true
	return lrw.ResponseWriter.Write(b)
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
