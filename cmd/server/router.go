package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wmoned/internal/assertion"
	"wmoned/internal/platform/metrics"
	"wmoned/internal/platform/middleware"
	"wmoned/internal/ratelimit"
	provisionsHandler "wmoned/internal/provisions/handler"
	dErrors "wmoned/pkg/domain-errors"
	"wmoned/pkg/platform/httputil"
	"wmoned/pkg/platform/middleware/metadata"
	"wmoned/pkg/platform/middleware/requesttime"
)

// routerDeps is everything the HTTP surface needs.
type routerDeps struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	auth           *assertion.Middleware
	rateLimit      *ratelimit.Middleware
	provisions     *provisionsHandler.Handler
	assertions     *assertion.Handler
	requestTimeout time.Duration
	// ready reports whether backing services are reachable; nil means always.
	ready func(ctx context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.LatencyMiddleware(d.metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Envelope{
			Status:  httputil.StatusError,
			Message: httputil.MessageRequestError,
		})
	})

	r.Get("/status/health", func(w http.ResponseWriter, r *http.Request) {
		if d.ready != nil {
			if err := d.ready(r.Context()); err != nil {
				d.logger.ErrorContext(r.Context(), "health check failed",
					"error", err,
					"request_id", middleware.GetRequestID(r.Context()),
				)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, "UNAVAILABLE")
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, "OK")
	})

	metricsHandler := d.metricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		if d.requestTimeout > 0 {
			r.Use(middleware.Timeout(d.requestTimeout))
		}
		r.Use(d.auth.RequireAuth)
		if d.rateLimit != nil {
			r.Use(d.rateLimit.PerCaller)
		}
		d.provisions.Register(r)
		d.assertions.Register(r)
	})

	return r
}
