package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"wmoned/pkg/platform/httputil"
	"wmoned/pkg/requestcontext"
)

const MessageTooManyRequests = "Too many requests"

type Metrics struct {
	Rejected prometheus.Counter
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wmoned_ratelimit_rejected_total",
			Help: "Requests rejected by the per-caller rate limit",
		}),
	}
}

func (m *Metrics) incRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

// Middleware limits requests per caller.
type Middleware struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Middleware)

func WithMetrics(m *Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// New returns a limiter allowing limit requests per window. A limit of zero
// or less disables limiting.
func New(store Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, limit: limit, window: window, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerCaller keys the limit on the authenticated BSN, or the client IP before
// authentication. Store failures let the request through.
func (m *Middleware) PerCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		key := "ip:" + requestcontext.ClientIP(ctx)
		if bsn := requestcontext.BSN(ctx); !bsn.IsZero() {
			key = "bsn:" + bsn.String()
		}

		result, err := m.store.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			m.metrics.incRejected()
			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Envelope{
				Status:  httputil.StatusError,
				Message: MessageTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
