package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmoned/internal/platform/metrics"
	"wmoned/pkg/requestcontext"
	tu "wmoned/pkg/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("generates one", func(t *testing.T) {
		rr := tu.DoRequest(h, tu.NewRequest(t, http.MethodGet, "/"))
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("propagates the caller's", func(t *testing.T) {
		req := tu.NewRequest(t, http.MethodGet, "/")
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := tu.DoRequest(h, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
	})

	t.Run("replaces an oversized one", func(t *testing.T) {
		req := tu.NewRequest(t, http.MethodGet, "/")
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
		tu.DoRequest(h, req)
		assert.Len(t, seen, 36)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := tu.DoRequest(h, tu.NewRequest(t, http.MethodGet, "/"))
	tu.AssertStatusAndError(t, rr, http.StatusInternalServerError, "Server error occurred")
}

func TestLogger_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Get("/wmoned/document/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tu.DoRequest(r, tu.NewRequest(t, http.MethodGet, "/wmoned/document/secret-token"))

	out := buf.String()
	assert.Contains(t, out, "route=/wmoned/document/{id}")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "level=WARN")
	assert.NotContains(t, out, "secret-token")
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	h := Timeout(time.Minute)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
	}))
	tu.DoRequest(h, tu.NewRequest(t, http.MethodGet, "/"))
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestLatencyMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWith(reg)

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/status/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tu.DoRequest(r, tu.NewRequest(t, http.MethodGet, "/status/health"))
	tu.DoRequest(r, tu.NewRequest(t, http.MethodGet, "/status/health"))

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))
}

func TestLatencyMiddleware_NilMetrics(t *testing.T) {
	h := LatencyMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := tu.DoRequest(h, tu.NewRequest(t, http.MethodGet, "/"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
