package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stamprally/internal/platform/metrics"
)

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/booths", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

// Handlers serving something other than JSON set their own header before the
// first write; the middleware default must not win over it.
func TestContentTypeJSONHandlerOverride(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stamp", nil))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestRequestMetricsObservesMatchedRoute(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(RequestMetrics(m))
	r.Get("/api/participants/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/participants/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	count := testutil.CollectAndCount(m.RequestDuration, "stamprally_http_request_duration_seconds")
	assert.Equal(t, 1, count, "one route label should have been observed")
}

func TestRequestMetricsNilSafe(t *testing.T) {
	h := RequestMetrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
