package middleware

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestRouter(log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Logging(log))
	r.Use(Metrics)
	r.Get("/api/orders/status/{orderID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"Pending"}`))
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return r
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newTestRouter(zap.New(core))

	t.Run("generates_request_id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/status/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "/api/orders/status/{orderID}", fields["route"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, w.Header().Get(RequestIDHeader), fields["req_id"])
	})

	t.Run("keeps_client_request_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/status/1", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-1", entries[0].ContextMap()["req_id"])
	})

	t.Run("client_errors_logged_as_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	})
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(zap.NewNop())
	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/orders/status/{orderID}", "200"))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/status/"+id, nil))
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/orders/status/{orderID}", "200"))
	assert.Equal(t, float64(3), after-before)
}
