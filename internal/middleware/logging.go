package middleware

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// RequestIDHeader carries request id between client, logs and response
const RequestIDHeader = "X-Request-Id"

// Logging logs every request with status, duration and response size
func Logging(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
				r.Header.Set(RequestIDHeader, reqID)
			}
			w.Header().Set(RequestIDHeader, reqID)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("req_id", reqID),
				zap.String("method", r.Method),
				zap.String("uri", r.RequestURI),
				zap.String("route", routePattern(r)),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("size", ww.BytesWritten()),
			}

			if status >= http.StatusBadRequest {
				log.Error("http request", fields...)
				return
			}
			log.Info("http request", fields...)
		})
	}
}

// routePattern returns matched chi route or raw path when nothing matched
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
