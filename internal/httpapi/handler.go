package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewHandler returns the production handler (router + observability middleware).
//
// Tests can still use NewRouter directly to avoid noisy logs unless needed.
func NewHandler() http.Handler {
	return NewHandlerWithOptions(Options{})
}

func NewHandlerWithOptions(opt Options) http.Handler {
	opt = opt.withDefaults()
	return middleware.RequestID(withObservability(NewRouterWithOptions(opt), opt.Logger))
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func withObservability(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// chi fills the route context in place, so the pattern is readable
		// after the request is served.
		rctx := chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}

		pattern := rctx.RoutePattern()
		if pattern == "" {
			// Unmatched paths are unbounded; keep the label set small.
			pattern = "(unmatched)"
		}
		pattern = r.Method + " " + pattern

		metricsIncRequest(pattern, status)

		// Never log the query string: /clash carries the access token there.
		if r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("pattern", pattern),
				zap.Int("status", status),
				zap.Duration("dur", time.Since(start).Round(time.Millisecond)),
				zap.Int("bytes", sw.bytes),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}
	})
}
