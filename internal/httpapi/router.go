package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

func NewRouter() chi.Router {
	return NewRouterWithOptions(Options{})
}

func NewRouterWithOptions(opt Options) chi.Router {
	opt = opt.withDefaults()
	h := &server{opt: opt, log: opt.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/healthz", handleHealthz)
	r.Get("/metrics", handleMetrics)
	r.Get("/favicon.ico", h.handleFavicon)

	// Rendered documents are large and repetitive.
	r.Group(func(r chi.Router) {
		r.Use(compress)
		r.Get("/clash", h.handleClash)
		r.Post("/api/convert", h.handleConvert)
	})
	r.Post("/config", h.handleConfig)
	return r
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
