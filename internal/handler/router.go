package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lanwatch/internal/metrics"
)

// NewRouter wires the API, the SSE stream and the metrics endpoint
func NewRouter(h *Handler, events http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(h.log))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if events != nil {
		r.Handle("/events", events)
	}

	r.Route("/api/sources", func(r chi.Router) {
		r.Get("/", h.ListSources)

		r.Route("/{source}", func(r chi.Router) {
			r.Get("/", h.GetSource)
			r.Get("/aggregates", h.GetAggregates)
			r.Get("/hosts", h.ListHosts)
			r.Get("/hosts/{mac}", h.GetHost)
			r.Get("/discovered", h.ListDiscovered)
			r.Get("/selection", h.GetSelection)
			r.Put("/selection", h.PutSelection)
			r.Post("/poll", h.TriggerPoll)
		})
	})

	return r
}

// requestLogger logs each request at debug level
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
