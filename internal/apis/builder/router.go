package builder

import (
	"net/http"
	"surveylogic/internal/components/telemetry"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const report_router_request = "router.request"

// requestLogger reports every request with its status and latency.
func requestLogger(tel telemetry.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			tel.ReportDebug(
				report_router_request,
				r.Method,
				r.URL.Path,
				ww.Status(),
				time.Since(start).String(),
				middleware.GetReqID(r.Context()),
			)
		})
	}
}

// NewRouter mounts the logic builder API under /api/v1.
func NewRouter(h *Handler, tel telemetry.API) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(telemetry.NewScopedAPI("http", tel)))

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)

			r.Put("/document", h.Upload)
			r.Delete("/document", h.Reset)

			r.Put("/selections/{answerId}", h.Select)

			r.Get("/export", h.Export)
			r.Get("/export/download", h.Download)
		})
	})

	return r
}
