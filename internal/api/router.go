package api

import (
	"net/http"

	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	UploadIngestHandler http.HandlerFunc
	DriveIngestHandler  http.HandlerFunc
	ListJobsHandler     http.HandlerFunc
	GetJobHandler       http.HandlerFunc
	HistoryHandler      http.HandlerFunc
	ResetHandler        http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Identified routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Identity)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/ingest/upload", orNotImplemented(deps.UploadIngestHandler))
		r.Post("/api/v1/ingest/drive", orNotImplemented(deps.DriveIngestHandler))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobsHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Delete("/api/v1/jobs", orNotImplemented(deps.ResetHandler))

		r.Get("/api/v1/history", orNotImplemented(deps.HistoryHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
