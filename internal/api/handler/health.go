package handler

import (
	"net/http"

	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/anirudhmenon/resumatch/internal/cache"
	"github.com/anirudhmenon/resumatch/internal/store"
)

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. It
// reports per-dependency status and degrades to 503 when either backing
// service is unreachable.
func NewHealthHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		if err := st.Ping(r.Context()); err != nil {
			dbStatus = "unreachable"
		}

		cacheStatus := "ok"
		if err := ca.Ping(r.Context()); err != nil {
			cacheStatus = "unreachable"
		}

		payload := map[string]string{
			"status":   "ok",
			"database": dbStatus,
			"cache":    cacheStatus,
		}

		if dbStatus != "ok" || cacheStatus != "ok" {
			payload["status"] = "degraded"
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more dependencies are unreachable", payload)
			return
		}

		response.JSON(w, payload)
	}
}
