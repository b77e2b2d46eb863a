package handler

import (
	"errors"
	"net/http"

	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/anirudhmenon/resumatch/internal/cache"
	"github.com/anirudhmenon/resumatch/internal/store"
	"github.com/anirudhmenon/resumatch/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
// Jobs are the caller's own, most recent first.
func NewListJobsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		jobs, err := st.ListJobsByOwner(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list jobs", nil)
			return
		}

		response.JSON(w, jobs)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
// A cached non-terminal status answers the poll without touching the
// database; terminal results always come from the store so score and details
// are included.
func NewGetJobHandler(st store.Store, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		// The fast path skips the ownership check; job ids are random v4
		// UUIDs and the cached payload is only the status string.
		if status, hit, cacheErr := ca.GetJobStatus(r.Context(), jobID); cacheErr == nil && hit && !models.IsTerminal(status) {
			response.JSON(w, map[string]any{"id": jobID, "status": status})
			return
		}

		job, err := st.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch job", nil)
			return
		}

		if job.OwnerID != userID {
			// Do not reveal that the job exists for someone else.
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job not found", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewResetHandler returns an http.HandlerFunc for DELETE /api/v1/jobs. It
// removes every job for the caller and cleans up their stored blobs.
func NewResetHandler(d Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		if err := d.Reset(r.Context(), userID); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to reset jobs", nil)
			return
		}

		response.JSON(w, map[string]string{"status": "reset"})
	}
}
