package handler

import (
	"net/http"

	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/anirudhmenon/resumatch/internal/store"
	"github.com/anirudhmenon/resumatch/pkg/models"
)

// NewHistoryHandler returns an http.HandlerFunc for GET /api/v1/history.
// The payload is the caller's bounded analysis history, newest first, and
// the window of recently processed filenames.
func NewHistoryHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing user", nil)
			return
		}

		entries, err := st.ListHistory(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch history", nil)
			return
		}
		if entries == nil {
			entries = []models.HistoryEntry{}
		}

		filenames, err := st.RecentFilenames(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to fetch history", nil)
			return
		}
		if filenames == nil {
			filenames = []string{}
		}

		response.JSON(w, map[string]any{
			"history":            entries,
			"analyzed_filenames": filenames,
		})
	}
}
