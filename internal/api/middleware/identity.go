package middleware

import (
	"context"
	"net/http"

	"github.com/anirudhmenon/resumatch/internal/api/response"
	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userIDHeader carries the caller identity resolved by the upstream gateway.
// Credential verification happens there; this service trusts the header.
const userIDHeader = "X-User-ID"

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Identity requires a valid X-User-ID header and puts the parsed id on the
// request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"MISSING_IDENTITY", "X-User-ID header is required", nil)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_IDENTITY", "X-User-ID must be a valid UUID", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), id)))
	})
}
