package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mw "github.com/anirudhmenon/resumatch/internal/api/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Cache ---

type mockCache struct {
	counter int64
	err     error
}

func (m *mockCache) Ping(_ context.Context) error { return nil }
func (m *mockCache) SetJobStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (m *mockCache) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (m *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counter++
	return m.counter, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- Identity ---

func TestIdentity_MissingHeader(t *testing.T) {
	h := mw.Identity(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "MISSING_IDENTITY", errObj["code"])
}

func TestIdentity_MalformedHeader(t *testing.T) {
	h := mw.Identity(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_IDENTITY", errObj["code"])
}

func TestIdentity_ValidHeaderSetsContext(t *testing.T) {
	userID := uuid.New()
	var got uuid.UUID
	h := mw.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := mw.GetUserID(r)
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, got)
}

// --- RateLimit ---

func identifiedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	return req
}

func TestRateLimit_UnderLimit(t *testing.T) {
	rl := mw.NewRateLimit(&mockCache{}, 5)
	h := mw.Identity(rl.Limit(okHandler()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, identifiedRequest())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_OverLimit(t *testing.T) {
	c := &mockCache{counter: 5}
	rl := mw.NewRateLimit(c, 5)
	h := mw.Identity(rl.Limit(okHandler()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, identifiedRequest())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_FailsOpenOnCacheError(t *testing.T) {
	rl := mw.NewRateLimit(&mockCache{err: context.DeadlineExceeded}, 5)
	h := mw.Identity(rl.Limit(okHandler()))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, identifiedRequest())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_PassThroughWithoutIdentity(t *testing.T) {
	rl := mw.NewRateLimit(&mockCache{}, 5)
	h := rl.Limit(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

// --- Logger ---

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger_RecordsRequestFields(t *testing.T) {
	buf := captureLogs(t)
	userID := uuid.NewString()

	h := mw.Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":{"queued":1}}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/upload", nil)
	req.Header.Set("X-User-ID", userID)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/ingest/upload", entry["path"])
	assert.Equal(t, float64(http.StatusAccepted), entry["status"])
	assert.Equal(t, float64(21), entry["bytes"])
	assert.Equal(t, userID, entry["user_id"])
}

func TestLogger_AnonymousRequestOmitsUserID(t *testing.T) {
	buf := captureLogs(t)

	h := mw.Logger(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	_, hasUser := entry["user_id"]
	assert.False(t, hasUser)
}

// --- Recovery ---

func TestRecovery_PanicReturns500(t *testing.T) {
	h := mw.Recovery(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	h := mw.Recovery(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
