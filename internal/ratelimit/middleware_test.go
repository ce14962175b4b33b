package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(t *testing.T, formatted string) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := NewRedisLimiter(client, formatted, "test")
	require.NoError(t, err)

	return Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddlewareAllowsWithinLimit(t *testing.T) {
	handler := newLimitedHandler(t, "3-M")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/discounts/validate", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMiddlewareBlocksOverLimit(t *testing.T) {
	handler := newLimitedHandler(t, "2-M")

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/discounts/validate", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.NotEmpty(t, last.Header().Get("X-RateLimit-Reset"))
}

func TestMiddlewareSeparatesClients(t *testing.T) {
	handler := newLimitedHandler(t, "1-M")

	req := httptest.NewRequest(http.MethodPost, "/discounts/validate", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/discounts/validate", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
