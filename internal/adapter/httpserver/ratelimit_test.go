package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveLimited(t *testing.T, handler echo.HandlerFunc, method, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/pacientes/dados", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(echo.New().NewContext(req, rec)))
	return rec
}

func limitedOK(mw echo.MiddlewareFunc) echo.HandlerFunc {
	return mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	handler := limitedOK(newRateLimiter(0.01, 2))

	assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000").Code)

	denied := serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "1", denied.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, denied.Body.String())
}

func TestRateLimiter_PerIP(t *testing.T) {
	handler := limitedOK(newRateLimiter(0.01, 1))

	assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodGet, "10.0.0.2:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000").Code)
}

func TestRateLimiter_PreflightNotCounted(t *testing.T) {
	handler := limitedOK(newRateLimiter(0.01, 1))

	for range 3 {
		assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodOptions, "10.0.0.1:1000").Code)
	}
	assert.Equal(t, http.StatusOK, serveLimited(t, handler, http.MethodGet, "10.0.0.1:1000").Code)
}
