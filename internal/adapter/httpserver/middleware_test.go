package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rafaelspotto/helthgo/internal/domain"
	"github.com/rafaelspotto/helthgo/internal/platform/correlation"
	apperrors "github.com/rafaelspotto/helthgo/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithErrorMiddleware(t *testing.T, handlerErr error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler := ErrorHandlingMiddleware()(func(echo.Context) error { return handlerErr })
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestErrorHandlingMiddleware_MapsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   apperrors.ErrorType
		wantMsg    string
	}{
		{"structured", apperrors.ValidationError("invalid input"), http.StatusBadRequest, apperrors.TypeValidation, "invalid input"},
		{"domain validation", &domain.ValidationError{Reason: "status is required"}, http.StatusBadRequest, apperrors.TypeValidation, "status is required"},
		{"not found", fmt.Errorf("lookup: %w", domain.ErrRecordNotFound), http.StatusNotFound, apperrors.TypeNotFound, "record not found"},
		{"store unavailable", &domain.StorageError{PatientID: "PAC001", Err: domain.ErrStoreUnavailable}, http.StatusServiceUnavailable, apperrors.TypeUnavailable, "record store unavailable"},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError, apperrors.TypeInternal, "internal server error"},
		{"storage failure", &domain.StorageError{PatientID: "PAC001", Err: errors.New("deadlock")}, http.StatusInternalServerError, apperrors.TypeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runWithErrorMiddleware(t, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp apperrors.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestErrorHandlingMiddleware_PassesEchoErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler := ErrorHandlingMiddleware()(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "nope")
	})

	err := handler(e.NewContext(req, rec))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusMethodNotAllowed, httpErr.Code)
}

func TestCorrelationMiddleware(t *testing.T) {
	e := echo.New()

	var seen string
	handler := correlationMiddleware(func(c echo.Context) error {
		seen, _ = correlation.ID(c.Request().Context())
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(correlationHeader))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(correlationHeader, "upstream-id")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "upstream-id", seen)
}
