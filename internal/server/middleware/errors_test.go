package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryHidesPanicValue(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret connection string")
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/kinds", nil)
	req.Header.Set(RequestIDHeader, "req-panic")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "req-panic", body.Error.RequestID)
	assert.Greater(t, collector.CountMetricsByName(metrics.PanicsTotal), 0)
}
