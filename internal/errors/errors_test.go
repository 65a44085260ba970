package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/middleware"
)

func TestFromDomainStatusCodes(t *testing.T) {
	cases := []struct {
		kind   core.ErrorKind
		code   string
		status int
	}{
		{core.ErrUnknownEntityKind, CodeUnknownEntityKind, http.StatusBadRequest},
		{core.ErrIdentifierNotFound, CodeIdentifierNotFound, http.StatusNotFound},
		{core.ErrUpstreamUnavailable, CodeUpstreamUnavailable, http.StatusBadGateway},
		{core.ErrQuotaExceeded, CodeQuotaExceeded, http.StatusTooManyRequests},
		{core.ErrInterpretationFailed, CodeInterpretationFailed, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			env := FromDomain(context.Background(), core.Errorf(tc.kind, "failed"))
			require.NotNil(t, env)
			assert.Equal(t, tc.code, env.Code)
			assert.Equal(t, "failed", env.Message)
			assert.Equal(t, tc.status, HTTPStatusFromEnvelope(env))
			assert.Equal(t, string(tc.kind), env.Details["kind"])
			assert.NotEmpty(t, env.CorrelationID)
		})
	}
}

func TestFromDomainNonDomainError(t *testing.T) {
	env := FromDomain(context.Background(), errors.New("boom"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(env))
}

func TestHTTPStatusFromCodeGeneric(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromCode(CodeBadRequest))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromCode(CodeNotFound))
	assert.Equal(t, http.StatusMethodNotAllowed, HTTPStatusFromCode(CodeMethodNotAllowed))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromCode(CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestEnsureEnvelope(t *testing.T) {
	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
	assert.Equal(t, CodeInternal, EnsureEnvelope(errors.New("x")).Code)
	assert.Equal(t, CodeQuotaExceeded, EnsureEnvelope(core.Errorf(core.ErrQuotaExceeded, "slow down")).Code)

	env := NewBadRequestError("bad")
	assert.Same(t, env, EnsureEnvelope(env))
}

func TestRespondWithErrorHidesCause(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, r, &core.Error{
			Kind:    core.ErrUpstreamUnavailable,
			Message: "CoinGecko is unavailable",
			Cause:   errors.New("dial tcp 10.0.0.1:443: connection refused"),
		})
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/requests", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "connection refused")

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeUpstreamUnavailable, body.Error.Code)
	assert.Equal(t, "CoinGecko is unavailable", body.Error.Message)
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, "UpstreamUnavailable", body.Error.Details["kind"])
}
