package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequester(t *testing.T) {
	var seen string
	handler := Requester(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequester(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/requests", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", seen)

	req = httptest.NewRequest(http.MethodPost, "/v1/requests", nil)
	req.Header.Set(RequesterHeader, "  agent-42 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "agent-42", seen)

	req = httptest.NewRequest(http.MethodPost, "/v1/requests", nil)
	req.RemoteAddr = "unix-socket"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "unix-socket", seen)
}
