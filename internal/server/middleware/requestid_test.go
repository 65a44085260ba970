package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "caller id kept", header: "chat-7f3a", keep: true},
		{name: "missing id minted", header: ""},
		{name: "id with spaces replaced", header: "bad id"},
		{name: "oversized id replaced", header: strings.Repeat("a", maxRequestIDLen+1)},
		{name: "non-ascii id replaced", header: "req-é"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			if tt.keep {
				assert.Equal(t, tt.header, seen)
				return
			}
			_, err := uuid.Parse(seen)
			require.NoError(t, err, "expected a minted uuid, got %q", seen)
		})
	}
}

func TestGetRequestIDOutsideRequest(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}
