package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// RequesterHeader names the caller identity used for quota accounting.
const RequesterHeader = "X-Requester-ID"

type requesterContextKey struct{}

// Requester resolves the requester identity from X-Requester-ID, falling back
// to the remote address host. Run it after chi's RealIP.
func Requester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester := strings.TrimSpace(r.Header.Get(RequesterHeader))
		if requester == "" {
			requester = remoteHost(r.RemoteAddr)
		}
		ctx := context.WithValue(r.Context(), requesterContextKey{}, requester)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequester returns the requester stored by Requester, or "".
func GetRequester(ctx context.Context) string {
	requester, _ := ctx.Value(requesterContextKey{}).(string)
	return requester
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
