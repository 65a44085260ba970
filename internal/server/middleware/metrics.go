package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

// HTTP metric names. Labels stay low-cardinality: method, route and status.
const (
	HTTPRequestsTotal     = "http_requests_total"
	HTTPRequestDuration   = "http_request_duration_ms"
	HTTPRequestSizeBytes  = "http_request_size_bytes"
	HTTPResponseSizeBytes = "http_response_size_bytes"
	HTTPErrorsTotal       = "http_errors_total"
)

// knownRoutes labels requests that never reached a chi route, such as a 404
// from the router itself.
var knownRoutes = map[string]string{
	"/":             "/",
	"/health":       "/health/*",
	"/health/live":  "/health/*",
	"/health/ready": "/health/*",
	"/v1/chat":      "/v1/chat",
	"/v1/requests":  "/v1/requests",
	"/v1/kinds":     "/v1/kinds",
	"/version":      "/version",
	"/metrics":      "/metrics",
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := knownRoutes[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return ""
	}
}

// RequestMetrics records request count, latency, body sizes and error class
// per route, then logs the request with its correlation id and requester.
// It is a pass-through while telemetry is off.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeLabel(r)
		status := strconv.Itoa(rec.status)
		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		labels := map[string]string{"method": r.Method, "endpoint": route, "status": status}
		sizeLabels := map[string]string{"method": r.Method, "endpoint": route}
		_ = sys.Counter(HTTPRequestsTotal, 1, labels)
		_ = sys.Histogram(HTTPRequestDuration, elapsed, labels)
		_ = sys.Gauge(HTTPRequestSizeBytes, float64(requestSize), sizeLabels)
		_ = sys.Gauge(HTTPResponseSizeBytes, float64(rec.written), sizeLabels)
		if class := statusClass(rec.status); class != "" {
			_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
				"method":     r.Method,
				"endpoint":   route,
				"status":     status,
				"error_type": class,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", route),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", rec.written),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("requester", GetRequester(r.Context())),
			)
		}
	})
}
