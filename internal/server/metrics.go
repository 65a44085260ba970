package server

import (
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

var metricsProxyClient = &http.Client{Timeout: 5 * time.Second}

// hopHeaders are dropped when relaying the exporter's response.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// MetricsHandler relays the Prometheus exporter's page so /metrics can be
// scraped on the API port. It answers 503 while metrics are off.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	target := observability.MetricsScrapeURL()
	if target == "" {
		apperrors.RespondWithError(w, r, errors.NewErrorEnvelope(apperrors.CodeUnavailable, "Metrics exporter not initialized"))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		apperrors.RespondWithError(w, r, scrapeFailure(apperrors.CodeInternal, "Unable to construct metrics request", target, err))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		apperrors.RespondWithError(w, r, scrapeFailure(apperrors.CodeUnavailable, "Prometheus exporter unavailable", target, err))
		return
	}
	defer resp.Body.Close() // nolint:errcheck // read-only body

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to relay metrics", zap.Error(err))
	}
}

func scrapeFailure(code, message, target string, err error) *errors.ErrorEnvelope {
	envelope, _ := errors.NewErrorEnvelope(code, message).WithContext(map[string]interface{}{
		"metrics_url":    target,
		"original_error": err.Error(),
	})
	return envelope
}
