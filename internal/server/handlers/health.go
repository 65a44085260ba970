package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	apperrors "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
)

// HealthReporter produces the liveness report. It must not call out to any
// dependency.
type HealthReporter interface {
	Health() agent.Health
}

// HealthManager serves the aggregate, live and ready health routes from a
// single reporter.
type HealthManager struct {
	reporter HealthReporter
	version  string
}

// HealthResponse is the body of every health route.
type HealthResponse struct {
	AgentName string `json:"agent_name"`
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
	Check     string `json:"check,omitempty"`
}

// NewHealthManager creates a health manager for reporter.
func NewHealthManager(reporter HealthReporter, version string) *HealthManager {
	return &HealthManager{reporter: reporter, version: version}
}

func (hm *HealthManager) respond(w http.ResponseWriter, r *http.Request, check string) {
	start := time.Now()
	if hm == nil || hm.reporter == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health reporter not initialized")
		envelope = envelope.WithDetails(map[string]interface{}{"check": check})
		apperrors.RespondWithError(w, r, envelope)
		return
	}

	report := hm.reporter.Health()
	metrics.RecordHealthCheck(check, report.Status == agent.StatusHealthy, time.Since(start))

	response := HealthResponse{
		AgentName: report.AgentName,
		Status:    report.Status,
		Version:   hm.version,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
	}
	if check != "aggregate" {
		response.Check = check
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// HealthHandler handles aggregate health check requests.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.respond(w, r, "aggregate")
}

// LivenessHandler serves /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.respond(w, r, "live")
}

// ReadinessHandler serves /health/ready. Readiness is the same signal as
// liveness; upstream sources are never contacted.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.respond(w, r, "ready")
}
