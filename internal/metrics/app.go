package metrics

import (
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

// Process metrics
const (
	OperationsTotal      = "verifi_operations_total"
	HealthReportsTotal   = "verifi_health_reports_total"
	HealthReportDuration = "verifi_health_report_ms"
	ServerStartTime      = "verifi_server_start_time_seconds"
	ServerUptime         = "verifi_server_uptime_seconds"
)

func count(name string, tags map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, tags)
	}
}

func gauge(name string, value float64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(name, value, nil)
	}
}

func outcomeOf(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordOperation counts one CLI command run (ask, fetch, serve).
func RecordOperation(operation string, success bool) {
	count(OperationsTotal, map[string]string{"operation": operation, "outcome": outcomeOf(success)})
}

// RecordHealthCheck records one health report served for check
// (aggregate, live or ready).
func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	count(HealthReportsTotal, map[string]string{"check": check, "status": status})
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(HealthReportDuration, duration, map[string]string{"check": check})
	}
}

func SetServerStartTime(unix int64) { gauge(ServerStartTime, float64(unix)) }

func SetServerUptime(seconds int64) { gauge(ServerUptime, float64(seconds)) }
