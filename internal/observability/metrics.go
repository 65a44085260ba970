package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem receives every metric the agent records. Nil until
	// InitMetrics runs; recorders skip emission while it is nil.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the collected metrics on its own listener.
	PrometheusExporter *exporters.PrometheusExporter
)

// InitMetrics starts the Prometheus exporter on port (0 picks a free port)
// and routes telemetry into it under namespace.
func InitMetrics(namespace string, port int) error {
	if port < 0 {
		port = 0
	}
	exporter := exporters.NewPrometheusExporter(namespace, ":"+strconv.Itoa(port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// StopMetrics closes the exporter listener and turns metric recording off.
func StopMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// MetricsPort reports the port the exporter is bound to, or 0 when metrics
// are off.
func MetricsPort() int {
	if PrometheusExporter == nil {
		return 0
	}
	port, err := resolvePort(PrometheusExporter.GetAddr())
	if err != nil {
		return 0
	}
	return port
}

// MetricsScrapeURL is the loopback URL of the exporter's /metrics page, or ""
// when metrics are off.
func MetricsScrapeURL() string {
	port := MetricsPort()
	if port == 0 {
		return ""
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
