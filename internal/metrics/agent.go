package metrics

import (
	"time"

	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

// Pipeline metrics
const (
	DispatchTotal      = "verifi_dispatch_total"
	DispatchDuration   = "verifi_dispatch_ms"
	QuotaDecisionTotal = "verifi_quota_decisions_total"
	InterpretTotal     = "verifi_interpret_total"
	InterpretDuration  = "verifi_interpret_ms"
)

// RecordDispatch records one dispatcher run by entity kind and outcome.
// Outcome is "success" or the error kind.
func RecordDispatch(kind string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		DispatchTotal,
		1,
		map[string]string{
			"kind":    kind,
			"outcome": outcome,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		DispatchDuration,
		duration,
		map[string]string{
			"kind": kind,
		},
	)
}

// RecordQuotaDecision records whether a direct request was admitted.
func RecordQuotaDecision(admitted bool) {
	decision := "admitted"
	if !admitted {
		decision = "rejected"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			QuotaDecisionTotal,
			1,
			map[string]string{
				"decision": decision,
			},
		)
	}
}

// RecordInterpret records one query interpretation attempt.
func RecordInterpret(outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		InterpretTotal,
		1,
		map[string]string{
			"outcome": outcome,
		},
	)
	_ = observability.TelemetrySystem.Histogram(InterpretDuration, duration, nil)
}
