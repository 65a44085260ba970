package metrics

import "strconv"

// Error metrics
const (
	ErrorsTotal      = "verifi_errors_total"
	ErrorsByEndpoint = "verifi_errors_by_endpoint_total"
	PanicsTotal      = "verifi_panics_total"
)

// RecordError counts an error envelope sent to a client.
func RecordError(code string, status int) {
	count(ErrorsTotal, map[string]string{"error_code": code, "http_status": strconv.Itoa(status)})
}

// RecordErrorByEndpoint counts an error envelope against the route that
// produced it.
func RecordErrorByEndpoint(endpoint string, code string) {
	count(ErrorsByEndpoint, map[string]string{"endpoint": endpoint, "error_code": code})
}

// RecordPanic counts a handler panic caught by the recovery middleware.
func RecordPanic() { count(PanicsTotal, nil) }
