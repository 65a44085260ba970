package ailink

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawResponseError carries the model reply that failed to decode or validate,
// truncated to the configured capture limit.
type RawResponseError struct {
	Err error
	Raw json.RawMessage
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "unusable model reply"
	}
	return e.Err.Error() + " (raw reply captured, " + strconv.Itoa(len(e.Raw)) + " bytes)"
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func truncateJSONRaw(input json.RawMessage, max int) json.RawMessage {
	if max <= 0 {
		return nil
	}
	if len(input) <= max {
		return input
	}
	out := make(json.RawMessage, 0, max)
	out = append(out, input[:max]...)
	return out
}

// capturedRaw returns the raw model reply to attach to an error, or nil when
// capture is disabled.
func capturedRaw(cfg DebugConfig, raw string) json.RawMessage {
	if !cfg.CaptureRawEnabled {
		return nil
	}
	limit := cfg.CaptureRawMaxBytes
	if limit <= 0 {
		limit = defaultRawLimit
	}
	return truncateJSONRaw(json.RawMessage(raw), limit)
}

func safeOneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
