package driver

import (
	"fmt"
	"net/http"
)

// Reason groups provider failures by what an operator should do about them.
type Reason string

const (
	ReasonAuth        Reason = "auth"
	ReasonRateLimited Reason = "rate_limited"
	ReasonRejected    Reason = "rejected"
	ReasonUnavailable Reason = "unavailable"
	ReasonUnknown     Reason = "unknown"
)

// ProviderError is a non-2xx reply from a language model provider.
// RawResponse holds the reply body and never the request's API key.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Provider, e.Message)
}

// Reason classifies the failure by status code.
func (e *ProviderError) Reason() Reason {
	if e == nil {
		return ReasonUnknown
	}
	switch code := e.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ReasonAuth
	case code == http.StatusTooManyRequests:
		return ReasonRateLimited
	case code >= 500 && code <= 599:
		return ReasonUnavailable
	case code >= 400 && code <= 499:
		return ReasonRejected
	default:
		return ReasonUnknown
	}
}
