package ailink

import (
	"context"
	"errors"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

var providerReasonMessages = map[driver.Reason]string{
	driver.ReasonAuth:        "the language model rejected our credentials",
	driver.ReasonRateLimited: "the language model is rate limiting requests",
	driver.ReasonUnavailable: "the language model is unavailable",
	driver.ReasonRejected:    "the language model rejected the request",
}

// mapProviderError classifies a failed completion call. Every transport or
// provider failure is UpstreamUnavailable; only the message differs.
func mapProviderError(err error) *core.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrUpstreamUnavailable, err, "the language model did not answer in time")
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) {
		if msg, ok := providerReasonMessages[perr.Reason()]; ok {
			return core.WrapError(core.ErrUpstreamUnavailable, err, msg)
		}
	}

	return core.WrapError(core.ErrUpstreamUnavailable, err, "the language model request failed")
}
