package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

// ExitCodeFor maps a command error onto a foundry exit code so scripts can
// tell a retryable outage from a bad request.
func ExitCodeFor(err error) foundry.ExitCode {
	switch core.KindOf(err) {
	case core.ErrUpstreamUnavailable:
		return foundry.ExitExternalServiceUnavailable
	case core.ErrUnknownEntityKind:
		return foundry.ExitInvalidArgument
	case core.ErrQuotaExceeded:
		return foundry.ExitResourceExhausted
	case core.ErrInterpretationFailed:
		return foundry.ExitDataInvalid
	default:
		return foundry.ExitFailure
	}
}

// ExitWithCode logs err with the exit code's catalog metadata and exits.
// A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, code foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(code)
	if !ok || logger == nil {
		ExitWithCodeStderr(code, msg, err)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if kind := core.KindOf(err); kind != "" {
		fields = append(fields, zap.String("error_kind", string(kind)))
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Original != nil {
			fields = append(fields, zap.Any("error_original", envelope.Original))
		}
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)

	os.Exit(info.Code)
}

// ExitWithCodeStderr reports the failure on stderr and exits. It is used
// before logging is configured.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	os.Exit(writeFatal(os.Stderr, code, msg, err))
}

func writeFatal(w io.Writer, code foundry.ExitCode, msg string, err error) int {
	switch envelope, isEnvelope := err.(*errors.ErrorEnvelope); {
	case isEnvelope:
		fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		if envelope.Original != nil {
			fmt.Fprintf(w, "Underlying error: %v\n", envelope.Original)
		}
	case err != nil:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	default:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
	}

	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		fmt.Fprintf(w, "Exit Code: %d\n", code)
		return int(code)
	}
	fmt.Fprintf(w, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	return info.Code
}
