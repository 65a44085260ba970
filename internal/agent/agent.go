// Package agent wires the interpreter, quota guard, dispatcher and formatter
// into the two entry points exposed to users: free-text chat and direct
// structured requests.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/output"
)

// DefaultName is reported by the health check when no name is configured.
const DefaultName = "verifi"

// StatusHealthy is the only status the health reporter returns.
const StatusHealthy = "healthy"

// Interpreter turns free text into a structured request.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*core.StructuredRequest, error)
}

// Dispatcher fetches the data for a structured request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req core.StructuredRequest) (*core.StructuredResponse, error)
}

// Quota admits or rejects direct requests per requester.
type Quota interface {
	Admit(ctx context.Context, requester string) error
}

// Catalog lists the registered entity kinds.
type Catalog interface {
	Kinds() []core.EntityKind
	Describe(kind core.EntityKind) string
}

// Agent is safe for concurrent use; it holds no per-call state.
type Agent struct {
	Name        string
	Interpreter Interpreter
	Dispatcher  Dispatcher
	Quota       Quota
	Catalog     Catalog
	Logger      *logging.Logger
	Clock       func() time.Time
}

// Health is the liveness report.
type Health struct {
	AgentName string    `json:"agent_name"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is the result of one chat turn before formatting.
type Outcome struct {
	Request  *core.StructuredRequest
	Response *core.StructuredResponse
	Err      error
}

// Message renders the outcome as the chat reply.
func (o Outcome) Message() string {
	return output.FormatOutcome(o.Response, o.Err)
}

// Ask runs interpretation and dispatch for text. Chat traffic is not subject
// to the direct-request quota.
func (a *Agent) Ask(ctx context.Context, text string) Outcome {
	if a.Interpreter == nil {
		return Outcome{Err: core.Errorf(core.ErrUpstreamUnavailable, "query interpreter is not configured")}
	}

	req, err := a.Interpreter.Interpret(ctx, text)
	if err != nil {
		return Outcome{Err: err}
	}

	resp, err := a.dispatch(ctx, *req)
	return Outcome{Request: req, Response: resp, Err: err}
}

// HandleChat answers a free-text message with a single formatted reply.
func (a *Agent) HandleChat(ctx context.Context, text string) string {
	outcome := a.Ask(ctx, text)
	if outcome.Err != nil && a.Logger != nil {
		a.Logger.Info("Chat request failed",
			zap.String("error_kind", string(core.KindOf(outcome.Err))),
			zap.Error(outcome.Err))
	}
	return outcome.Message()
}

// HandleStructured serves a direct structured request for requester.
//
// The kind is validated before the quota is consulted, so unsupported kinds
// fail with UnknownEntityKind and never consume quota.
func (a *Agent) HandleStructured(ctx context.Context, requester string, req core.StructuredRequest) (*core.StructuredResponse, error) {
	kind, err := core.ParseEntityKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	req.Kind = kind

	if a.Quota != nil {
		if err := a.Quota.Admit(ctx, requesterKey(requester)); err != nil {
			if a.Logger != nil {
				a.Logger.Info("Direct request rejected",
					zap.String("requester", requesterKey(requester)),
					zap.Error(err))
			}
			return nil, err
		}
	}

	return a.dispatch(ctx, req)
}

// Health reports liveness without touching any dependency.
func (a *Agent) Health() Health {
	if a == nil {
		return Health{AgentName: DefaultName, Status: StatusHealthy, Timestamp: time.Now().UTC()}
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = DefaultName
	}
	return Health{
		AgentName: name,
		Status:    StatusHealthy,
		Timestamp: a.now(),
	}
}

// Kinds lists the supported kinds with their source descriptions.
func (a *Agent) Kinds() []output.KindInfo {
	var kinds []core.EntityKind
	if a.Catalog != nil {
		kinds = a.Catalog.Kinds()
	} else {
		kinds = core.EntityKinds()
	}

	out := make([]output.KindInfo, 0, len(kinds))
	for _, kind := range kinds {
		info := output.KindInfo{Kind: kind, Description: kind.Description()}
		if a.Catalog != nil {
			info.Source = a.Catalog.Describe(kind)
		}
		out = append(out, info)
	}
	return out
}

func (a *Agent) dispatch(ctx context.Context, req core.StructuredRequest) (*core.StructuredResponse, error) {
	if a.Dispatcher == nil {
		return nil, core.Errorf(core.ErrUpstreamUnavailable, "dispatcher is not configured")
	}
	return a.Dispatcher.Dispatch(ctx, req)
}

func (a *Agent) now() time.Time {
	if a.Clock != nil {
		return a.Clock().UTC()
	}
	return time.Now().UTC()
}

func requesterKey(requester string) string {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return "anonymous"
	}
	return requester
}
