package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/prompt"
	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
)

const (
	// InterpretPromptSlug names the embedded interpretation prompt.
	InterpretPromptSlug = "interpret-request"

	// DefaultRole is the routing role used to select the interpreter provider.
	DefaultRole = "interpreter"

	defaultTimeout  = 30 * time.Second
	maxTimeout      = 5 * time.Minute
	defaultRawLimit = 4096
)

// Interpreter turns free text into a StructuredRequest with a single LLM call.
// The reply is revalidated against the prompt's response schema; nothing the
// model returns is trusted before that.
type Interpreter struct {
	// Providers resolves the driver per call. Ignored when Driver is set.
	Providers *Providers
	// Driver and Model pin a specific driver, bypassing provider resolution.
	Driver driver.Driver
	Model  string

	Role    string
	Prompt  *prompt.Prompt
	Timeout time.Duration
	Debug   DebugConfig
	Logger  *logging.Logger

	schema *jsonschema.Schema
}

// NewInterpreter builds an interpreter over cfg's providers. cfg.PromptFile,
// when set, replaces the built-in prompt.
func NewInterpreter(cfg Config, role, model string, timeout time.Duration) (*Interpreter, error) {
	def, err := interpretPrompt(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = cfg.DefaultTimeout
	}

	interp := &Interpreter{
		Providers: NewProviders(cfg),
		Model:     model,
		Role:      role,
		Prompt:    def,
		Timeout:   timeout,
		Debug:     cfg.Debug,
	}
	if err := interp.compile(); err != nil {
		return nil, err
	}
	return interp, nil
}

// NewInterpreterWithDriver pins drv and model; used by tests and single-provider setups.
func NewInterpreterWithDriver(drv driver.Driver, model string, timeout time.Duration) (*Interpreter, error) {
	def, err := interpretPrompt("")
	if err != nil {
		return nil, err
	}
	interp := &Interpreter{Driver: drv, Model: model, Prompt: def, Timeout: timeout}
	if err := interp.compile(); err != nil {
		return nil, err
	}
	return interp, nil
}

func interpretPrompt(path string) (*prompt.Prompt, error) {
	if path = strings.TrimSpace(path); path != "" {
		return prompt.LoadFile(path)
	}
	return prompt.Embedded(InterpretPromptSlug)
}

func (i *Interpreter) compile() error {
	if i.Prompt == nil {
		return errors.New("interpretation prompt is required")
	}
	if len(i.Prompt.Config.ResponseSchema) == 0 {
		return fmt.Errorf("prompt %s has no response_schema", i.Prompt.Source)
	}
	schema, err := prompt.CompileResponseSchema(i.Prompt.Config.Slug, i.Prompt.Config.ResponseSchema)
	if err != nil {
		return err
	}
	i.schema = schema
	return nil
}

// Interpret converts raw text into a StructuredRequest.
//
// Malformed, partial or out-of-domain replies fail with InterpretationFailed.
// Provider timeouts and transport failures fail with UpstreamUnavailable.
func (i *Interpreter) Interpret(ctx context.Context, text string) (*core.StructuredRequest, error) {
	start := time.Now()
	req, err := i.interpret(ctx, text)

	var logger *logging.Logger
	if i != nil {
		logger = i.Logger
	}

	outcome := "success"
	if err != nil {
		outcome = string(core.KindOf(err))
		if logger != nil {
			logger.Warn("Interpretation failed",
				zap.String("outcome", outcome),
				zap.String("query", safeOneLine(text)),
				zap.Error(err))
		}
	} else if logger != nil {
		logger.Debug("Interpreted request",
			zap.String("kind", string(req.Kind)),
			zap.String("identifier", req.Identifier))
	}
	metrics.RecordInterpret(outcome, time.Since(start))
	return req, err
}

func (i *Interpreter) interpret(ctx context.Context, text string) (*core.StructuredRequest, error) {
	if i == nil || i.schema == nil {
		return nil, core.Errorf(core.ErrUpstreamUnavailable, "query interpreter is not configured")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.Errorf(core.ErrInterpretationFailed, "the request was empty")
	}

	drv, model, err := i.resolve()
	if err != nil {
		return nil, core.WrapError(core.ErrUpstreamUnavailable, err, "no language model is configured")
	}

	driverReq := &driver.Request{
		Model: model,
		Messages: []content.Message{
			content.TextMessage("system", i.Prompt.Config.SystemTemplate),
			content.TextMessage("user", renderUser(i.Prompt, text)),
		},
		ResponseFormat: i.responseFormat(drv),
		Temperature:    promptTemperature(i.Prompt),
		PromptSlug:     i.Prompt.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout())
	defer cancel()

	resp, err := drv.Complete(ctx, driverReq)
	if err != nil {
		return nil, mapProviderError(err)
	}

	raw := stripCodeFences(resp.Text())
	return i.decode(raw)
}

func (i *Interpreter) resolve() (driver.Driver, string, error) {
	if i.Driver != nil {
		if strings.TrimSpace(i.Model) == "" {
			return nil, "", errors.New("model not configured")
		}
		return i.Driver, i.Model, nil
	}
	sel, err := i.Providers.Select(i.Role, i.Model)
	if err != nil {
		return nil, "", err
	}
	return sel.Driver, sel.Model, nil
}

// decode parses and validates the model reply. Every failure here is the
// model's fault and maps to InterpretationFailed.
func (i *Interpreter) decode(raw string) (*core.StructuredRequest, error) {
	if raw == "" {
		return nil, i.failed(errors.New("empty response content"), raw)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, i.failed(fmt.Errorf("decode reply: %w", err), raw)
	}
	if err := i.schema.Validate(doc); err != nil {
		return nil, i.failed(fmt.Errorf("validate reply: %w", err), raw)
	}

	var reply struct {
		EntityKind string            `json:"entity_kind"`
		Identifier string            `json:"identifier"`
		Parameters map[string]string `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, i.failed(fmt.Errorf("decode reply: %w", err), raw)
	}

	kind, err := core.ParseEntityKind(reply.EntityKind)
	if err != nil {
		return nil, i.failed(err, raw)
	}
	identifier := strings.TrimSpace(reply.Identifier)
	if identifier == "" {
		return nil, i.failed(errors.New("identifier is empty"), raw)
	}

	return &core.StructuredRequest{
		Kind:       kind,
		Identifier: identifier,
		Parameters: canonicalParams(reply.Parameters),
	}, nil
}

func (i *Interpreter) failed(cause error, raw string) *core.Error {
	if captured := capturedRaw(i.Debug, raw); captured != nil {
		cause = &RawResponseError{Err: cause, Raw: captured}
	}
	return &core.Error{
		Kind:    core.ErrInterpretationFailed,
		Message: "could not understand the request",
		Cause:   cause,
	}
}

// responseFormat asks OpenAI for schema-constrained output and everyone else
// for a plain JSON object.
func (i *Interpreter) responseFormat(drv driver.Driver) *driver.ResponseFormat {
	if drv != nil && drv.Capabilities().SupportsJSONSchema && drv.Name() == "openai" {
		name := strings.NewReplacer("-", "_", ".", "_").Replace(i.Prompt.Config.Slug)
		return &driver.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &driver.JSONSchema{
				Name:   name,
				Strict: false,
				Schema: i.Prompt.Config.ResponseSchema,
			},
		}
	}
	return &driver.ResponseFormat{Type: "json_object"}
}

func (i *Interpreter) timeout() time.Duration {
	d := i.Timeout
	if d <= 0 {
		d = defaultTimeout
	}
	if d > maxTimeout {
		d = maxTimeout
	}
	return d
}

// canonicalParams lower-cases keys and folds the legacy vs_currency alias.
func canonicalParams(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if v, ok := out["vs_currency"]; ok {
		if _, exists := out["currency"]; !exists {
			out["currency"] = v
		}
		delete(out, "vs_currency")
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stripCodeFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
		// drop the language tag line (```json)
		raw = raw[nl+1:]
	} else {
		raw = strings.TrimPrefix(raw, "json")
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func renderUser(def *prompt.Prompt, text string) string {
	tmpl := def.Config.UserTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = "{{input}}"
	}
	return strings.ReplaceAll(tmpl, "{{input}}", text)
}

func promptTemperature(def *prompt.Prompt) *float64 {
	if def == nil {
		return nil
	}
	switch v := def.Config.ProviderHints["temperature"].(type) {
	case int:
		f := float64(v)
		return &f
	case float64:
		return &v
	default:
		return nil
	}
}
