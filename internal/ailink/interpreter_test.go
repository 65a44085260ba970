package ailink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/prompt"
	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

type stubDriver struct {
	name  string
	reply string
	err   error
	block bool

	last *driver.Request
}

func (s *stubDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	s.last = req
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &driver.Response{Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: s.reply}}}, nil
}

func (s *stubDriver) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubDriver) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsJSONSchema: true}
}

func newTestInterpreter(t *testing.T, drv driver.Driver) *Interpreter {
	t.Helper()
	interp, err := NewInterpreterWithDriver(drv, "test-model", time.Second)
	require.NoError(t, err)
	return interp
}

func TestInterpretCryptoPrice(t *testing.T) {
	drv := &stubDriver{reply: `{"entity_kind":"crypto_price","identifier":"bitcoin","parameters":{"currency":"usd"}}`}
	interp := newTestInterpreter(t, drv)

	req, err := interp.Interpret(context.Background(), "What's the price of Bitcoin in USD?")
	require.NoError(t, err)
	assert.Equal(t, core.KindCryptoPrice, req.Kind)
	assert.Equal(t, "bitcoin", req.Identifier)
	assert.Equal(t, map[string]string{"currency": "usd"}, req.Parameters)

	require.NotNil(t, drv.last)
	require.Len(t, drv.last.Messages, 2)
	assert.Equal(t, "system", drv.last.Messages[0].Role)
	assert.Contains(t, drv.last.Messages[1].Content[0].Text, "What's the price of Bitcoin in USD?")
	assert.Equal(t, "test-model", drv.last.Model)
	assert.Equal(t, "json_object", drv.last.ResponseFormat.Type)
	require.NotNil(t, drv.last.Temperature)
	assert.Zero(t, *drv.last.Temperature)
}

func TestInterpretOpenAIUsesSchemaFormat(t *testing.T) {
	drv := &stubDriver{name: "openai", reply: `{"entity_kind":"supply_chain","identifier":"costa_rica_coffee"}`}
	interp := newTestInterpreter(t, drv)

	_, err := interp.Interpret(context.Background(), "Where does the Costa Rica coffee come from?")
	require.NoError(t, err)
	require.Equal(t, "json_schema", drv.last.ResponseFormat.Type)
	require.NotNil(t, drv.last.ResponseFormat.JSONSchema)
	assert.Equal(t, "interpret_request", drv.last.ResponseFormat.JSONSchema.Name)
}

func TestInterpretStripsCodeFences(t *testing.T) {
	drv := &stubDriver{reply: "```json\n{\"entity_kind\":\"carbon_footprint\",\"identifier\":\"macbook_pro\",\"parameters\":{\"scope\":\"product\"}}\n```"}
	interp := newTestInterpreter(t, drv)

	req, err := interp.Interpret(context.Background(), "carbon footprint of a MacBook Pro")
	require.NoError(t, err)
	assert.Equal(t, core.KindCarbonFootprint, req.Kind)
	assert.Equal(t, "product", req.Parameters["scope"])
}

func TestInterpretCanonicalizesParameters(t *testing.T) {
	drv := &stubDriver{reply: `{"entity_kind":"crypto_price","identifier":"ethereum","parameters":{"VS_Currency":"eur","note":" "}}`}
	interp := newTestInterpreter(t, drv)

	req, err := interp.Interpret(context.Background(), "ethereum in euros")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"currency": "eur"}, req.Parameters)
}

func TestInterpretFailures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"gibberish maps to unknown", `{"entity_kind":"unknown","identifier":""}`},
		{"unsupported kind", `{"entity_kind":"weather","identifier":"london"}`},
		{"missing identifier", `{"entity_kind":"crypto_price"}`},
		{"blank identifier", `{"entity_kind":"crypto_price","identifier":"   "}`},
		{"extra field", `{"entity_kind":"crypto_price","identifier":"bitcoin","confidence":0.9}`},
		{"non json", `Sure! Bitcoin is a cryptocurrency.`},
		{"empty reply", ``},
		{"non string parameter", `{"entity_kind":"crypto_price","identifier":"bitcoin","parameters":{"currency":1}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			interp := newTestInterpreter(t, &stubDriver{reply: tc.reply})
			req, err := interp.Interpret(context.Background(), "asdkjhaskjh")
			require.Error(t, err)
			assert.Nil(t, req)
			assert.Equal(t, core.ErrInterpretationFailed, core.KindOf(err))
		})
	}
}

func TestInterpretEmptyInput(t *testing.T) {
	drv := &stubDriver{reply: `{"entity_kind":"crypto_price","identifier":"bitcoin"}`}
	interp := newTestInterpreter(t, drv)

	_, err := interp.Interpret(context.Background(), "   ")
	require.Equal(t, core.ErrInterpretationFailed, core.KindOf(err))
	assert.Nil(t, drv.last)
}

func TestInterpretProviderErrorsAreUpstream(t *testing.T) {
	cases := []error{
		&driver.ProviderError{Provider: "stub", StatusCode: 429, Message: "slow down"},
		&driver.ProviderError{Provider: "stub", StatusCode: 503, Message: "down"},
		errors.New("connection refused"),
	}
	for _, cause := range cases {
		interp := newTestInterpreter(t, &stubDriver{err: cause})
		_, err := interp.Interpret(context.Background(), "price of bitcoin")
		require.Error(t, err)
		assert.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err), cause.Error())
	}
}

func TestInterpretTimeout(t *testing.T) {
	interp, err := NewInterpreterWithDriver(&stubDriver{block: true}, "test-model", 20*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = interp.Interpret(context.Background(), "price of bitcoin")
	require.Error(t, err)
	assert.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestInterpretRawCapture(t *testing.T) {
	interp := newTestInterpreter(t, &stubDriver{reply: `{"entity_kind":"unknown","identifier":""}`})
	interp.Debug = DebugConfig{CaptureRawEnabled: true, CaptureRawMaxBytes: 16}

	_, err := interp.Interpret(context.Background(), "asdkjhaskjh")
	require.Error(t, err)

	var rawErr *RawResponseError
	require.ErrorAs(t, err, &rawErr)
	assert.Len(t, rawErr.Raw, 16)
}

func TestInterpretWithoutModel(t *testing.T) {
	interp, err := NewInterpreterWithDriver(&stubDriver{}, "", time.Second)
	require.NoError(t, err)

	_, err = interp.Interpret(context.Background(), "price of bitcoin")
	assert.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
}

func TestInterpretNilInterpreter(t *testing.T) {
	var interp *Interpreter
	_, err := interp.Interpret(context.Background(), "price of bitcoin")
	assert.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
}

func TestNewInterpreterResolvesProvider(t *testing.T) {
	interp, err := NewInterpreter(Config{
		Providers: map[string]ProviderInstanceConfig{
			"p": {
				Enabled:     true,
				AIProvider:  "gemini",
				Models:      map[string]string{"default": "gemini-2.0-flash"},
				Credentials: []CredentialConfig{{Enabled: true}},
			},
		},
	}, "", "", 0)
	require.NoError(t, err)

	// no api key configured
	_, err = interp.Interpret(context.Background(), "price of bitcoin")
	assert.Equal(t, core.ErrUpstreamUnavailable, core.KindOf(err))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`  {"a":1} `))
}

func TestNewInterpreterPromptFile(t *testing.T) {
	def, err := prompt.Embedded(InterpretPromptSlug)
	require.NoError(t, err)

	custom := "---\nslug: interpret-request-terse\nresponse_schema:\n" +
		"  type: object\n  required: [entity_kind, identifier]\n" +
		"  properties:\n    entity_kind: {type: string}\n    identifier: {type: string, minLength: 1}\n" +
		"---\nAnswer with JSON only.\n"
	path := filepath.Join(t.TempDir(), "interpret.md")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	interp, err := NewInterpreter(Config{PromptFile: path}, "", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "interpret-request-terse", interp.Prompt.Config.Slug)
	assert.NotEqual(t, def.Config.SystemTemplate, interp.Prompt.Config.SystemTemplate)

	noSchema := filepath.Join(t.TempDir(), "bare.md")
	require.NoError(t, os.WriteFile(noSchema, []byte("---\nslug: bare\n---\nHello."), 0o600))
	_, err = NewInterpreter(Config{PromptFile: noSchema}, "", "", time.Second)
	require.ErrorContains(t, err, "no response_schema")

	_, err = NewInterpreter(Config{PromptFile: filepath.Join(t.TempDir(), "missing.md")}, "", "", time.Second)
	require.Error(t, err)
}
