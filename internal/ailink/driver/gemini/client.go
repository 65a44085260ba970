package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
)

// Client implements the Gemini driver on top of the genai SDK.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	once   sync.Once
	client *genai.Client
	err    error
}

// NewClient returns a client; the SDK client is created on first use.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsJSONSchema: true}
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     c.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.HTTPClient,
		}
		if c.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
		}
		c.client, c.err = genai.NewClient(ctx, cfg)
		if c.err != nil {
			c.err = fmt.Errorf("create genai client: %w", c.err)
		}
	})
	return c.client, c.err
}

// Complete maps the request onto GenerateContent. System messages become the
// system instruction; the rest are sent as conversation turns.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	contents, system, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	// Schemas are validated by the caller; Gemini only needs the MIME type.
	if rf := req.ResponseFormat; rf != nil && rf.Type != "" && rf.Type != "text" {
		config.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	entry := driver.TraceEntry{
		Provider:  c.Name(),
		Prompt:    req.PromptSlug,
		Model:     req.Model,
		Endpoint:  "models/" + req.Model + ":generateContent",
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
		driver.Trace(entry)
		return nil, mapError(err)
	}
	if raw, mErr := json.Marshal(resp); mErr == nil {
		entry.Response = raw
	}
	driver.Trace(entry)

	return toDriverResponse(resp)
}

func convertMessages(messages []content.Message) ([]*genai.Content, *genai.Content, error) {
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("messages are required")
	}

	var (
		contents []*genai.Content
		system   []string
	)
	for _, msg := range messages {
		text, err := joinText(msg.Content)
		if err != nil {
			return nil, nil, err
		}
		switch strings.ToLower(msg.Role) {
		case "system":
			system = append(system, text)
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user message is required")
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, instruction, nil
}

func joinText(blocks []content.ContentBlock) (string, error) {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type != content.ContentTypeText && block.Type != content.ContentTypeJSON {
			return "", fmt.Errorf("unsupported content type: %s", block.Type)
		}
		parts = append(parts, block.Text)
	}
	return strings.Join(parts, "\n"), nil
}

func toDriverResponse(resp *genai.GenerateContentResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response candidates")
	}

	out := &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: resp.Text()}},
		FinishReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

// mapError turns SDK API errors into driver.ProviderError so callers can
// classify them by status code.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
