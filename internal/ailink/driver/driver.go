package driver

import (
	"context"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
)

// Driver defines the interface for LLM completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "openai").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsJSONSchema bool
	SupportsStreaming  bool
}

// ResponseFormat specifies the expected response format.
type ResponseFormat struct {
	Type       string      `json:"type"` // "text", "json_object", "json_schema"
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is a named schema for structured output.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
	Metadata       map[string]string
}

// Response is a provider-agnostic completion response.
type Response struct {
	Content      []content.ContentBlock
	FinishReason string
	Usage        *Usage
}

// Text concatenates the text blocks of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var out string
	for _, block := range r.Content {
		if block.Type == content.ContentTypeText || block.Type == content.ContentTypeJSON {
			out += block.Text
		}
	}
	return out
}
