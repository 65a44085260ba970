package openai

import (
	"fmt"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
)

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toDriverResponse(resp *chatCompletionResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" && choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	contentBlock := content.ContentBlock{Type: content.ContentTypeText, Text: choice.Message.Content}
	response := &driver.Response{
		Content:      []content.ContentBlock{contentBlock},
		FinishReason: choice.FinishReason,
	}

	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}
