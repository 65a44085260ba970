package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/content"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
)

func userMessage(text string) []content.Message {
	return []content.Message{content.TextMessage("user", text)}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresModel(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{Messages: userMessage("hi")})
	require.ErrorContains(t, err, "model is required")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotFormat map[string]any
		gotUser   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		gotFormat, _ = payload["response_format"].(map[string]any)
		gotUser, _ = payload["user"].(string)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"entity_kind\":\"crypto_price\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "test-model",
		Messages: []content.Message{
			content.TextMessage("system", "sys"),
			content.TextMessage("user", "usr"),
		},
		ResponseFormat: &driver.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &driver.JSONSchema{Name: "interpret_request", Strict: true, Schema: map[string]any{"type": "object"}},
		},
		Metadata: map[string]string{"requester": "tester"},
	})
	require.NoError(t, err)

	require.Equal(t, "/chat/completions", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "json_schema", gotFormat["type"])
	require.Equal(t, "tester", gotUser)

	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.True(t, strings.Contains(resp.Text(), "crypto_price"))
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	require.Contains(t, err.Error(), "nope")
}

func TestClientSurfacesRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","refusal":"cannot help"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.ErrorContains(t, err, "cannot help")
}

func TestClientWritesTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	cleanup, err := driver.EnableTracing(path)
	require.NoError(t, err)

	client := NewClient(server.URL, "test-key")
	_, err = client.Complete(context.Background(), &driver.Request{Model: "trace-model", Messages: userMessage("hi")})
	require.NoError(t, err)
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry driver.TraceEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	require.Equal(t, "openai", entry.Provider)
	require.Equal(t, "trace-model", entry.Model)
	require.Equal(t, http.StatusOK, entry.Status)
}
