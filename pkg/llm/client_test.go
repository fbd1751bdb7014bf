package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "SELECT 1"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&Config{Endpoint: server.URL, Model: "gpt-4o-mini", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system rules", "the question")

	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system rules", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "the question", got.Messages[1].Content)
}

func TestOpenAIClient_Complete_ClassifiesHTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, ErrorTypeAuth, false},
		{"rate limited", http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{"unavailable", http.StatusServiceUnavailable, ErrorTypeEndpoint, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "test_error"}}`))
			}))
			defer server.Close()

			client, err := NewOpenAIClient(&Config{Endpoint: server.URL, Model: "gpt-4o-mini", APIKey: "k"}, zap.NewNop())
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "s", "u")

			require.Error(t, err)
			var llmErr *Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.wantType, llmErr.Type)
			assert.Equal(t, tt.retryable, llmErr.Retryable)
			assert.Equal(t, tt.status, llmErr.StatusCode)
			assert.Equal(t, "gpt-4o-mini", llmErr.Model)
		})
	}
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&Config{Endpoint: server.URL, Model: "m", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")

	require.Error(t, err)
	assert.Equal(t, ErrorTypeResponse, GetErrorType(err))
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		System   string `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "SELECT 2"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL, Model: "claude-test", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system rules", "the question")

	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "system rules", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}
