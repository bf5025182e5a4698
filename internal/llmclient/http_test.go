package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/internal/errutil"
)

func TestCompleteDecodesContentAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-test", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wireResponse{
			Choices: []wireChoice{{Message: wireMessage{Role: "assistant", Content: "the answer is 42"}}},
			Usage:   wireUsage{PromptTokens: 10, CompletionTokens: 5},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-test")
	result, err := client.Complete(context.Background(), []Message{
		{Role: RoleUser, Content: "what is the answer?"},
	}, CompleteOptions{SystemPrompt: "be concise"})

	require.NoError(t, err)
	require.Equal(t, "the answer is 42", result.Content)
	require.Equal(t, 10, result.Usage.InputTokens)
	require.Equal(t, 5, result.Usage.OutputTokens)
}

func TestCompleteDecodesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			Choices: []wireChoice{{Message: wireMessage{
				Role: "assistant",
				ToolCalls: []wireToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: wireToolFunction{
						Name:      "read_file",
						Arguments: `{"path":"main.go"}`,
					},
				}},
			}}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-test")
	result, err := client.Complete(context.Background(), nil, CompleteOptions{
		Tools: []ToolSchema{{Name: "read_file", Parameters: map[string]interface{}{"type": "object"}}},
	})

	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 1)
	require.Equal(t, "read_file", result.ToolCalls[0].Name)
	require.Equal(t, "main.go", result.ToolCalls[0].Arguments["path"])
}

func TestCompleteMapsRateLimitStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-test")
	_, err := client.Complete(context.Background(), nil, CompleteOptions{})

	require.Error(t, err)
	require.Equal(t, errutil.KindRateLimit, errutil.KindOf(err))
}

func TestCompleteMapsAuthErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-test")
	_, err := client.Complete(context.Background(), nil, CompleteOptions{})

	require.Error(t, err)
	require.Equal(t, errutil.KindAuthError, errutil.KindOf(err))
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{Choices: nil})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gpt-test")
	_, err := client.Complete(context.Background(), nil, CompleteOptions{})

	require.Error(t, err)
	require.Equal(t, errutil.KindServiceUnavailable, errutil.KindOf(err))
}
