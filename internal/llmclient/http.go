package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigator/internal/errutil"
	"investigator/pkg/types"
)

// HTTPClient is an OpenAI-compatible chat/completions client, the
// concrete LLMClient implementation spec.md §4.4 requires. Grounded on
// the teacher's HTTPLLMClient (internal/llm/http_client.go), which
// already uses stdlib net/http directly rather than an SDK wrapper —
// kept as-is per DESIGN.md, since no third-party HTTP client in the pack
// fits this concern better.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying *http.Client, e.g. in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithTimeout overrides the request timeout (default 120s).
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// NewHTTPClient returns an HTTPClient targeting baseURL (e.g.
// "https://api.openai.com/v1") with the given API key and model.
func NewHTTPClient(baseURL, apiKey, model string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: log.With().Str("component", "llmclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireMessage is the OpenAI chat/completions message shape.
type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string                    `json:"type"`
	Function wireToolFunctionSchema    `json:"function"`
}

type wireToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type wireRequest struct {
	Model      string        `json:"model"`
	Messages   []wireMessage `json:"messages"`
	Tools      []wireTool    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
	Stream     bool          `json:"stream"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
	Error   *wireError   `json:"error,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Complete sends messages and the tool catalog to the provider and
// decodes its reply into the {content, toolCalls, usage, thinking}
// contract spec.md §4.4 fixes.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*types.CompletionResult, error) {
	wireMsgs := make([]wireMessage, 0, len(messages)+1)
	if opts.SystemPrompt != "" {
		wireMsgs = append(wireMsgs, wireMessage{Role: string(RoleSystem), Content: opts.SystemPrompt})
	}
	for _, m := range messages {
		wireMsgs = append(wireMsgs, wireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		})
	}

	req := wireRequest{
		Model:    c.model,
		Messages: wireMsgs,
		Stream:   false,
	}
	if len(opts.Tools) > 0 {
		req.ToolChoice = "auto"
		req.Tools = make([]wireTool, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			req.Tools = append(req.Tools, wireTool{
				Type: "function",
				Function: wireToolFunctionSchema{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidRequest, err, "marshal completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidRequest, err, "build completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug().Int("messages", len(wireMsgs)).Int("tools", len(opts.Tools)).Msg("sending completion request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindServiceUnavailable, err, "read completion response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode, respBody)
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidRequest, err, "decode completion response")
	}
	if wr.Error != nil {
		return nil, errutil.Newf(errutil.KindInvalidRequest, "provider error: %s", wr.Error.Message)
	}
	if len(wr.Choices) == 0 {
		return nil, errutil.New(errutil.KindServiceUnavailable, "completion response had no choices")
	}

	choice := wr.Choices[0]
	result := &types.CompletionResult{
		Content: choice.Message.Content,
		Usage: &types.Usage{
			InputTokens:  wr.Usage.PromptTokens,
			OutputTokens: wr.Usage.CompletionTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				c.logger.Warn().Str("tool", tc.Function.Name).Err(err).Msg("tool call arguments were not valid JSON")
				args = map[string]interface{}{}
			}
		}
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return result, nil
}

func classifyTransportError(err error) error {
	if ctxErr := err; ctxErr != nil {
		switch {
		case isDeadlineExceeded(ctxErr):
			return errutil.Wrap(errutil.KindTimeout, err, "completion request timed out")
		}
	}
	return errutil.Wrap(errutil.KindServiceUnavailable, err, "completion request failed")
}

func isDeadlineExceeded(err error) bool {
	type deadline interface{ Timeout() bool }
	if de, ok := err.(deadline); ok {
		return de.Timeout()
	}
	return false
}

func classifyStatusError(status int, body []byte) error {
	msg := fmt.Sprintf("completion request failed with status %d: %s", status, string(body))
	switch status {
	case http.StatusTooManyRequests:
		return errutil.New(errutil.KindRateLimit, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errutil.New(errutil.KindAuthError, msg)
	case http.StatusRequestEntityTooLarge:
		return errutil.New(errutil.KindContextOverflow, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errutil.New(errutil.KindServiceUnavailable, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errutil.New(errutil.KindInvalidRequest, msg)
	default:
		return errutil.New(errutil.KindServiceUnavailable, msg)
	}
}
