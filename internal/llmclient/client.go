// Package llmclient implements the LLMClient contract spec.md §4.4
// consumes: a provider-agnostic Complete call returning text, structured
// tool calls, and usage. Grounded on the teacher's internal/llm package
// (http_client.go, types.go), trimmed to the one call the Investigator
// and Synthesizer actually use — no streaming, no multi-model routing,
// no response cache.
package llmclient

import (
	"context"

	"investigator/pkg/types"
)

// MessageRole mirrors the OpenAI-compatible chat roles a Message may
// carry when sent to the provider.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of the conversation sent to Complete. It is the
// wire-shaped sibling of types.Message: Complete takes plain role/content
// pairs, not the session's richer Message record.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCallID string
	Name       string
}

// ToolSchema is the wire shape of one tool's JSON-Schema parameters, as
// produced by tools.Registry.Schemas.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// CompleteOptions carries the optional pieces of a Complete call.
type CompleteOptions struct {
	SystemPrompt string
	Tools        []ToolSchema
}

// Client is the provider-agnostic interface the Investigator and
// Synthesizer depend on. Errors are reported with a typed errutil.Kind
// (rate_limit, timeout, service_unavailable, invalid_request,
// auth_error, context_overflow), per spec.md §7.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*types.CompletionResult, error)
}
