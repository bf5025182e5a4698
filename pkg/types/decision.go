package types

import "time"

// DecisionKind enumerates the closed set of Decision variants a model
// turn can be classified into. Treat this as an exhaustive switch
// everywhere a Decision is consumed.
type DecisionKind string

const (
	DecisionToolCall             DecisionKind = "tool_call"
	DecisionDone                 DecisionKind = "done"
	DecisionThinking             DecisionKind = "thinking"
	DecisionInvalidToolCall      DecisionKind = "invalid_tool_call"
	DecisionRequiresSelfCheck    DecisionKind = "requires_self_check"
	DecisionHallucinationDetected DecisionKind = "hallucination_detected"
)

// Decision is the classified intent of a single model turn. Exactly one
// of the payload fields is meaningful, selected by Kind; the zero value
// of the others is left unset rather than modeled as separate structs
// so callers can switch on Kind without type assertions.
type Decision struct {
	Kind DecisionKind

	// tool_call
	ToolName string
	ToolArgs map[string]interface{}

	// done
	Result string

	// thinking / invalid_tool_call / requires_self_check / hallucination_detected
	Content string

	// invalid_tool_call only
	DetectedToolName string

	// hallucination_detected only
	CleanedContent string
}

// ToolCall is an LLM-emitted structured tool invocation.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Usage reports token accounting for one LLM turn, as returned by the
// provider.
type Usage struct {
	InputTokens  int  `json:"inputTokens"`
	OutputTokens int  `json:"outputTokens"`
	CacheHit     bool `json:"cacheHit,omitempty"`
	CachedTokens int  `json:"cachedTokens,omitempty"`
}

// CompletionResult is what an LLMClient.Complete call returns.
type CompletionResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	Thinking  string     `json:"thinking,omitempty"`
}

// LLMTurnMessage is the debug-record projection of one conversation
// message fed to the model for a turn.
type LLMTurnMessage struct {
	Key        string `json:"key"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Compressed bool   `json:"compressed"`
}

// LLMTurnInput captures everything sent to the model for one turn.
type LLMTurnInput struct {
	SystemPrompt string            `json:"systemPrompt"`
	Messages     []LLMTurnMessage  `json:"messages"`
	ToolSchemas  []map[string]any  `json:"toolSchemas,omitempty"`
}

// LLMTurnOutput captures everything the model returned for one turn.
type LLMTurnOutput struct {
	Content   string     `json:"content"`
	Thinking  string      `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ToolExecutionRecord captures the outcome of executing a decision's
// tool call, when one occurred.
type ToolExecutionRecord struct {
	ToolName string `json:"toolName"`
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Duration time.Duration `json:"duration"`
}

// LLMTurn is the persisted debug record for one model interaction.
type LLMTurn struct {
	Agent     string               `json:"agent"` // "investigator" | "synthesizer" | "main"
	Iteration int                  `json:"iteration"`
	Input     LLMTurnInput         `json:"input"`
	Output    LLMTurnOutput        `json:"output"`
	Usage     *Usage               `json:"usage,omitempty"`
	Decision  Decision             `json:"-"`
	DecisionKind DecisionKind      `json:"decisionKind"`
	Tool      *ToolExecutionRecord `json:"tool,omitempty"`
	StartedAt time.Time            `json:"startedAt"`
	Duration  time.Duration        `json:"duration"`
}
