// Package types holds the data shapes shared across the investigator,
// context manager, synthesizer, and orchestrator packages.
package types

import (
	"time"

	"github.com/rs/zerolog"
)

// MessageRole identifies who produced a Message. The core only ever
// emits "user" and "assistant" roles onto the live conversation; "tool"
// results are folded into user messages per the investigator's loop
// (see internal/investigator).
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MessageMetadata carries the optional per-message annotations the
// context manager and investigator use to decide compressibility and
// synthesis filtering.
type MessageMetadata struct {
	ToolName     string `json:"toolName,omitempty"`
	Source       string `json:"source,omitempty"`
	Compressible *bool  `json:"compressible,omitempty"`
}

// Message is one turn of the live conversation. Key is stable across
// compression; Content holds either the original text or, once
// Compressed is true, a placeholder carrying the recall key.
type Message struct {
	Key            string          `json:"key"`
	Role           MessageRole     `json:"role"`
	Content        string          `json:"content"`
	Tokens         int             `json:"tokens"`
	Compressed     bool            `json:"compressed"`
	OriginalTokens int             `json:"originalTokens,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Metadata       MessageMetadata `json:"metadata"`
}

// SynthesisMessage is the projection of a Message handed to the
// Synthesizer after the synthesis filter has run.
type SynthesisMessage struct {
	Key        string      `json:"key"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolName   string      `json:"toolName,omitempty"`
	Source     string      `json:"source,omitempty"`
	Compressed bool        `json:"compressed"`
}

// BudgetConfig is the immutable token-budget policy for a session.
type BudgetConfig struct {
	ContextWindow        int `json:"contextWindow"`
	ReservedForSynthesis int `json:"reservedForSynthesis"`
	ReservedForRecalls   int `json:"reservedForRecalls"`
	ReservedForNextSteps int `json:"reservedForNextSteps"`
}

// DefaultBudgetConfig mirrors spec.md §6's configuration defaults.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		ContextWindow:        262144,
		ReservedForSynthesis: 30000,
		ReservedForRecalls:   20000,
		ReservedForNextSteps: 15000,
	}
}

// BudgetBreakdown itemizes where budget is currently spent.
type BudgetBreakdown struct {
	SystemPrompt int `json:"systemPrompt"`
	Messages     int `json:"messages"`
	Reserved     int `json:"reserved"`
}

// BudgetState is the live, derived view of a session's token budget.
type BudgetState struct {
	Total     int             `json:"total"`
	Used      int             `json:"used"`
	Available int             `json:"available"`
	Breakdown BudgetBreakdown `json:"breakdown"`
}

// ComputeBudget derives a BudgetState from the static config and the
// current system-prompt/message token counts.
func ComputeBudget(cfg BudgetConfig, systemPromptTokens, messageTokens int) BudgetState {
	reserved := cfg.ReservedForSynthesis + cfg.ReservedForRecalls + cfg.ReservedForNextSteps
	used := systemPromptTokens + messageTokens
	available := cfg.ContextWindow - used - reserved
	if available < 0 {
		available = 0
	}
	return BudgetState{
		Total:     cfg.ContextWindow,
		Used:      used,
		Available: available,
		Breakdown: BudgetBreakdown{
			SystemPrompt: systemPromptTokens,
			Messages:     messageTokens,
			Reserved:     reserved,
		},
	}
}

// Session is the live, mutable conversation state for one investigation
// run. It is owned exclusively by the context manager; every other
// component mutates it only through that manager's API.
type Session struct {
	ID          string            `json:"id"`
	Query       string            `json:"query"`
	StartedAt   time.Time         `json:"startedAt"`
	WorkingDir  string            `json:"workingDir"`
	Messages    []*Message        `json:"messages"`
	TotalTokens int               `json:"totalTokens"`
	Storage     SessionStorageRef `json:"storage"`
	Budget      BudgetConfig      `json:"budget"`

	// Logger is a working-directory-scoped sub-logger components may use
	// for session-level diagnostics. It is never persisted.
	Logger zerolog.Logger `json:"-"`
}

// SessionStorageRef records where each preserved message's original
// content lives on disk.
type SessionStorageRef struct {
	Messages map[string]string `json:"messages"`
}

// NewSessionStorageRef returns an initialized, empty storage ref.
func NewSessionStorageRef() SessionStorageRef {
	return SessionStorageRef{Messages: make(map[string]string)}
}
