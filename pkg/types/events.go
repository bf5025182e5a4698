package types

// EventType enumerates the event bus's closed set of produced event
// kinds (spec.md §6).
type EventType string

const (
	EventSessionStart          EventType = "session_start"
	EventSessionEnd            EventType = "session_end"
	EventIterationStart        EventType = "iteration_start"
	EventIterationEnd          EventType = "iteration_end"
	EventThinking              EventType = "thinking"
	EventToolCall              EventType = "tool_call"
	EventToolResult            EventType = "tool_result"
	EventDone                  EventType = "done"
	EventError                 EventType = "error"
	EventCompression           EventType = "compression"
	EventRecall                EventType = "recall"
	EventMessagesDiscarded     EventType = "messages_discarded"
	EventPhaseStart            EventType = "phase_start"
	EventPhaseEnd              EventType = "phase_end"
	EventSynthesisStart        EventType = "synthesis_start"
	EventSynthesisComplete     EventType = "synthesis_complete"
	EventSynthesisError        EventType = "synthesis_error"
	EventOrchestratorStart     EventType = "orchestrator_start"
	EventOrchestratorComplete  EventType = "orchestrator_complete"
	EventOrchestratorError     EventType = "orchestrator_error"
)

// Event is one item on the event bus. Payload holds the type-specific
// fields listed informally in spec.md §6; consumers that need a typed
// view should type-assert the field they expect by convention with the
// Type value (e.g. Payload["iteration"].(int) for iteration_start).
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
