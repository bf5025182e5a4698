package builtin

import (
	"context"

	"investigator/internal/tools"
)

// ThinkTool is a pure reflection tool: it has no side effects and
// returns exactly what it was given. Calling it is how the Investigator
// satisfies the self-check gate (spec.md §4.5) before a done decision is
// accepted — the LLM must have explicitly reasoned about whether it has
// enough evidence, not just asserted completion. Grounded on the
// teacher's ThinkTool (internal/tools/builtin/think_tools.go), trimmed
// to drop its journaling/memory side effects.
type ThinkTool struct{}

// NewThinkTool returns a ThinkTool. It holds no state.
func NewThinkTool() *ThinkTool { return &ThinkTool{} }

func (t *ThinkTool) Name() string { return "think" }

func (t *ThinkTool) Description() string {
	return "Record a reasoning step without taking any action. Use this to evaluate whether you have enough evidence before concluding."
}

func (t *ThinkTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"thought": map[string]interface{}{
				"type":        "string",
				"description": "The reasoning to record",
			},
		},
		"required": []string{"thought"},
	}
}

func (t *ThinkTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	thought, _ := args["thought"].(string)
	return &tools.Result{
		Content: thought,
		Data: map[string]interface{}{
			"thought": thought,
		},
	}, nil
}
