package investigator

import (
	"encoding/json"

	"investigator/pkg/types"
)

// isStuck reports whether the last threshold decisions are all tool
// calls to the same tool with identically-serialized arguments
// (spec.md §8 invariant 6). encoding/json sorts object keys when
// marshaling a map, so two equal argument maps always serialize
// identically regardless of insertion order.
func isStuck(decisions []types.Decision, threshold int) bool {
	if len(decisions) < threshold {
		return false
	}
	tail := decisions[len(decisions)-threshold:]

	name := tail[0].ToolName
	args, err := json.Marshal(tail[0].ToolArgs)
	if err != nil {
		return false
	}

	for _, d := range tail {
		if d.Kind != types.DecisionToolCall || d.ToolName != name {
			return false
		}
		candidate, err := json.Marshal(d.ToolArgs)
		if err != nil || string(candidate) != string(args) {
			return false
		}
	}
	return true
}
