package investigator

import (
	"fmt"
	"strings"

	"investigator/internal/tools"
)

// systemPromptTemplate is the fixed instruction block spec.md §4.5 step 1
// requires be identical across iterations within a run (so a provider's
// prefix cache, if any, can be exploited). Grounded on the teacher's
// LightPromptBuilder.BuildTaskPrompt fallback template
// (internal/agent/react_agent.go), expanded with the decision-shaping
// vocabulary (the completion sentinel, the self-check gate, the
// tool-calling requirement) this spec's Investigator actually depends on.
const systemPromptTemplate = `You are an investigator agent. Your job is to answer the user's question about the code in the current working directory by gathering evidence with the available tools, then concluding.

Rules:
- Always call tools through the function-calling interface. Never describe a tool call in prose.
- Before you conclude, you must call the "think" tool at least once to check whether your evidence is sufficient.
- When you are done, include the literal marker [INVESTIGATION_COMPLETE] in your final response, followed by your findings.
- Do not fabricate tool output. Only report what a tool actually returned.
- If a tool result was compressed, call recall_detail with its key to see the original content.`

// recallDetailSchema is the wire schema for the recall_detail pseudo-tool:
// not a registry.Tool (it has no side effects on the filesystem, only on
// ContextManager state), but still a name the model must be able to call
// through the same function-calling interface (spec.md §4.5 step 5).
func recallDetailSchema() map[string]interface{} {
	return map[string]interface{}{
		"name":        "recall_detail",
		"description": "Retrieve the original, uncompressed content of a previously compressed tool result by its recall key.",
		"parameters": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "The recall key, e.g. from a [COMPRESSED:<key>] placeholder.",
				},
			},
			"required": []string{"key"},
		},
	}
}

// buildSystemPrompt concatenates the fixed template with the current
// tool catalog (spec.md §4.5 step 1).
func buildSystemPrompt(registry *tools.Registry) string {
	var b strings.Builder
	b.WriteString(systemPromptTemplate)
	b.WriteString("\n\nAvailable tools:\n")
	for _, schema := range registry.Schemas() {
		name, _ := schema["name"].(string)
		desc, _ := schema["description"].(string)
		fmt.Fprintf(&b, "- %s: %s\n", name, desc)
	}
	recall := recallDetailSchema()
	fmt.Fprintf(&b, "- %s: %s\n", recall["name"], recall["description"])
	return b.String()
}
