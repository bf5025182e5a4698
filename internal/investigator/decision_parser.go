package investigator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"investigator/pkg/types"
)

const completionSentinel = "[INVESTIGATION_COMPLETE]"

// textToolCallPatterns rescue a (toolName, argumentsJSON) pair from free
// text when the provider didn't return a structured tool call, tried in
// order per spec.md §4.5 Layer 2.
var (
	chineseToolCallPattern = regexp.MustCompile(`(?s)我将使用\s*([A-Za-z_][A-Za-z0-9_]*)\s*工具[:：]?\s*(\{.*)`)
	englishToolCallPattern = regexp.MustCompile(`(?is)I(?:'ll| will) use (?:the )?([A-Za-z_][A-Za-z0-9_]*)\s*tool[:]?\s*(\{.*)`)
	fencedToolCallPattern  = regexp.MustCompile("(?s)([A-Za-z_][A-Za-z0-9_]*)\\s*\\n?```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// invalidToolCallPatterns match an intent to call a tool expressed only
// in prose, with no parseable JSON payload to rescue.
var invalidToolCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`我将使用\s*(\S+)\s*工具`),
	regexp.MustCompile(`(?i)I'll use the (\S+) tool`),
	regexp.MustCompile(`使用\s*(\S+)\s*工[具支]`),
}

var thinkingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)let me\b`),
	regexp.MustCompile(`(?i)I'll (check|look|investigate|examine|explore)`),
	regexp.MustCompile(`需要`),
	regexp.MustCompile(`让我`),
	regexp.MustCompile(`我(来|需要|应该)`),
}

// ParseDecision classifies one model turn into a Decision, per the
// three-layer algorithm spec.md §4.5 specifies. history is the
// decisions already recorded for this run, used by the self-check gate.
func ParseDecision(resp *types.CompletionResult, history []types.Decision) types.Decision {
	if len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0]
		return types.Decision{Kind: types.DecisionToolCall, ToolName: tc.Name, ToolArgs: tc.Arguments}
	}

	if name, args, ok := rescueTextToolCall(resp.Content); ok {
		return types.Decision{Kind: types.DecisionToolCall, ToolName: name, ToolArgs: args}
	}

	if cleaned, found := scrubHallucinations(resp.Content); found {
		return types.Decision{Kind: types.DecisionHallucinationDetected, Content: resp.Content, CleanedContent: cleaned}
	}

	if strings.Contains(resp.Content, completionSentinel) {
		if lastDecisionWasThink(history) {
			return types.Decision{Kind: types.DecisionDone, Result: resp.Content}
		}
		return types.Decision{Kind: types.DecisionRequiresSelfCheck, Content: resp.Content}
	}

	for _, pattern := range invalidToolCallPatterns {
		if m := pattern.FindStringSubmatch(resp.Content); m != nil {
			return types.Decision{Kind: types.DecisionInvalidToolCall, Content: resp.Content, DetectedToolName: m[1]}
		}
	}

	for _, pattern := range thinkingPatterns {
		if pattern.MatchString(resp.Content) {
			return types.Decision{Kind: types.DecisionThinking, Content: resp.Content}
		}
	}

	return types.Decision{Kind: types.DecisionDone, Result: resp.Content}
}

func lastDecisionWasThink(history []types.Decision) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == types.DecisionToolCall {
			return history[i].ToolName == "think"
		}
	}
	return false
}

// rescueTextToolCall tries the three Layer 2 patterns in order,
// repairing and parsing the captured JSON payload.
func rescueTextToolCall(content string) (name string, args map[string]interface{}, ok bool) {
	for _, pattern := range []*regexp.Regexp{chineseToolCallPattern, englishToolCallPattern, fencedToolCallPattern} {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		candidateName, candidateJSON := m[1], m[2]
		parsed, parseErr := parseRepairedJSON(candidateJSON)
		if parseErr != nil {
			continue
		}
		return candidateName, parsed, true
	}
	return "", nil, false
}

// parseRepairedJSON repairs a malformed JSON fragment (smart quotes,
// trailing commas, unquoted keys, Chinese colons, trailing junk) and
// decodes it into a map.
func parseRepairedJSON(fragment string) (map[string]interface{}, error) {
	candidate := truncateAtLastBrace(fragment)
	candidate = normalizeJSONPunctuation(candidate)

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		candidate = repaired
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyPattern    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

func normalizeJSONPunctuation(s string) string {
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", `"`, "’", `"`,
		"：", ":",
	)
	s = replacer.Replace(s)
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	s = unquotedKeyPattern.ReplaceAllString(s, `$1"$2":`)
	return s
}

func truncateAtLastBrace(s string) string {
	if idx := strings.LastIndex(s, "}"); idx != -1 {
		return s[:idx+1]
	}
	return s
}
