package investigator

import (
	"regexp"
	"strings"
)

// hallucinationPatterns are the fabricated-tool-result markers spec.md
// §4.5 Layer 3 scrubs for: text the model produced that impersonates a
// real tool_result turn without ever calling a tool.
var hallucinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)</user>`),
	regexp.MustCompile(`工具\s*"[^"]+"\s*执行(成功|失败)`),
	regexp.MustCompile(`(?i)Tool\s*"[^"]+"\s*(executed|completed|failed)`),
	regexp.MustCompile(`(?m)^File:\s+\S+\nLines:\s+\d+-\d+`),
}

// scrubHallucinations reports whether content contains a fabricated
// tool-result marker and, if so, the content truncated to just before
// the first match. Idempotent: running it on already-clean text, or
// twice in a row, yields the same result (spec.md §8 invariant 7).
func scrubHallucinations(content string) (cleaned string, found bool) {
	firstIndex := -1
	for _, pattern := range hallucinationPatterns {
		loc := pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		if firstIndex == -1 || loc[0] < firstIndex {
			firstIndex = loc[0]
		}
	}
	if firstIndex == -1 {
		return content, false
	}
	return strings.TrimSpace(content[:firstIndex]), true
}
