package contextmgr

import (
	"strings"

	"investigator/pkg/types"
)

// failurePhrases are the literal substrings spec.md §4.2's synthesis
// filter drops messages for, regardless of tool.
var failurePhrases = []string{"执行失败", "错误:"}

// droppedSynthesisTools are tool results excluded from synthesis even
// on success — their content is useful to the investigator's own loop
// but adds little signal to the final report.
var droppedSynthesisTools = map[string]bool{
	"list_dir": true,
	"ripgrep":  true,
}

// GetMessagesForSynthesis projects the live conversation into the
// filtered view the Synthesizer consumes.
func (m *Manager) GetMessagesForSynthesis() []types.SynthesisMessage {
	if m.session == nil {
		return nil
	}
	var out []types.SynthesisMessage
	for _, msg := range m.session.Messages {
		if containsFailurePhrase(msg.Content) {
			continue
		}
		if droppedSynthesisTools[msg.Metadata.ToolName] {
			continue
		}
		out = append(out, types.SynthesisMessage{
			Key:        msg.Key,
			Role:       msg.Role,
			Content:    msg.Content,
			ToolName:   msg.Metadata.ToolName,
			Source:     msg.Metadata.Source,
			Compressed: msg.Compressed,
		})
	}
	return out
}

func containsFailurePhrase(content string) bool {
	for _, phrase := range failurePhrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}
