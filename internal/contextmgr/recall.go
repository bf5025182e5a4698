package contextmgr

import (
	"fmt"
	"strings"

	"investigator/internal/errutil"
	"investigator/pkg/types"
)

// RecallResult is the structured outcome of a Recall call. Recall never
// raises a run-terminating error except when no session is active; a
// missing key, an uncompressed message, or an original that cannot be
// loaded from storage are reported as a result with Success=false/true
// and an explanatory Hint, not an error, so the
// Investigator can feed the outcome back to the model.
type RecallResult struct {
	Success bool
	Content string
	Tokens  int
	Source  string
	Hint    string
}

// Recall resolves a previously compressed message's original content by
// key. It is read-only: it never mutates totalTokens, messages, or the
// budget (spec.md §8 invariant 9).
func (m *Manager) Recall(key string) (*RecallResult, error) {
	if m.session == nil {
		return nil, errutil.New(errutil.KindNoSession, "no active session")
	}

	msg := m.findMessage(key)
	if msg == nil {
		hint := "unknown recall key"
		if compressed := m.compressedKeys(5); len(compressed) > 0 {
			hint = fmt.Sprintf("unknown recall key; currently compressed keys: %s", strings.Join(compressed, ", "))
		}
		result := &RecallResult{Success: false, Hint: hint}
		m.bus.Emit(types.EventRecall, map[string]interface{}{"key": key, "success": false, "tokensRecalled": 0})
		return result, nil
	}

	if !msg.Compressed {
		result := &RecallResult{
			Success: true,
			Content: msg.Content,
			Tokens:  msg.Tokens,
			Source:  "live",
			Hint:    "message is not compressed",
		}
		m.bus.Emit(types.EventRecall, map[string]interface{}{"key": key, "success": true, "tokensRecalled": msg.Tokens})
		return result, nil
	}

	original, err := m.store.LoadMessageContent(m.session.ID, key)
	if err != nil {
		m.bus.Emit(types.EventRecall, map[string]interface{}{"key": key, "success": false, "tokensRecalled": 0})
		return &RecallResult{Success: false, Hint: fmt.Sprintf("load original message content: %v", err)}, nil
	}

	result := &RecallResult{
		Success: true,
		Content: original.Content,
		Tokens:  original.Tokens,
		Source:  "storage",
	}
	m.bus.Emit(types.EventRecall, map[string]interface{}{"key": key, "success": true, "tokensRecalled": original.Tokens})
	return result, nil
}

func (m *Manager) findMessage(key string) *types.Message {
	for _, msg := range m.session.Messages {
		if msg.Key == key {
			return msg
		}
	}
	return nil
}

// compressedKeys returns up to limit keys of currently compressed
// messages, most recent first, as a recall-miss hint.
func (m *Manager) compressedKeys(limit int) []string {
	var keys []string
	for i := len(m.session.Messages) - 1; i >= 0 && len(keys) < limit; i-- {
		if m.session.Messages[i].Compressed {
			keys = append(keys, m.session.Messages[i].Key)
		}
	}
	return keys
}
