package contextmgr

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"investigator/pkg/types"
)

// priority orders candidate selection: high-priority tool output goes
// first, then medium, then low (assistant text).
type priority int

const (
	priorityHigh priority = iota
	priorityMedium
	priorityLow
)

type candidate struct {
	index     int
	msg       *types.Message
	priority  priority
	savings   int
	estimated int
}

// compress runs the trigger->target compression loop spec.md §4.2
// describes, falling back to eviction of the oldest unprotected
// messages if compression alone cannot reach the target ratio.
func (m *Manager) compress() {
	total := m.cfg.Budget.ContextWindow
	target := int(float64(total) * m.cfg.TargetRatio)

	protectedFrom := len(m.session.Messages) - m.cfg.ProtectedRecentMessages
	if protectedFrom < 0 {
		protectedFrom = 0
	}

	candidates := buildCandidates(m.session.Messages[:protectedFrom], m.cfg.MinTokensToCompress)
	sortCandidates(candidates)

	for _, c := range candidates {
		if m.usedTokens() <= target {
			break
		}
		m.applyCompression(c.msg)
	}

	if m.usedTokens() > target {
		m.evict(protectedFrom, target)
	}

	m.bus.Emit(types.EventCompression, map[string]interface{}{
		"usedAfter": m.usedTokens(),
		"target":    target,
	})
}

func (m *Manager) usedTokens() int {
	return m.systemPromptTokens + m.session.TotalTokens
}

// buildCandidates scores every compressible, non-protected message by
// estimated compression ROI. msgs is the slice of messages eligible for
// consideration (the protected tail already excluded by the caller).
func buildCandidates(msgs []*types.Message, minTokens int) []candidate {
	var out []candidate
	for i, msg := range msgs {
		if !isCompressible(msg, minTokens) {
			continue
		}
		ratio := 0.20
		if msg.Metadata.ToolName != "" {
			ratio = 0.05
		}
		estimated := int(math.Ceil(float64(msg.Tokens) * ratio))
		if estimated < 50 {
			estimated = 50
		}
		savings := msg.Tokens - estimated
		if savings <= 0 {
			continue
		}
		out = append(out, candidate{
			index:     i,
			msg:       msg,
			priority:  classifyPriority(msg),
			savings:   savings,
			estimated: estimated,
		})
	}
	return out
}

func classifyPriority(msg *types.Message) priority {
	switch {
	case msg.Metadata.ToolName == "read_file" || msg.Metadata.ToolName == "ripgrep":
		return priorityHigh
	case msg.Role == types.RoleAssistant:
		return priorityLow
	default:
		return priorityMedium
	}
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].priority != cands[j].priority {
			return cands[i].priority < cands[j].priority
		}
		return cands[i].savings > cands[j].savings
	})
}

// applyCompression replaces msg's content with a compressed placeholder,
// keeping its key and recording originalTokens, and adjusts the
// session's running total accordingly.
func (m *Manager) applyCompression(msg *types.Message) {
	placeholder := buildPlaceholder(msg)
	newTokens := m.estimator.EstimateMessage(placeholder)

	oldTokens := msg.Tokens
	msg.OriginalTokens = oldTokens
	msg.Content = placeholder
	msg.Compressed = true
	msg.Tokens = newTokens

	m.session.TotalTokens += newTokens - oldTokens
}

var symbolPattern = regexp.MustCompile(`\b(?:func|class|type|interface|def)\s+(\w+)`)

// buildPlaceholder produces the compressed placeholder content spec.md
// §4.2 defines, which varies by the tool that produced the message.
func buildPlaceholder(msg *types.Message) string {
	switch msg.Metadata.ToolName {
	case "read_file":
		if msg.Metadata.Source != "" {
			return readFilePlaceholder(msg.Key, msg.Metadata.Source, msg.Content)
		}
	case "ripgrep":
		return ripgrepPlaceholder(msg.Key, msg.Content)
	}
	return genericPlaceholder(msg.Key, msg.Content)
}

func readFilePlaceholder(key, source, content string) string {
	lines := strings.Count(content, "\n") + 1
	symbols := extractSymbols(content, 5)
	symbolsStr := strings.Join(symbols.names, ",")
	if symbols.total > len(symbols.names) {
		symbolsStr += fmt.Sprintf(" [等%d个符号]", symbols.total)
	}
	return fmt.Sprintf(
		"[COMPRESSED:%s] 文件 %s (%d行) 包含: %s\n如需完整内容，使用 recall_detail(key=\"%s\")",
		key, source, lines, symbolsStr, key,
	)
}

func ripgrepPlaceholder(key, content string) string {
	matches := strings.Count(content, "\n")
	return fmt.Sprintf(
		"[COMPRESSED:%s] 搜索结果 (%d个匹配)\n如需完整内容，使用 recall_detail(key=\"%s\")",
		key, matches, key,
	)
}

func genericPlaceholder(key, content string) string {
	snippet := []rune(content)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	collapsed := strings.ReplaceAll(string(snippet), "\n", " ")
	return fmt.Sprintf(
		"[COMPRESSED:%s] %s...\n如需完整内容，使用 recall_detail(key=\"%s\")",
		key, collapsed, key,
	)
}

type symbolSet struct {
	names []string
	total int
}

// extractSymbols scans content for a keyword-then-identifier pattern
// (func/class/type/interface/def), returning up to limit distinct names
// and the total distinct count found.
func extractSymbols(content string, limit int) symbolSet {
	matches := symbolPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool)
	var names []string
	for _, match := range matches {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	total := len(names)
	if len(names) > limit {
		names = names[:limit]
	}
	return symbolSet{names: names, total: total}
}

// evict discards the oldest messages in messages[:protectedFrom] until
// the used/total ratio reaches target or no more candidates remain,
// emitting a single messages_discarded event for the whole pass.
func (m *Manager) evict(protectedFrom int, target int) {
	kept := make([]*types.Message, 0, len(m.session.Messages))
	discardedCount := 0
	tokensFreed := 0

	for i, msg := range m.session.Messages {
		if i < protectedFrom && m.usedTokens() > target {
			discardedCount++
			tokensFreed += msg.Tokens
			m.session.TotalTokens -= msg.Tokens
			continue
		}
		kept = append(kept, msg)
	}
	m.session.Messages = kept

	if discardedCount > 0 {
		m.bus.Emit(types.EventMessagesDiscarded, map[string]interface{}{
			"count":       discardedCount,
			"tokensFreed": tokensFreed,
		})
	}
}
