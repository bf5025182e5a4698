// Package synthesizer implements the single-shot report generator of
// spec.md §4.6: it turns the filtered Investigator transcript into a
// final report, with a small bounded tool loop so it can recall
// compressed detail it needs. Grounded on the teacher's
// internal/agent/message.go summarization/prompt-building style,
// generalized from the teacher's free-form compaction summary into the
// spec's fixed report template and recall loop.
package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigator/internal/contextmgr"
	"investigator/internal/errutil"
	"investigator/internal/llmclient"
	"investigator/pkg/types"
)

const placeholderReport = "## 分析结果\n\n达到最大召回次数限制，无法生成完整报告。"

const maxKeyFilesListed = 20

// reportSystemPrompt is the fixed instruction block for the
// synthesis turn, concatenated identically on every recall iteration
// within one Run (mirroring the Investigator's prompt-caching
// discipline, spec.md §9).
const reportSystemPrompt = `You are a report-writing agent. You are given a user's question and the filtered evidence an investigator collected while answering it. Write a final report in Markdown, starting with a heading, that directly answers the question using only the evidence given. Do not invent evidence. If a tool result was compressed, call recall_detail with its key to see the original content before relying on it.`

// Config tunes the bounded recall loop.
type Config struct {
	MaxRecallIterations int
}

// Synthesizer turns one Investigator run's filtered transcript into a
// final report.
type Synthesizer struct {
	ctxMgr *contextmgr.Manager
	llm    llmclient.Client
	cfg    Config
	logger zerolog.Logger
}

// New wires a Synthesizer from its collaborators.
func New(ctxMgr *contextmgr.Manager, llm llmclient.Client, cfg Config) *Synthesizer {
	return &Synthesizer{
		ctxMgr: ctxMgr,
		llm:    llm,
		cfg:    cfg,
		logger: log.With().Str("component", "synthesizer").Logger(),
	}
}

// Result is what Run returns.
type Result struct {
	Report      string
	TotalTokens int
	Error       error
}

// Run builds the synthesis message list from query, the Investigator's
// filtered transcript, and keyFiles, then loops up to
// MaxRecallIterations calling the model, following at most one
// recall_detail tool call per iteration (spec.md §4.6).
func (s *Synthesizer) Run(ctx context.Context, query string, keyFiles []string) *Result {
	synthesisMessages := s.ctxMgr.GetMessagesForSynthesis()

	messages := buildInitialMessages(query, synthesisMessages, keyFiles)
	recallAvailable := anyCompressed(synthesisMessages)

	maxIterations := s.cfg.MaxRecallIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}
	if !recallAvailable {
		maxIterations = 1
	}

	var toolSchemas []llmclient.ToolSchema
	if recallAvailable {
		toolSchemas = []llmclient.ToolSchema{recallDetailToolSchema()}
	}

	totalTokens := 0
	for iteration := 1; iteration <= maxIterations; iteration++ {
		resp, err := s.llm.Complete(ctx, messages, llmclient.CompleteOptions{SystemPrompt: reportSystemPrompt, Tools: toolSchemas})
		if err != nil {
			return &Result{Error: errutil.Wrap(errutil.KindLLMError, err, "synthesizer completion")}
		}
		if resp.Usage != nil {
			totalTokens += resp.Usage.InputTokens + resp.Usage.OutputTokens
		}

		if len(resp.ToolCalls) == 0 || resp.ToolCalls[0].Name != "recall_detail" {
			report := ensureProperFormat(resp.Content)
			return &Result{Report: report, TotalTokens: totalTokens}
		}

		assistantText := strings.TrimSpace(resp.Content)
		key, _ := resp.ToolCalls[0].Arguments["key"].(string)
		if assistantText == "" {
			assistantText = fmt.Sprintf("调用 recall_detail(key=\"%s\")", key)
		}
		messages = append(messages, llmclient.Message{Role: llmclient.RoleAssistant, Content: assistantText})

		recallResult, err := s.ctxMgr.Recall(key)
		var recallContent string
		if err != nil {
			recallContent = err.Error()
		} else if recallResult.Success {
			recallContent = recallResult.Content
		} else {
			recallContent = recallResult.Hint
		}
		messages = append(messages, llmclient.Message{
			Role:    llmclient.RoleUser,
			Content: fmt.Sprintf("工具 \"recall_detail\" 执行成功:\n\n%s", recallContent),
		})
	}

	return &Result{Report: placeholderReport, TotalTokens: totalTokens}
}

// buildInitialMessages assembles the fixed three-part message list
// spec.md §4.6 specifies: the user's question, a verbatim projection of
// the filtered transcript, and a closing instruction listing keyFiles.
func buildInitialMessages(query string, synthesisMessages []types.SynthesisMessage, keyFiles []string) []llmclient.Message {
	messages := make([]llmclient.Message, 0, len(synthesisMessages)+2)
	messages = append(messages, llmclient.Message{Role: llmclient.RoleUser, Content: "用户问题: " + query})

	for _, m := range synthesisMessages {
		role := llmclient.RoleUser
		if m.Role == types.RoleAssistant {
			role = llmclient.RoleAssistant
		}
		messages = append(messages, llmclient.Message{Role: role, Content: m.Content})
	}

	messages = append(messages, llmclient.Message{Role: llmclient.RoleUser, Content: closingInstruction(keyFiles)})
	return messages
}

func closingInstruction(keyFiles []string) string {
	listed := keyFiles
	suffix := ""
	if len(listed) > maxKeyFilesListed {
		listed = listed[:maxKeyFilesListed]
		suffix = fmt.Sprintf("… 等%d个文件", len(keyFiles))
	}
	fileList := strings.Join(listed, ", ")
	if suffix != "" {
		fileList = fileList + suffix
	}
	return fmt.Sprintf("涉及的关键文件: %s\n\n请直接以一个标题开始撰写最终报告。", fileList)
}

func anyCompressed(messages []types.SynthesisMessage) bool {
	for _, m := range messages {
		if m.Compressed {
			return true
		}
	}
	return false
}

// ensureProperFormat post-processes the model's final content so the
// returned report always starts with a heading (spec.md §4.6).
func ensureProperFormat(content string) string {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}
	if idx := findHeading(content); idx >= 0 {
		return strings.TrimLeft(content[idx:], " \t\r\n")
	}
	return "## 分析结果\n\n" + content
}

// findHeading returns the index of the first "#"-prefixed line in
// content, or -1 if none exists.
func findHeading(content string) int {
	lines := strings.SplitAfter(content, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			return offset + (len(line) - len(trimmed))
		}
		offset += len(line)
	}
	return -1
}

func recallDetailToolSchema() llmclient.ToolSchema {
	return llmclient.ToolSchema{
		Name:        "recall_detail",
		Description: "Retrieve the original, uncompressed content of a previously compressed tool result by its recall key.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"key": map[string]interface{}{"type": "string", "description": "The recall key"},
			},
			"required": []string{"key"},
		},
	}
}
