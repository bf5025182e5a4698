// Package investigator implements the ReAct loop of spec.md §4.5: it
// alternates model turns with tool execution, classifies every model
// turn into a Decision, and feeds corrective messages back into the
// conversation when the model loops, skips its self-check, hallucinates
// a tool result, or describes a tool call in prose instead of issuing
// one. Grounded on the teacher's ReactCore.SolveTask loop shape
// (internal/agent/react_core.go) and ThinkingEngine's turn
// classification (internal/agent/thinking_engine.go), generalized from
// the teacher's confidence-score heuristics to the spec's exact
// three-layer Decision parser.
package investigator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigator/internal/contextmgr"
	"investigator/internal/errutil"
	"investigator/internal/events"
	"investigator/internal/llmclient"
	"investigator/internal/tokens"
	"investigator/internal/tools"
	"investigator/pkg/types"
)

// Config tunes the loop's termination and loop-detection policy.
type Config struct {
	MaxIterations  int
	StuckThreshold int
}

// DefaultConfig mirrors spec.md §6's agent.* defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: 20, StuckThreshold: 3}
}

// Status is the run's terminal or in-progress state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusStuck     Status = "stuck"
)

// Result is what Run returns: the raw findings (before synthesis),
// enough bookkeeping for the Orchestrator to report totals, and the
// decision trail for offline inspection.
type Result struct {
	Success    bool
	Status     Status
	Findings   string
	Iterations int
	Decisions  []types.Decision
	KeyFiles   []string
	Error      error
}

// Investigator runs one ReAct loop against a single ContextManager
// session. It is not safe for concurrent Run calls against the same
// instance — spec.md §5 scopes one Investigator to one run.
type Investigator struct {
	ctxMgr    *contextmgr.Manager
	llm       llmclient.Client
	registry  *tools.Registry
	bus       *events.Bus
	estimator *tokens.Estimator
	cfg       Config
	logger    zerolog.Logger

	aborted atomic.Bool
}

// New wires an Investigator from its collaborators.
func New(ctxMgr *contextmgr.Manager, llm llmclient.Client, registry *tools.Registry, bus *events.Bus, estimator *tokens.Estimator, cfg Config) *Investigator {
	return &Investigator{
		ctxMgr:    ctxMgr,
		llm:       llm,
		registry:  registry,
		bus:       bus,
		estimator: estimator,
		cfg:       cfg,
		logger:    log.With().Str("component", "investigator").Logger(),
	}
}

// Abort signals the loop to stop at its next iteration head or the next
// suspension point it checks (spec.md §5 "Cancellation").
func (inv *Investigator) Abort() {
	inv.aborted.Store(true)
}

// Run drives the ReAct loop for query until the model emits a done
// decision, the run is aborted, or MaxIterations is reached (in which
// case Run still reports success with best-effort partial findings,
// per spec.md §4.5 step 8).
func (inv *Investigator) Run(ctx context.Context, query string) *Result {
	inv.bus.Emit(types.EventSessionStart, map[string]interface{}{"query": query})

	if _, err := inv.ctxMgr.AddMessage(types.RoleUser, query, types.MessageMetadata{}); err != nil {
		return inv.fail(err)
	}

	systemPrompt := buildSystemPrompt(inv.registry)
	inv.ctxMgr.SetSystemPromptTokens(inv.estimator.Estimate(systemPrompt))

	var decisions []types.Decision
	var keyFiles []string

	for iteration := 1; iteration <= inv.cfg.MaxIterations; iteration++ {
		if ctx.Err() != nil || inv.aborted.Load() {
			return &Result{Success: false, Status: StatusError, Error: errutil.New(errutil.KindUnknown, "Aborted"), Iterations: iteration - 1, Decisions: decisions, KeyFiles: keyFiles}
		}

		inv.bus.Emit(types.EventIterationStart, map[string]interface{}{
			"iteration":     iteration,
			"maxIterations": inv.cfg.MaxIterations,
			"budget":        inv.ctxMgr.Budget(),
		})

		started := time.Now()
		turn, resp, err := inv.runTurn(ctx, systemPrompt, iteration, decisions)
		if err != nil {
			return inv.fail(err)
		}

		turn.StartedAt = started

		decision := ParseDecision(resp, decisions)
		decisions = append(decisions, decision)
		turn.Decision = decision
		turn.DecisionKind = decision.Kind

		if resp.Thinking != "" {
			inv.bus.Emit(types.EventThinking, map[string]interface{}{"content": resp.Thinking})
		}

		done, result := inv.act(ctx, decision, resp, &keyFiles, turn, iteration, decisions)
		turn.Duration = time.Since(started)
		if err := inv.ctxMgr.SaveLLMTurn(turn); err != nil {
			inv.logger.Warn().Err(err).Msg("failed to persist LLM turn")
		}

		if done {
			return result
		}

		inv.bus.Emit(types.EventIterationEnd, map[string]interface{}{
			"iteration": iteration,
			"decision":  decision.Kind,
			"tokensUsed": inv.ctxMgr.Budget().Used,
		})

		if isStuck(decisions, inv.cfg.StuckThreshold) {
			if _, err := inv.ctxMgr.AddMessage(types.RoleUser, feedbackStuckLoop, types.MessageMetadata{}); err != nil {
				inv.logger.Warn().Err(err).Msg("failed to append stuck-loop feedback")
			}
			decisions = decisions[:len(decisions)-inv.cfg.StuckThreshold]
			inv.bus.Emit(types.EventError, map[string]interface{}{"error": "stuck_loop", "recoverable": true, "retrying": true})
		}
	}

	findings := gatherPartialFindings(inv.ctxMgr.Session().Messages)
	return &Result{
		Success:    true,
		Status:     StatusCompleted,
		Findings:   findings,
		Iterations: inv.cfg.MaxIterations,
		Decisions:  decisions,
		KeyFiles:   keyFiles,
	}
}

// runTurn fetches the live conversation, calls the model, and returns
// the in-progress debug record alongside the raw completion.
func (inv *Investigator) runTurn(ctx context.Context, systemPrompt string, iteration int, decisions []types.Decision) (*types.LLMTurn, *types.CompletionResult, error) {
	pairs := inv.ctxMgr.GetMessagesForLLM()
	messages := make([]llmclient.Message, 0, len(pairs))
	for _, p := range pairs {
		messages = append(messages, llmclient.Message{Role: llmclient.MessageRole(p.Role), Content: p.Content})
	}

	schemas := toToolSchemas(inv.registry.Schemas())
	schemas = append(schemas, llmclient.ToolSchema{
		Name:        "recall_detail",
		Description: "Retrieve the original, uncompressed content of a previously compressed tool result by its recall key.",
		Parameters:  tools.WireParameters(recallDetailSchema()["parameters"].(map[string]interface{})),
	})

	resp, err := inv.llm.Complete(ctx, messages, llmclient.CompleteOptions{SystemPrompt: systemPrompt, Tools: schemas})
	if err != nil {
		return nil, nil, errutil.Wrap(errutil.KindLLMError, err, "investigator completion")
	}

	turn := &types.LLMTurn{
		Agent:     "investigator",
		Iteration: iteration,
		Input:     types.LLMTurnInput{SystemPrompt: systemPrompt, Messages: turnMessages(inv.ctxMgr.Session().Messages), ToolSchemas: rawSchemas(schemas)},
		Output:    types.LLMTurnOutput{Content: resp.Content, Thinking: resp.Thinking, ToolCalls: resp.ToolCalls},
		Usage:     resp.Usage,
	}
	return turn, resp, nil
}

// act carries out the side effects one Decision implies, returning
// (true, result) when the loop should terminate this Run.
func (inv *Investigator) act(ctx context.Context, decision types.Decision, resp *types.CompletionResult, keyFiles *[]string, turn *types.LLMTurn, iteration int, decisions []types.Decision) (bool, *Result) {
	switch decision.Kind {
	case types.DecisionToolCall:
		record := inv.handleToolCall(ctx, decision, resp, keyFiles)
		turn.Tool = record
		return false, nil

	case types.DecisionInvalidToolCall:
		inv.addAssistant(resp.Content)
		inv.addUser(feedbackUseToolCallingAPI, false)
		return false, nil

	case types.DecisionThinking:
		inv.addAssistant(resp.Content)
		inv.addUser(feedbackContinueOrConclude, true)
		return false, nil

	case types.DecisionRequiresSelfCheck:
		inv.addAssistant(resp.Content)
		inv.addUser(feedbackSelfCheckRequired, false)
		return false, nil

	case types.DecisionHallucinationDetected:
		if decision.CleanedContent != "" {
			inv.addAssistant(decision.CleanedContent)
		}
		inv.addUser(feedbackHallucinationDetected, false)
		return false, nil

	case types.DecisionDone:
		inv.addAssistant(decision.Result)
		findings := extractFindings(decision.Result)
		inv.bus.Emit(types.EventDone, map[string]interface{}{"result": findings})
		return true, &Result{
			Success:    true,
			Status:     StatusCompleted,
			Findings:   findings,
			Iterations: iteration,
			Decisions:  decisions,
			KeyFiles:   *keyFiles,
		}

	default:
		return false, nil
	}
}

// handleToolCall executes decision's tool call (or the recall_detail
// pseudo-tool), appends the scrubbed assistant text and the tool-result
// user message, and tracks keyFiles (spec.md §4.5 step 5).
func (inv *Investigator) handleToolCall(ctx context.Context, decision types.Decision, resp *types.CompletionResult, keyFiles *[]string) *types.ToolExecutionRecord {
	cleaned, _ := scrubHallucinations(resp.Content)
	assistantText := strings.TrimSpace(cleaned)
	if assistantText == "" {
		assistantText = toolCallFallback(decision.ToolName)
	}
	inv.addAssistant(assistantText)

	inv.bus.Emit(types.EventToolCall, map[string]interface{}{"name": decision.ToolName, "arguments": decision.ToolArgs})

	started := time.Now()
	output, success, source := inv.executeTool(ctx, decision.ToolName, decision.ToolArgs)
	duration := time.Since(started)

	inv.bus.Emit(types.EventToolResult, map[string]interface{}{"name": decision.ToolName, "result": output, "duration": duration})

	content := toolCallFeedback(decision.ToolName, success, output)
	compressible := true
	if _, err := inv.ctxMgr.AddMessage(types.RoleUser, content, types.MessageMetadata{
		ToolName:     decision.ToolName,
		Source:       source,
		Compressible: &compressible,
	}); err != nil {
		inv.logger.Warn().Err(err).Str("tool", decision.ToolName).Msg("failed to append tool result")
	}

	path, _ := decision.ToolArgs["path"].(string)
	*keyFiles = trackKeyFiles(*keyFiles, decision.ToolName, path, output)

	return &types.ToolExecutionRecord{ToolName: decision.ToolName, Success: success, Output: output, Duration: duration}
}

// executeTool dispatches to the registry, or to the recall_detail
// pseudo-tool which consults ContextManager directly. An unknown tool
// name is reported with the list of available names so the model can
// self-correct (spec.md §7).
func (inv *Investigator) executeTool(ctx context.Context, name string, args map[string]interface{}) (output string, success bool, source string) {
	if name == "recall_detail" {
		return inv.executeRecall(args)
	}

	tool, ok := inv.registry.Get(name)
	if !ok {
		return tools.UnknownToolError(name, inv.registry.Names()).Error(), false, ""
	}

	if err := inv.registry.ValidateArgs(name, args); err != nil {
		return err.Error(), false, ""
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return err.Error(), false, ""
	}

	if name == "read_file" {
		if p, ok := args["path"].(string); ok {
			source = p
		}
	}
	return result.Content, true, source
}

func (inv *Investigator) executeRecall(args map[string]interface{}) (string, bool, string) {
	key, _ := args["key"].(string)
	result, err := inv.ctxMgr.Recall(key)
	if err != nil {
		return err.Error(), false, ""
	}
	if !result.Success {
		return result.Hint, false, ""
	}
	content := result.Content
	if result.Hint != "" {
		content = fmt.Sprintf("%s\n\n(%s)", content, result.Hint)
	}
	return content, true, result.Source
}

func (inv *Investigator) addAssistant(content string) {
	if _, err := inv.ctxMgr.AddMessage(types.RoleAssistant, content, types.MessageMetadata{}); err != nil {
		inv.logger.Warn().Err(err).Msg("failed to append assistant message")
	}
}

func (inv *Investigator) addUser(content string, compressible bool) {
	meta := types.MessageMetadata{}
	if !compressible {
		meta.Compressible = &compressible
	}
	if _, err := inv.ctxMgr.AddMessage(types.RoleUser, content, meta); err != nil {
		inv.logger.Warn().Err(err).Msg("failed to append feedback message")
	}
}

func (inv *Investigator) fail(err error) *Result {
	inv.bus.Emit(types.EventError, map[string]interface{}{"error": err.Error(), "recoverable": false, "retrying": false})
	return &Result{Success: false, Status: StatusError, Error: err}
}

// extractFindings strips the first completion sentinel from result and
// trims the remainder (spec.md §4.5 "Findings extraction").
func extractFindings(result string) string {
	return strings.TrimSpace(strings.Replace(result, completionSentinel, "", 1))
}

// gatherPartialFindings builds the best-effort result spec.md §4.5 step
// 8 requires when MaxIterations is reached without a done decision:
// every non-empty assistant message, bulleted, or — when there is
// exactly one — its content verbatim.
func gatherPartialFindings(messages []*types.Message) string {
	var contents []string
	for _, m := range messages {
		if m.Role == types.RoleAssistant {
			if trimmed := strings.TrimSpace(m.Content); trimmed != "" {
				contents = append(contents, trimmed)
			}
		}
	}
	switch len(contents) {
	case 0:
		return ""
	case 1:
		return contents[0]
	default:
		bullets := make([]string, len(contents))
		for i, c := range contents {
			bullets[i] = "- " + c
		}
		return strings.Join(bullets, "\n")
	}
}

func toToolSchemas(raw []map[string]interface{}) []llmclient.ToolSchema {
	out := make([]llmclient.ToolSchema, 0, len(raw))
	for _, r := range raw {
		name, _ := r["name"].(string)
		desc, _ := r["description"].(string)
		params, _ := r["parameters"].(map[string]interface{})
		out = append(out, llmclient.ToolSchema{Name: name, Description: desc, Parameters: params})
	}
	return out
}

func rawSchemas(schemas []llmclient.ToolSchema) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, map[string]interface{}{
			"name":        s.Name,
			"description": s.Description,
			"parameters":  s.Parameters,
		})
	}
	return out
}

func turnMessages(messages []*types.Message) []types.LLMTurnMessage {
	out := make([]types.LLMTurnMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, types.LLMTurnMessage{Key: m.Key, Role: string(m.Role), Content: m.Content, Compressed: m.Compressed})
	}
	return out
}
