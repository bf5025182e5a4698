package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/internal/contextmgr"
	"investigator/internal/events"
	"investigator/internal/investigator"
	"investigator/internal/llmclient"
	"investigator/internal/storage"
	"investigator/internal/synthesizer"
	"investigator/internal/tokens"
	"investigator/internal/tools"
	"investigator/internal/tools/builtin"
	"investigator/pkg/types"
)

// phasedClient replays investigation-phase responses first, then a
// fixed synthesis response, switching over once the investigator stops
// calling Complete (the two phases never interleave within one Run).
type phasedClient struct {
	investigation []*types.CompletionResult
	synthesis     *types.CompletionResult
	calls         int
}

func (c *phasedClient) Complete(ctx context.Context, messages []llmclient.Message, opts llmclient.CompleteOptions) (*types.CompletionResult, error) {
	defer func() { c.calls++ }()
	if c.calls < len(c.investigation) {
		return c.investigation[c.calls], nil
	}
	return c.synthesis, nil
}

func TestOrchestratorHappyPathSynthesizesReport(t *testing.T) {
	workDir := t.TempDir()
	bus := events.New()

	ctxMgr := contextmgr.NewManager(storage.New(t.TempDir()), tokens.NewEstimator(), bus, contextmgr.DefaultConfig())
	_, err := ctxMgr.InitSession("Test query", workDir)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.Register(builtin.NewReadFileTool(workDir))
	registry.Register(builtin.NewListDirTool(workDir))
	registry.Register(builtin.NewRipgrepTool(workDir))
	registry.Register(builtin.NewThinkTool())

	llm := &phasedClient{
		investigation: []*types.CompletionResult{
			{ToolCalls: []types.ToolCall{{Name: "think", Arguments: map[string]interface{}{"thought": "Self check"}}}},
			{Content: "[INVESTIGATION_COMPLETE]\n\nDone"},
		},
		synthesis: &types.CompletionResult{Content: "## Findings\n\nThe answer is 42."},
	}

	inv := investigator.New(ctxMgr, llm, registry, bus, tokens.NewEstimator(), investigator.DefaultConfig())
	synth := synthesizer.New(ctxMgr, llm, synthesizer.Config{MaxRecallIterations: 3})
	orch := New(inv, synth, bus)

	var seenTypes []types.EventType
	bus.Subscribe(func(e types.Event) { seenTypes = append(seenTypes, e.Type) })

	result := orch.Run(context.Background(), "Test query")

	require.True(t, result.Success)
	require.True(t, strings.HasPrefix(result.Result, "#"))
	require.Contains(t, result.Result, "42")

	require.Contains(t, seenTypes, types.EventOrchestratorComplete)
	require.Contains(t, seenTypes, types.EventDone)

	var completeIdx, doneIdx int = -1, -1
	for i, et := range seenTypes {
		if et == types.EventOrchestratorComplete && completeIdx == -1 {
			completeIdx = i
		}
		if et == types.EventDone {
			doneIdx = i
		}
	}
	require.Less(t, completeIdx, doneIdx, "orchestrator_complete must be emitted before the final done event")
}

func TestOrchestratorFallsBackToRawFindingsWhenSynthesisFails(t *testing.T) {
	workDir := t.TempDir()
	bus := events.New()

	ctxMgr := contextmgr.NewManager(storage.New(t.TempDir()), tokens.NewEstimator(), bus, contextmgr.DefaultConfig())
	_, err := ctxMgr.InitSession("Test query", workDir)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.Register(builtin.NewThinkTool())

	llm := &phasedClient{
		investigation: []*types.CompletionResult{
			{ToolCalls: []types.ToolCall{{Name: "think", Arguments: map[string]interface{}{"thought": "Self check"}}}},
			{Content: "[INVESTIGATION_COMPLETE]\n\nRaw findings here"},
		},
	}

	inv := investigator.New(ctxMgr, llm, registry, bus, tokens.NewEstimator(), investigator.DefaultConfig())
	synth := synthesizer.New(ctxMgr, &erroringClient{}, synthesizer.Config{MaxRecallIterations: 3})
	orch := New(inv, synth, bus)

	result := orch.Run(context.Background(), "Test query")

	require.True(t, result.Success)
	require.Equal(t, "Raw findings here", result.Result)
}

type erroringClient struct{}

func (erroringClient) Complete(ctx context.Context, messages []llmclient.Message, opts llmclient.CompleteOptions) (*types.CompletionResult, error) {
	return nil, errSynthesisUnavailable{}
}

type errSynthesisUnavailable struct{}

func (errSynthesisUnavailable) Error() string { return "synthesis provider unavailable" }
