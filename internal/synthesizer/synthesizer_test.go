package synthesizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/internal/contextmgr"
	"investigator/internal/events"
	"investigator/internal/llmclient"
	"investigator/internal/storage"
	"investigator/internal/tokens"
	"investigator/pkg/types"
)

type scriptedClient struct {
	turns []*types.CompletionResult
	calls int
	// seen records the Content of every completed assistant/user message
	// sent on the last Complete call, for assertions against recall
	// round-tripping.
	seen []llmclient.Message
}

func (s *scriptedClient) Complete(ctx context.Context, messages []llmclient.Message, opts llmclient.CompleteOptions) (*types.CompletionResult, error) {
	s.seen = messages
	resp := s.turns[s.calls]
	s.calls++
	return resp, nil
}

func newTestManager(t *testing.T, cfg contextmgr.Config) *contextmgr.Manager {
	t.Helper()
	bus := events.New()
	m := contextmgr.NewManager(storage.New(t.TempDir()), tokens.NewEstimator(), bus, cfg)
	_, err := m.InitSession("Test query", t.TempDir())
	require.NoError(t, err)
	return m
}

func TestRunReturnsReportVerbatimWhenNoToolCall(t *testing.T) {
	ctxMgr := newTestManager(t, contextmgr.DefaultConfig())
	_, err := ctxMgr.AddMessage(types.RoleUser, "工具 \"read_file\" 执行成功:\n\npackage main", types.MessageMetadata{ToolName: "read_file"})
	require.NoError(t, err)

	llm := &scriptedClient{turns: []*types.CompletionResult{
		{Content: "## Findings\n\nThe handler lives in main.go."},
	}}
	synth := New(ctxMgr, llm, Config{MaxRecallIterations: 3})

	result := synth.Run(context.Background(), "Where is the handler?", []string{"main.go"})

	require.NoError(t, result.Error)
	require.True(t, strings.HasPrefix(result.Report, "#"))
	require.Contains(t, result.Report, "main.go")
}

func TestRunPrependsHeadingWhenModelOmitsOne(t *testing.T) {
	ctxMgr := newTestManager(t, contextmgr.DefaultConfig())
	llm := &scriptedClient{turns: []*types.CompletionResult{
		{Content: "The handler lives in main.go, no heading here."},
	}}
	synth := New(ctxMgr, llm, Config{MaxRecallIterations: 1})

	result := synth.Run(context.Background(), "Where is the handler?", nil)

	require.NoError(t, result.Error)
	require.True(t, strings.HasPrefix(result.Report, "#"))
}

func TestRunFollowsRecallDetailThenReturnsReport(t *testing.T) {
	cfg := contextmgr.DefaultConfig()
	cfg.Budget.ContextWindow = 100000
	cfg.Budget.ReservedForSynthesis = 0
	cfg.Budget.ReservedForRecalls = 0
	cfg.Budget.ReservedForNextSteps = 0
	cfg.ProtectedRecentMessages = 0
	ctxMgr := newTestManager(t, cfg)

	huge := strings.Repeat("x", 240000)
	msg, err := ctxMgr.AddMessage(types.RoleUser, huge, types.MessageMetadata{ToolName: "read_file", Source: "big.go"})
	require.NoError(t, err)
	require.True(t, msg.Compressed)

	llm := &scriptedClient{turns: []*types.CompletionResult{
		{
			Content:   "Let me check the original content first.",
			ToolCalls: []types.ToolCall{{Name: "recall_detail", Arguments: map[string]interface{}{"key": msg.Key}}},
		},
		{Content: "## Findings\n\nConfirmed from the recalled content."},
	}}
	synth := New(ctxMgr, llm, Config{MaxRecallIterations: 3})

	result := synth.Run(context.Background(), "What does big.go contain?", []string{"big.go"})

	require.NoError(t, result.Error)
	require.Equal(t, 2, llm.calls)
	require.Contains(t, result.Report, "Confirmed from the recalled content")

	foundRecalled := false
	for _, m := range llm.seen {
		if strings.Contains(m.Content, huge) {
			foundRecalled = true
		}
	}
	require.True(t, foundRecalled, "expected the recalled original content to be fed back to the model")
}

func TestRunReturnsPlaceholderAfterExhaustingRecallBudget(t *testing.T) {
	cfg := contextmgr.DefaultConfig()
	cfg.Budget.ContextWindow = 100000
	cfg.Budget.ReservedForSynthesis = 0
	cfg.Budget.ReservedForRecalls = 0
	cfg.Budget.ReservedForNextSteps = 0
	cfg.ProtectedRecentMessages = 0
	ctxMgr := newTestManager(t, cfg)

	huge := strings.Repeat("x", 240000)
	msg, err := ctxMgr.AddMessage(types.RoleUser, huge, types.MessageMetadata{ToolName: "read_file", Source: "big.go"})
	require.NoError(t, err)
	require.True(t, msg.Compressed)

	recallCall := types.CompletionResult{
		Content:   "checking again",
		ToolCalls: []types.ToolCall{{Name: "recall_detail", Arguments: map[string]interface{}{"key": msg.Key}}},
	}
	llm := &scriptedClient{turns: []*types.CompletionResult{&recallCall, &recallCall}}
	synth := New(ctxMgr, llm, Config{MaxRecallIterations: 2})

	result := synth.Run(context.Background(), "What does big.go contain?", nil)

	require.NoError(t, result.Error)
	require.Equal(t, placeholderReport, result.Report)
	require.Equal(t, 2, llm.calls)
}
