package contextmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/internal/events"
	"investigator/internal/storage"
	"investigator/internal/tokens"
	"investigator/pkg/types"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *events.Bus) {
	t.Helper()
	bus := events.New()
	m := NewManager(storage.New(t.TempDir()), tokens.NewEstimator(), bus, cfg)
	_, err := m.InitSession("Test query", t.TempDir())
	require.NoError(t, err)
	return m, bus
}

func TestAddMessageUpdatesTotalTokens(t *testing.T) {
	m, _ := newTestManager(t, DefaultConfig())

	msg, err := m.AddMessage(types.RoleUser, "hello there", types.MessageMetadata{})
	require.NoError(t, err)
	require.Equal(t, msg.Tokens, m.Session().TotalTokens)
}

func TestAddMessageWithoutSessionFails(t *testing.T) {
	m := NewManager(storage.New(t.TempDir()), tokens.NewEstimator(), events.New(), DefaultConfig())
	_, err := m.AddMessage(types.RoleUser, "hi", types.MessageMetadata{})
	require.Error(t, err)
}

func TestCompressionTriggersAboveRatioAndRecallReturnsOriginal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.ContextWindow = 100000
	cfg.Budget.ReservedForSynthesis = 0
	cfg.Budget.ReservedForRecalls = 0
	cfg.Budget.ReservedForNextSteps = 0
	cfg.ProtectedRecentMessages = 0

	m, _ := newTestManager(t, cfg)

	huge := strings.Repeat("x", 240000) // ~80k tokens at 3 chars/token
	msg, err := m.AddMessage(types.RoleUser, huge, types.MessageMetadata{
		ToolName: "read_file",
		Source:   "big.go",
	})
	require.NoError(t, err)

	require.True(t, msg.Compressed)
	require.True(t, strings.HasPrefix(msg.Content, "[COMPRESSED:"+msg.Key+"]"))
	require.Equal(t, msg.Key, msg.Key)
	require.Greater(t, msg.OriginalTokens, msg.Tokens)

	result, err := m.Recall(msg.Key)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, huge, result.Content)
	require.Equal(t, "storage", result.Source)
}

func TestProtectedRecentMessagesAreNeverCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.ContextWindow = 5000
	cfg.ProtectedRecentMessages = 2

	m, _ := newTestManager(t, cfg)

	old, err := m.AddMessage(types.RoleUser, strings.Repeat("y", 12000), types.MessageMetadata{
		ToolName: "read_file",
		Source:   "old.go",
	})
	require.NoError(t, err)

	var recent []*types.Message
	for i := 0; i < 2; i++ {
		msg, err := m.AddMessage(types.RoleUser, strings.Repeat("z", 500), types.MessageMetadata{})
		require.NoError(t, err)
		recent = append(recent, msg)
	}

	require.True(t, old.Compressed, "the old message outside the protected tail should have been compressed")
	for _, msg := range recent {
		require.False(t, msg.Compressed, "protected tail must never be compressed")
	}
}

func TestRecallMissingKeyReturnsHintNotError(t *testing.T) {
	m, _ := newTestManager(t, DefaultConfig())
	result, err := m.Recall("msg_doesnotexist")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Hint)
}

func TestRecallDoesNotMutateTotals(t *testing.T) {
	m, _ := newTestManager(t, DefaultConfig())
	msg, err := m.AddMessage(types.RoleUser, "some content", types.MessageMetadata{})
	require.NoError(t, err)

	before := m.Session().TotalTokens
	_, err = m.Recall(msg.Key)
	require.NoError(t, err)
	require.Equal(t, before, m.Session().TotalTokens)
}

func TestSynthesisFilterDropsFailuresAndListingTools(t *testing.T) {
	m, _ := newTestManager(t, DefaultConfig())
	mustAdd := func(role types.MessageRole, content string, meta types.MessageMetadata) {
		_, err := m.AddMessage(role, content, meta)
		require.NoError(t, err)
	}

	mustAdd(types.RoleUser, "工具 \"read_file\" 执行失败:\n\nfile not found", types.MessageMetadata{ToolName: "read_file"})
	mustAdd(types.RoleUser, "工具 \"list_dir\" 执行成功:\n\na.go\nb.go", types.MessageMetadata{ToolName: "list_dir"})
	mustAdd(types.RoleAssistant, "I'll investigate the handler next.", types.MessageMetadata{})
	mustAdd(types.RoleUser, "工具 \"read_file\" 执行成功:\n\npackage main", types.MessageMetadata{ToolName: "read_file"})

	synthMsgs := m.GetMessagesForSynthesis()
	require.Len(t, synthMsgs, 2)
	require.Equal(t, types.RoleAssistant, synthMsgs[0].Role)
	require.Equal(t, "read_file", synthMsgs[1].ToolName)
}
