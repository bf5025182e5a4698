package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"investigator/pkg/types"
)

func newTestSession(id string) *types.Session {
	return &types.Session{
		ID:         id,
		Query:      "why does parsing fail",
		StartedAt:  time.Now(),
		WorkingDir: "/tmp/project",
		Storage:    types.NewSessionStorageRef(),
		Budget:     types.DefaultBudgetConfig(),
	}
}

func TestCreateAndSaveSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	sess := newTestSession("sess_1")

	require.NoError(t, store.CreateSession(sess))
	require.FileExists(t, filepath.Join(dir, "sessions", "sess_1", "session.json"))
	require.DirExists(t, filepath.Join(dir, "sessions", "sess_1", "messages"))
	require.DirExists(t, filepath.Join(dir, "sessions", "sess_1", "turns"))

	sess.TotalTokens = 42
	require.NoError(t, store.SaveSession(sess))
}

func TestSaveAndLoadMessageContent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	sess := newTestSession("sess_2")
	require.NoError(t, store.CreateSession(sess))

	msg := &types.Message{
		Key:       "msg_abcd1234",
		Role:      types.RoleUser,
		Content:   "here is the full original tool output, quite long",
		Tokens:    12,
		Timestamp: time.Now(),
		Metadata:  types.MessageMetadata{ToolName: "read_file"},
	}

	path, err := store.SaveMessageContent(sess.ID, msg)
	require.NoError(t, err)
	require.FileExists(t, path)

	loaded, err := store.LoadMessageContent(sess.ID, msg.Key)
	require.NoError(t, err)
	require.Equal(t, msg.Content, loaded.Content)
	require.False(t, loaded.Compressed)
	require.Equal(t, msg.Key, loaded.Key)
}

func TestLoadMessageContentMissingKey(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	sess := newTestSession("sess_3")
	require.NoError(t, store.CreateSession(sess))

	_, err := store.LoadMessageContent(sess.ID, "msg_doesnotexist")
	require.Error(t, err)
}

func TestSaveTurnSequenceIsZeroPaddedAndPerAgent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	sess := newTestSession("sess_4")
	require.NoError(t, store.CreateSession(sess))

	for i := 0; i < 2; i++ {
		require.NoError(t, store.SaveTurn(sess.ID, &types.LLMTurn{Agent: "investigator"}))
	}
	require.NoError(t, store.SaveTurn(sess.ID, &types.LLMTurn{Agent: "synthesizer"}))

	require.FileExists(t, filepath.Join(dir, "sessions", "sess_4", "turns", "investigator-001.json"))
	require.FileExists(t, filepath.Join(dir, "sessions", "sess_4", "turns", "investigator-002.json"))
	require.FileExists(t, filepath.Join(dir, "sessions", "sess_4", "turns", "synthesizer-001.json"))
}
