package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThinkEchoesThought(t *testing.T) {
	tool := NewThinkTool()
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"thought": "I have read three files and found the handler registration.",
	})
	require.NoError(t, err)
	require.Equal(t, "I have read three files and found the handler registration.", res.Content)
}

func TestThinkHasNoSideEffects(t *testing.T) {
	tool := NewThinkTool()
	first, err := tool.Execute(context.Background(), map[string]interface{}{"thought": "a"})
	require.NoError(t, err)
	second, err := tool.Execute(context.Background(), map[string]interface{}{"thought": "b"})
	require.NoError(t, err)
	require.NotEqual(t, first.Content, second.Content)
}
