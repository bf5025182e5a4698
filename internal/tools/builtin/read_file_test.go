package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"investigator/internal/errutil"
)

func TestReadFileReturnsFullContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("line1\nline2\nline3"), 0o644))

	tool := NewReadFileTool(dir)
	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "a.go"})
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\nline3", res.Content)
	require.Equal(t, 3, res.Data["total_lines"])
}

func TestReadFileRespectsLineRange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("line1\nline2\nline3\nline4"), 0o644))

	tool := NewReadFileTool(dir)
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "a.go",
		"start_line": float64(2),
		"end_line":   float64(3),
	})
	require.NoError(t, err)
	require.Equal(t, "line2\nline3", res.Content)
}

func TestReadFileRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadFileTool(dir)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"path": "../../etc/passwd"})
	require.Error(t, err)
	require.Equal(t, errutil.KindPermissionDenied, errutil.KindOf(err))
}

func TestReadFileMissingPathIsInvalidParams(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadFileTool(dir)
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	require.Equal(t, errutil.KindInvalidParams, errutil.KindOf(err))
}

func TestReadFileNotFound(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadFileTool(dir)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"path": "missing.go"})
	require.Error(t, err)
	require.Equal(t, errutil.KindNotFound, errutil.KindOf(err))
}
