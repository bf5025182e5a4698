package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListDirNonRecursiveSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	tool := NewListDirTool(dir)
	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "."})
	require.NoError(t, err)
	entries := res.Data["entries"].([]string)
	require.ElementsMatch(t, []string{"a.go", "sub/"}, entries)
}

func TestListDirRecursiveWalksSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte("x"), 0o644))

	tool := NewListDirTool(dir)
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":      ".",
		"recursive": true,
	})
	require.NoError(t, err)
	entries := res.Data["entries"].([]string)
	require.Contains(t, entries, filepath.Join("sub", "b.go"))
}

func TestListDirRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644))

	tool := NewListDirTool(dir)
	_, err := tool.Execute(context.Background(), map[string]interface{}{"path": "a.go"})
	require.Error(t, err)
}
