package builtin

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkAndGrepFindsMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("func main() {}\nfunc helper() {}\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.go"), []byte("func other() {}\n"), 0o644))

	re := regexp.MustCompile(`func \w+\(\)`)
	matches, err := walkAndGrep(dir, re, 200)
	require.NoError(t, err)
	require.Len(t, matches, 3)
}

func TestWalkAndGrepRespectsMaxResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x\nx\nx\nx\n"), 0o644))

	re := regexp.MustCompile(`x`)
	matches, err := walkAndGrep(dir, re, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestWalkAndGrepSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("needle"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("needle"), 0o644))

	re := regexp.MustCompile(`needle`)
	matches, err := walkAndGrep(dir, re, 200)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "visible.txt", matches[0].path)
}
