// Package builtin provides concrete tool implementations the
// Investigator drives: read_file, list_dir, ripgrep, and think.
// spec.md places the concrete file-search/read/list tool
// implementations out of scope for the specified core; these exist so
// the module is runnable end-to-end, grounded on the teacher's
// internal/tools/builtin package (file_operations.go, search_tools.go,
// think_tools.go, path_resolver.go).
package builtin

import (
	"path/filepath"
	"strings"

	"investigator/internal/errutil"
)

// PathResolver resolves a tool-supplied path against a working
// directory and rejects any path that would escape it, the
// path-traversal containment spec.md's Non-goals call out as the one
// sandboxing guarantee tools must provide ("no sandboxing beyond
// path-traversal checks in tools"). The teacher's own PathResolver
// (internal/tools/builtin/path_resolver.go) only joins and cleans the
// path without this containment check; that gap is closed here.
type PathResolver struct {
	workingDir string
}

// NewPathResolver returns a resolver rooted at workingDir.
func NewPathResolver(workingDir string) *PathResolver {
	return &PathResolver{workingDir: workingDir}
}

// Resolve turns a (possibly relative) path into an absolute path
// beneath the working directory, or returns a permission_denied error
// if the path would escape it via ".." segments or an absolute path
// outside the root.
func (pr *PathResolver) Resolve(path string) (string, error) {
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Clean(filepath.Join(pr.workingDir, path))
	}

	root := filepath.Clean(pr.workingDir)
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", errutil.Newf(errutil.KindPermissionDenied, "path %q escapes working directory %q", path, pr.workingDir)
	}
	return resolved, nil
}
