package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"investigator/internal/errutil"
	"investigator/internal/tools"
)

// ListDirTool lists the entries of a directory, optionally recursively.
// Grounded on the teacher's FileListTool (internal/tools/builtin/
// file_operations.go), trimmed to the read-only listing spec.md's
// keyFiles/synthesis-filter logic expects from a "list_dir" tool name.
type ListDirTool struct {
	resolver *PathResolver
}

// NewListDirTool returns a ListDirTool rooted at workingDir.
func NewListDirTool(workingDir string) *ListDirTool {
	return &ListDirTool{resolver: NewPathResolver(workingDir)}
}

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List files and directories under a path."
}

func (t *ListDirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list, relative to the working directory",
				"default":     ".",
			},
			"recursive": map[string]interface{}{
				"type":        "boolean",
				"description": "List subdirectories recursively",
				"default":     false,
			},
		},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	recursive, _ := args["recursive"].(bool)

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errutil.Newf(errutil.KindNotFound, "directory does not exist: %s", path)
		}
		return nil, errutil.Wrap(errutil.KindExecutionFailed, err, "stat directory")
	}
	if !info.IsDir() {
		return nil, errutil.Newf(errutil.KindInvalidParams, "%s is not a directory", path)
	}

	var entries []string
	if recursive {
		err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p == resolved {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(resolved, p)
			if d.IsDir() {
				rel += "/"
			}
			entries = append(entries, rel)
			return nil
		})
		if err != nil {
			return nil, errutil.Wrap(errutil.KindExecutionFailed, err, "walk directory")
		}
	} else {
		dirEntries, err := os.ReadDir(resolved)
		if err != nil {
			return nil, errutil.Wrap(errutil.KindExecutionFailed, err, "read directory")
		}
		for _, e := range dirEntries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			entries = append(entries, name)
		}
	}

	sort.Strings(entries)

	var b strings.Builder
	fmt.Fprintf(&b, "%d entries under %s\n", len(entries), path)
	for _, e := range entries {
		b.WriteString(e)
		b.WriteString("\n")
	}

	return &tools.Result{
		Content: b.String(),
		Data: map[string]interface{}{
			"path":    path,
			"entries": entries,
		},
	}, nil
}
