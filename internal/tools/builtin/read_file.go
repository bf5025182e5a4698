package builtin

import (
	"context"
	"os"
	"strings"

	"investigator/internal/errutil"
	"investigator/internal/tools"
)

// ReadFileTool reads a file, optionally restricted to a line range.
// Grounded on the teacher's FileReadTool (internal/tools/builtin/
// file_operations.go), trimmed to read-only semantics — the
// investigator never edits the codebase it is explaining.
type ReadFileTool struct {
	resolver *PathResolver
}

// NewReadFileTool returns a ReadFileTool rooted at workingDir.
func NewReadFileTool(workingDir string) *ReadFileTool {
	return &ReadFileTool{resolver: NewPathResolver(workingDir)}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file, optionally limited to a line range."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file, relative to the working directory",
			},
			"start_line": map[string]interface{}{
				"type":        "integer",
				"description": "Starting line number (1-based, optional)",
				"minimum":     1,
			},
			"end_line": map[string]interface{}{
				"type":        "integer",
				"description": "Ending line number (1-based, optional)",
				"minimum":     1,
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, errutil.New(errutil.KindInvalidParams, "missing required parameter: path")
	}

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errutil.Newf(errutil.KindNotFound, "file does not exist: %s", path)
		}
		return nil, errutil.Wrap(errutil.KindExecutionFailed, err, "read file")
	}

	content := string(data)
	totalLines := strings.Count(content, "\n") + 1

	if startArg, ok := args["start_line"]; ok {
		lines := strings.Split(content, "\n")
		start := toInt(startArg) - 1
		end := len(lines)
		if endArg, ok := args["end_line"]; ok {
			end = toInt(endArg)
		}
		if start < 0 {
			start = 0
		}
		if start >= len(lines) {
			return nil, errutil.Newf(errutil.KindInvalidParams, "start_line %d exceeds file length %d", start+1, len(lines))
		}
		if end > len(lines) {
			end = len(lines)
		}
		if end <= start {
			end = start + 1
		}
		content = strings.Join(lines[start:end], "\n")
	}

	return &tools.Result{
		Content: content,
		Data: map[string]interface{}{
			"path":        path,
			"resolved":    resolved,
			"total_lines": totalLines,
			"bytes":       len(data),
		},
	}, nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
