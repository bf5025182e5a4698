package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"investigator/internal/errutil"
	"investigator/internal/tools"
)

// RipgrepTool searches file contents for a pattern. It shells out to rg
// when available and falls back to a Go-native regular-expression walk
// otherwise, mirroring the teacher's grep/ripgrep fallback in
// internal/tools/builtin/search_tools.go — the investigator must keep
// working in a container image that lacks the rg binary.
type RipgrepTool struct {
	resolver  *PathResolver
	rgPath    string
	rgChecked bool
}

// NewRipgrepTool returns a RipgrepTool rooted at workingDir.
func NewRipgrepTool(workingDir string) *RipgrepTool {
	return &RipgrepTool{resolver: NewPathResolver(workingDir)}
}

func (t *RipgrepTool) Name() string { return "ripgrep" }

func (t *RipgrepTool) Description() string {
	return "Search file contents for a regular expression pattern."
}

func (t *RipgrepTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regular expression to search for",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory or file to search, relative to the working directory",
				"default":     ".",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of matching lines to return",
				"default":     200,
				"minimum":     1,
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *RipgrepTool) Execute(ctx context.Context, args map[string]interface{}) (*tools.Result, error) {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return nil, errutil.New(errutil.KindInvalidParams, "missing required parameter: pattern")
	}
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	maxResults := 200
	if v, ok := args["max_results"]; ok {
		if n := toInt(v); n > 0 {
			maxResults = n
		}
	}

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	if rg := t.lookupRipgrep(); rg != "" {
		matches, err := runRipgrepBinary(ctx, rg, pattern, resolved, maxResults)
		if err == nil {
			return formatMatches(pattern, path, matches), nil
		}
		// Fall through to the native walk on any rg execution failure
		// (e.g. unsupported flag on an unexpected rg version).
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidParams, err, "compile pattern")
	}
	matches, err := walkAndGrep(resolved, re, maxResults)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindExecutionFailed, err, "search files")
	}
	return formatMatches(pattern, path, matches), nil
}

// rgMatch is one matching line, with its path relative to the search root.
type rgMatch struct {
	path string
	line int
	text string
}

func (t *RipgrepTool) lookupRipgrep() string {
	if t.rgChecked {
		return t.rgPath
	}
	t.rgChecked = true
	if p, err := exec.LookPath("rg"); err == nil {
		t.rgPath = p
	}
	return t.rgPath
}

func runRipgrepBinary(ctx context.Context, rgPath, pattern, root string, maxResults int) ([]rgMatch, error) {
	cmd := exec.CommandContext(ctx, rgPath,
		"--line-number", "--no-heading", "--color", "never",
		"--max-count", fmt.Sprintf("%d", maxResults),
		"--", pattern, root)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil // rg exits 1 on "no matches", not an error
		}
		return nil, err
	}

	var matches []rgMatch
	lines := strings.Split(stdout.String(), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		rel, relErr := filepath.Rel(root, parts[0])
		if relErr != nil {
			rel = parts[0]
		}
		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, rgMatch{path: rel, line: lineNum, text: parts[2]})
		if len(matches) >= maxResults {
			break
		}
	}
	return matches, nil
}

func walkAndGrep(root string, re *regexp.Regexp, maxResults int) ([]rgMatch, error) {
	var matches []rgMatch
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return nil // unreadable file, skip it
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				rel, relErr := filepath.Rel(root, p)
				if relErr != nil {
					rel = p
				}
				matches = append(matches, rgMatch{path: rel, line: lineNum, text: line})
				if len(matches) >= maxResults {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func formatMatches(pattern, path string, matches []rgMatch) *tools.Result {
	if len(matches) == 0 {
		return &tools.Result{
			Content: fmt.Sprintf("no matches for %q under %s", pattern, path),
			Data: map[string]interface{}{
				"pattern": pattern,
				"path":    path,
				"matches": []interface{}{},
			},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matches for %q under %s\n", len(matches), pattern, path)
	data := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d:%s\n", m.path, m.line, m.text)
		data = append(data, map[string]interface{}{
			"path": m.path,
			"line": m.line,
			"text": m.text,
		})
	}

	return &tools.Result{
		Content: b.String(),
		Data: map[string]interface{}{
			"pattern": pattern,
			"path":    path,
			"matches": data,
		},
	}
}
