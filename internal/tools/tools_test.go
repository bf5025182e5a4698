package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name string
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return "a fake tool named " + f.name }
func (f fakeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string"},
		},
		"required": []string{"path"},
	}
}
func (f fakeTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	return &Result{Content: "ok"}, nil
}

func TestRegisterRespectsDenylist(t *testing.T) {
	r := NewRegistry()
	r.SetDisabledTools([]string{"ripgrep"})
	r.Register(fakeTool{name: "ripgrep"})
	r.Register(fakeTool{name: "read_file"})

	_, ok := r.Get("ripgrep")
	require.False(t, ok)
	_, ok = r.Get("read_file")
	require.True(t, ok)
}

func TestRegisterRespectsAllowlist(t *testing.T) {
	r := NewRegistry()
	r.SetEnabledTools([]string{"read_file"})
	r.Register(fakeTool{name: "read_file"})
	r.Register(fakeTool{name: "ripgrep"})

	require.Equal(t, []string{"read_file"}, r.Names())
}

func TestSchemasAreSortedAndWireShaped(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeTool{name: "zeta"})
	r.Register(fakeTool{name: "alpha"})

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	require.Equal(t, "alpha", schemas[0]["name"])
	require.Equal(t, "zeta", schemas[1]["name"])

	params, ok := schemas[0]["parameters"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "object", params["type"])
	require.Contains(t, params, "properties")
	require.Contains(t, params, "required")
}

func TestValidateArgsRejectsMissingRequiredField(t *testing.T) {
	schema, err := CompileSchema(fakeTool{name: "x"}.Parameters())
	require.NoError(t, err)

	require.NoError(t, ValidateArgs(schema, map[string]interface{}{"path": "a.go"}))
	require.Error(t, ValidateArgs(schema, map[string]interface{}{}))
}

func TestRegistryValidateArgsUsesCompiledSchema(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeTool{name: "read_file"})

	require.NoError(t, r.ValidateArgs("read_file", map[string]interface{}{"path": "a.go"}))
	require.Error(t, r.ValidateArgs("read_file", map[string]interface{}{}))
}

func TestRegistryValidateArgsUnknownToolIsNoop(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.ValidateArgs("does_not_exist", map[string]interface{}{}))
}

func TestUnknownToolErrorListsAvailableNames(t *testing.T) {
	err := UnknownToolError("frobnicate", []string{"read_file", "ripgrep"})
	require.Contains(t, err.Error(), "frobnicate")
	require.Contains(t, err.Error(), "read_file")
	require.Contains(t, err.Error(), "ripgrep")
}
