// Package tools implements the Tool/ToolRegistry contract of spec.md
// §4.3, grounded on internal/tools/registry/registry.go's Tool
// interface and metadata shape. Registry.Register compiles each tool's
// parameter map with github.com/santhosh-tekuri/jsonschema/v6 (carried
// by the zkoranges-go-claw example for exactly this MCP/tool-schema
// concern) and Investigator.executeTool calls Registry.ValidateArgs
// before Execute, so a model-supplied argument mismatch is reported as
// a normal tool failure instead of reaching a builtin's hand-rolled
// field check.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"investigator/internal/errutil"
)

// Result is what a Tool.Execute call returns.
type Result struct {
	Content string
	Data    map[string]interface{}
}

// Tool is the capability contract spec.md §4.3 describes: a name,
// description, JSON-Schema-shaped parameters, and an execute function.
// Implementations are polymorphic by capability, not by inheritance
// (spec.md §9).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Registry is a name -> Tool map with an optional allow/deny list.
// Grounded on internal/tools/registry/registry.go's Registry, trimmed
// to the contract spec.md actually specifies (no metadata, versioning,
// or category inference — that belonged to the teacher's package-
// manager-style tool marketplace, which nothing in this spec needs).
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema

	enabled  map[string]bool // nil means "no allowlist": everything not denied is enabled
	disabled map[string]bool
}

// NewRegistry returns an empty registry with no allow/deny restriction.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool), schemas: make(map[string]*jsonschema.Schema)}
}

// SetEnabledTools installs an allowlist: only these names (subject to
// the denylist) may be registered.
func (r *Registry) SetEnabledTools(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if names == nil {
		r.enabled = nil
		return
	}
	r.enabled = make(map[string]bool, len(names))
	for _, n := range names {
		r.enabled[n] = true
	}
}

// SetDisabledTools installs a denylist.
func (r *Registry) SetDisabledTools(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled = make(map[string]bool, len(names))
	for _, n := range names {
		r.disabled[n] = true
	}
}

// Register adds a tool to the registry. Registering a tool that is not
// allowlisted (when an allowlist is set) or that is denylisted is a
// silent no-op, per spec.md §4.3. The tool's parameter map is compiled
// into a JSON-Schema validator eagerly so a bad schema surfaces at
// startup rather than on the first tool call; a tool whose parameters
// don't compile (e.g. no properties declared) is registered without a
// validator, and ValidateArgs becomes a no-op for it.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if r.disabled[name] {
		return
	}
	if r.enabled != nil && !r.enabled[name] {
		return
	}
	r.tools[name] = t
	if schema, err := CompileSchema(WireParameters(t.Parameters())); err == nil {
		r.schemas[name] = schema
	}
}

// ValidateArgs checks args for the named tool against its compiled
// parameter schema (see Register), returning a KindInvalidParams error
// on mismatch. Unknown tool names and tools with no compiled schema are
// not validated here.
func (r *Registry) ValidateArgs(name string, args map[string]interface{}) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()
	return ValidateArgs(schema, args)
}

// Get looks up a tool by name. The bool is false for an unknown name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted, so the "unknown
// tool" error message (spec.md §7) and the system-prompt tool catalog
// render deterministically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the LLM wire representation of every registered
// tool's parameters: {type: "object", properties, required}.
func (r *Registry) Schemas() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]map[string]interface{}, 0, len(r.tools))
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		t := r.tools[n]
		out = append(out, map[string]interface{}{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  WireParameters(t.Parameters()),
		})
	}
	return out
}

// WireParameters produces the LLM-wire {type, properties, required}
// shape from a registry-form parameter map (spec.md §4.3).
func WireParameters(params map[string]interface{}) map[string]interface{} {
	properties, _ := params["properties"].(map[string]interface{})
	required, _ := params["required"].([]string)
	wire := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		wire["required"] = required
	}
	return wire
}

// CompileSchema compiles a tool's parameter map into a validator, used
// by Register so that ValidateArgs applies real JSON-Schema semantics
// (enum, minimum, type) rather than hand-written field checks.
func CompileSchema(params map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidParams, err, "marshal schema")
	}
	c := jsonschema.NewCompiler()
	res, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidParams, err, "unmarshal schema")
	}
	const resourceName = "tool-params.json"
	if err := c.AddResource(resourceName, res); err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidParams, err, "add schema resource")
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindInvalidParams, err, "compile schema")
	}
	return schema, nil
}

// ValidateArgs validates args against a tool's compiled schema,
// returning a KindInvalidParams error on mismatch.
func ValidateArgs(schema *jsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if err := schema.Validate(args); err != nil {
		return errutil.Wrap(errutil.KindInvalidParams, err, "validate tool arguments")
	}
	return nil
}

// UnknownToolError builds the self-correcting error message spec.md §7
// requires: the result message lists available tool names so the model
// can recover.
func UnknownToolError(name string, available []string) error {
	return errutil.Newf(errutil.KindNotFound, "unknown tool %q; available tools: %s", name, joinNames(available))
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none registered)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
