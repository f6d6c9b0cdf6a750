package mathtools

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "mathtools")

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Tool is a math operation exposed to agents.
type Tool struct {
	name        string
	description string
	params      *jsonschema.Schema
	run         func(ctx context.Context, input string) (Value, error)
}

var _ tools.ITool = (*Tool)(nil)

// newTool binds an operation to its arguments type A,
// whose reflected schema is advertised to models.
func newTool[A any](name, description string, fn func(args *A) (Value, error)) *Tool {
	s := schema.MustNew(reflect.TypeFor[A]())
	return &Tool{
		name:        name,
		description: description,
		params:      s.Parameters,
		run: func(_ context.Context, input string) (Value, error) {
			args := new(A)
			if err := decodeArgs(input, args); err != nil {
				return Value{}, err
			}
			return fn(args)
		},
	}
}

// Name returns the name of the tool.
func (t *Tool) Name() string {
	return t.name
}

// Description returns the description of the tool.
func (t *Tool) Description() string {
	return t.description
}

// Parameters returns the JSON schema of the tool arguments.
func (t *Tool) Parameters() *jsonschema.Schema {
	return t.params
}

// Run executes the tool with JSON arguments.
func (t *Tool) Run(ctx context.Context, input string) (Value, error) {
	return t.run(ctx, input)
}

// Call executes the tool and renders the result as text.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	v, err := t.run(ctx, input)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Registry is an ordered set of math tools.
type Registry struct {
	list   []*Tool
	byName map[string]*Tool
}

// NewRegistry returns a registry of the given tools.
// Names must be unique.
func NewRegistry(list ...*Tool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Tool, len(list)),
	}
	for _, t := range list {
		if _, ok := r.byName[t.name]; ok {
			return nil, errors.Newf("duplicate tool: %s", t.name)
		}
		r.list = append(r.list, t)
		r.byName[t.name] = t
	}
	return r, nil
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []*Tool {
	return append([]*Tool(nil), r.list...)
}

// ITools returns the tools as agent tools.
func (r *Registry) ITools() []tools.ITool {
	res := make([]tools.ITool, len(r.list))
	for i, t := range r.list {
		res[i] = t
	}
	return res
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.list))
	for i, t := range r.list {
		names[i] = t.name
	}
	return names
}

// Get returns the tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name, input string) (Value, error) {
	t, ok := r.byName[name]
	if !ok {
		return Value{}, errors.Wrap(ErrToolNotFound, name)
	}
	v, err := t.Run(ctx, input)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "input", input, "err", err.Error())
		return Value{}, err
	}
	logger.ContextKV(ctx, xlog.DEBUG, "tool", name, "input", input, "result", v.String())
	return v, nil
}

// Subset returns a registry restricted to names, in the order given.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	list := make([]*Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.byName[name]
		if !ok {
			return nil, errors.Wrap(ErrToolNotFound, name)
		}
		list = append(list, t)
	}
	return NewRegistry(list...)
}
