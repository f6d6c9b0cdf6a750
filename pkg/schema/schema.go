package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.Mutex
)

// Schema is the reflected JSON schema of an arguments type.
type Schema struct {
	RawSchema *jsonschema.Schema
	// Parameters represents the Function parameters definition
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type
func New(t reflect.Type) (*Schema, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if s, ok := cache[t]; ok {
		return s, nil
	}

	raw := JSONSchema(t)
	params, err := ToFunctionSchema(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "schema for %s", t.String())
	}
	s := &Schema{
		RawSchema:  raw,
		Parameters: params,
	}
	cache[t] = s
	return s, nil
}

// MustNew is New that panics, for use in package level var blocks.
func MustNew(t reflect.Type) *Schema {
	s, err := New(t)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) String() string {
	js, _ := json.MarshalIndent(s.Parameters, "", "\t")
	return string(js)
}

// ToFunctionSchema flattens the root definition and inlines $defs references,
// producing the self-contained object schema that LLM tool APIs expect.
func ToFunctionSchema(tSchema *jsonschema.Schema) (*jsonschema.Schema, error) {
	refID := strings.TrimPrefix(tSchema.Ref, "#/$defs/")

	defs := make(map[string]*jsonschema.Schema)
	root := tSchema
	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if res.Type == "" {
		res.Type = "object"
	}
	if res.Properties == nil {
		res.Properties = orderedmap.New[string, *jsonschema.Schema]()
	}

	if err := resolveRefs(res.Properties, defs); err != nil {
		return nil, err
	}
	return res, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) error {
	if props == nil {
		return nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			name := strings.TrimPrefix(child.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("definition not found: %s", name)
			}
			pair.Value = def
			child = def
		}
		if err := resolveRefs(child.Properties, defs); err != nil {
			return err
		}
		if child.Items != nil && child.Items.Ref != "" {
			name := strings.TrimPrefix(child.Items.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("definition not found: %s", name)
			}
			child.Items = def
		}
	}
	return nil
}

// JSONSchema return the json schema of the type
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	jsonschema.Version = "http://json-schema.org/draft-07/schema#"

	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = true
	r.AllowAdditionalProperties = true

	// Struct names may collide across packages, so the name carries a hash of the full path.
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}

// FromAny creates a json schema from any JSON-marshalable value,
// such as map[string]any received from an MCP server.
func FromAny(t any) (*jsonschema.Schema, error) {
	js, err := json.Marshal(t)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	schema := &jsonschema.Schema{}
	err = json.Unmarshal(js, schema)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return schema, nil
}

// MustFromAny is FromAny that panics.
func MustFromAny(t any) *jsonschema.Schema {
	s, err := FromAny(t)
	if err != nil {
		panic(err)
	}
	return s
}

// ToMap converts the schema to a generic map,
// as required by SDKs that take schemas as map[string]any.
func ToMap(s *jsonschema.Schema) (map[string]any, error) {
	m := map[string]any{}
	if s == nil {
		m["type"] = "object"
		m["properties"] = map[string]any{}
		return m, nil
	}
	js, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}
