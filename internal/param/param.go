// Package param implements the action parameter model: typed declarations,
// JSON Schema export, and the raw-to-typed value parsing/validation an
// action's invocation arguments go through before Run is called.
package param

import (
	"fmt"
	"strconv"

	kasherrors "github.com/kashrun/kash/pkg/errors"
)

// Type is the closed set of parameter value types.
type Type string

const (
	TypeBool    Type = "bool"
	TypeInt     Type = "int"
	TypeFloat   Type = "float"
	TypeStr     Type = "str"
	TypePath    Type = "path"
	TypeEnum    Type = "enum"
	TypeLLMName Type = "llm_name"
)

// Param describes one action parameter.
type Param struct {
	Name          string
	Description   string
	Type          Type
	Default       any
	ValidValues   []string
	IsOpenEnded   bool
	IsExplicit    bool
}

// JSONSchema emits the JSON Schema fragment for this parameter's type,
// matching spec.md §4.F's type mapping exactly: bool→boolean,
// int→integer, float→number, str→string, enum/closed-str→string with an
// enum constraint, path→string with format "path".
func (p Param) JSONSchema() map[string]any {
	schema := map[string]any{}

	switch p.Type {
	case TypeBool:
		schema["type"] = "boolean"
	case TypeInt:
		schema["type"] = "integer"
	case TypeFloat:
		schema["type"] = "number"
	case TypePath:
		schema["type"] = "string"
		schema["format"] = "path"
	case TypeEnum, TypeLLMName:
		schema["type"] = "string"
		if len(p.ValidValues) > 0 {
			schema["enum"] = append([]string(nil), p.ValidValues...)
		}
	case TypeStr:
		schema["type"] = "string"
		if len(p.ValidValues) > 0 && !p.IsOpenEnded {
			schema["enum"] = append([]string(nil), p.ValidValues...)
		}
	default:
		schema["type"] = "string"
	}

	if p.Description != "" {
		schema["description"] = p.Description
	}
	if p.Default != nil {
		schema["default"] = p.Default
	}
	return schema
}

// ValidateValue enforces (a) enum membership when Type is an enum, and
// (b) membership in ValidValues when present and IsOpenEnded is false.
func (p Param) ValidateValue(v any) error {
	if p.Type == TypeEnum || (p.Type == TypeStr && len(p.ValidValues) > 0 && !p.IsOpenEnded) {
		s, ok := v.(string)
		if !ok {
			return invalidParam(p.Name, fmt.Sprintf("expected a string value for %q, got %T", p.Name, v))
		}
		if !contains(p.ValidValues, s) {
			return invalidParam(p.Name, fmt.Sprintf("%q is not one of the valid values for %q: %v", s, p.Name, p.ValidValues))
		}
	}
	return nil
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

func invalidParam(field, msg string) error {
	return &kasherrors.InvalidInputError{Field: field, Message: msg}
}

// Declarations is the set of parameters an action declares, keyed by name.
type Declarations map[string]Param

// RawValues is the as-supplied, untyped projection of parameter values —
// what a CLI flag parser or an MCP tool-call argument map hands kash
// before type coercion.
type RawValues map[string]any

// TypedValues is the parsed, type-checked projection of RawValues against
// a set of Declarations.
type TypedValues map[string]any

// GetParsedValue parses the raw value for name according to p's type,
// falling back to p.Default when name is absent from RawValues.
func (rv RawValues) GetParsedValue(name string, p Param) (any, error) {
	raw, present := rv[name]
	if !present || raw == nil {
		return p.Default, nil
	}

	switch p.Type {
	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, invalidParam(name, fmt.Sprintf("cannot parse %q as bool for %q", v, name))
			}
			return b, nil
		default:
			return nil, invalidParam(name, fmt.Sprintf("cannot parse %T as bool for %q", raw, name))
		}
	case TypeInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, invalidParam(name, fmt.Sprintf("cannot parse %q as int for %q", v, name))
			}
			return n, nil
		default:
			return nil, invalidParam(name, fmt.Sprintf("cannot parse %T as int for %q", raw, name))
		}
	case TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, invalidParam(name, fmt.Sprintf("cannot parse %q as float for %q", v, name))
			}
			return f, nil
		default:
			return nil, invalidParam(name, fmt.Sprintf("cannot parse %T as float for %q", raw, name))
		}
	default: // str, path, enum, llm_name
		s, ok := raw.(string)
		if !ok {
			return nil, invalidParam(name, fmt.Sprintf("cannot parse %T as string for %q", raw, name))
		}
		if err := p.ValidateValue(s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Parse resolves every declared parameter's value, raw-to-typed, returning
// a TypedValues map. Missing is_explicit parameters with no default are an
// error.
func (decls Declarations) Parse(raw RawValues) (TypedValues, error) {
	out := make(TypedValues, len(decls))
	for name, p := range decls {
		if p.IsExplicit {
			if _, present := raw[name]; !present && p.Default == nil {
				return nil, invalidParam(name, fmt.Sprintf("missing required parameter %q", name))
			}
		}
		v, err := raw.GetParsedValue(name, p)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
