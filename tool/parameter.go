package tool

import "github.com/hupe1980/agentstudio/internal/util"

// ParameterType enumerates the JSON types a tool parameter may declare.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Valid reports whether t is one of the supported parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Accepts reports whether a decoded value satisfies the type.
func (t ParameterType) Accepts(v any) bool {
	return util.IsJSONType(v, string(t))
}

// ParameterSpec describes one named tool parameter. Items is only meaningful
// for arrays and Properties only for objects; Schema drops them otherwise.
type ParameterSpec struct {
	Name        string         `json:"name"`
	Type        ParameterType  `json:"type"`
	Description string         `json:"description"`
	Required    bool           `json:"required"`
	Default     any            `json:"default,omitempty"`
	Enum        []any          `json:"enum,omitempty"`
	Items       map[string]any `json:"items,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// ParamOption customises a ParameterSpec.
type ParamOption func(p *ParameterSpec)

// NewParam creates a required parameter of the given type.
func NewParam(name string, typ ParameterType, description string, opts ...ParamOption) ParameterSpec {
	p := ParameterSpec{Name: name, Type: typ, Description: description, Required: true}
	for _, fn := range opts {
		fn(&p)
	}
	return p
}

// StringParam creates a required string parameter.
func StringParam(name, description string, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeString, description, opts...)
}

// NumberParam creates a required number parameter.
func NumberParam(name, description string, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeNumber, description, opts...)
}

// IntegerParam creates a required integer parameter.
func IntegerParam(name, description string, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeInteger, description, opts...)
}

// BooleanParam creates a required boolean parameter.
func BooleanParam(name, description string, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeBoolean, description, opts...)
}

// ArrayParam creates a required array parameter whose elements follow items.
func ArrayParam(name, description string, items map[string]any, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeArray, description, append([]ParamOption{func(p *ParameterSpec) { p.Items = items }}, opts...)...)
}

// ObjectParam creates a required object parameter with the given property schemas.
func ObjectParam(name, description string, properties map[string]any, opts ...ParamOption) ParameterSpec {
	return NewParam(name, TypeObject, description, append([]ParamOption{func(p *ParameterSpec) { p.Properties = properties }}, opts...)...)
}

// Optional marks the parameter as not required.
func Optional() ParamOption {
	return func(p *ParameterSpec) { p.Required = false }
}

// WithDefault sets the value used when the parameter is omitted.
func WithDefault(v any) ParamOption {
	return func(p *ParameterSpec) { p.Default = v }
}

// WithEnum restricts the parameter to a set of values.
func WithEnum(values ...any) ParamOption {
	return func(p *ParameterSpec) { p.Enum = values }
}

// Schema returns the JSON schema fragment of the parameter.
func (p ParameterSpec) Schema() map[string]any {
	s := map[string]any{
		"type":        string(p.Type),
		"description": p.Description,
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	switch p.Type {
	case TypeArray:
		if p.Items != nil {
			s["items"] = p.Items
		}
	case TypeObject:
		if p.Properties != nil {
			s["properties"] = p.Properties
		}
	}
	return s
}

// ParametersFromStruct derives parameter specs from a struct's exported
// fields (json, description and enum tags).
func ParametersFromStruct(structType any) []ParameterSpec {
	fields := util.StructFields(structType)
	params := make([]ParameterSpec, 0, len(fields))
	for _, f := range fields {
		p := ParameterSpec{Name: f.Name, Type: ParameterType(f.Type), Description: f.Description, Required: f.Required}
		for _, v := range f.Enum {
			p.Enum = append(p.Enum, v)
		}
		params = append(params, p)
	}
	return params
}
