package tool

import "github.com/hupe1980/agentstudio/model"

// DefaultVersion is assigned to descriptors that do not declare a version.
const DefaultVersion = "1.0.0"

// Descriptor is the static metadata of a tool.
type Descriptor struct {
	ID           string          `json:"tool_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Version      string          `json:"version"`
	Tags         []string        `json:"tags,omitempty"`
	Parameters   []ParameterSpec `json:"parameters"`
	RequiresAuth bool            `json:"requires_auth"`
	AuthType     string          `json:"auth_type,omitempty"`
	Disabled     bool            `json:"disabled,omitempty"`
	UseCount     int64           `json:"use_count"`
}

// IsEnabled reports whether the tool is offered to agents.
func (d Descriptor) IsEnabled() bool { return !d.Disabled }

// Parameter returns the spec of the named parameter.
func (d Descriptor) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ParametersSchema returns the JSON schema object describing all parameters.
func (d Descriptor) ParametersSchema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		properties[p.Name] = p.Schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ToolDefinition renders the descriptor as a function-calling schema. The
// function is named after the tool id.
func (d Descriptor) ToolDefinition() model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        d.ID,
			Description: d.Description,
			Parameters:  d.ParametersSchema(),
		},
	}
}

func (d Descriptor) clone() Descriptor {
	if d.Tags != nil {
		d.Tags = append([]string(nil), d.Tags...)
	}
	if d.Parameters != nil {
		d.Parameters = append([]ParameterSpec(nil), d.Parameters...)
	}
	return d
}
