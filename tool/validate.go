package tool

import "fmt"

// ValidationError describes the first parameter that failed validation.
type ValidationError struct {
	Param   string `json:"param"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateParameters checks params against specs. Every required parameter
// must be present and non-nil, and every present parameter must match its
// declared type.
// Parameters not declared in specs are ignored. Checks run in declaration
// order so the reported error is deterministic.
func ValidateParameters(specs []ParameterSpec, params map[string]any) error {
	for _, p := range specs {
		if !p.Required {
			continue
		}
		if v, ok := params[p.Name]; !ok || v == nil {
			return &ValidationError{Param: p.Name, Message: fmt.Sprintf("missing required parameter: %s", p.Name)}
		}
	}

	for _, p := range specs {
		v, ok := params[p.Name]
		if !ok {
			continue
		}
		if v == nil && !p.Required {
			continue
		}
		if !p.Type.Accepts(v) {
			return &ValidationError{Param: p.Name, Value: v, Message: fmt.Sprintf("parameter %s must be a %s", p.Name, p.Type)}
		}
	}

	return nil
}

// applyDefaults returns a copy of params with defaults filled in for
// omitted parameters. The caller's map is not modified.
func applyDefaults(specs []ParameterSpec, params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(specs))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range specs {
		if p.Default == nil {
			continue
		}
		if _, ok := out[p.Name]; !ok {
			out[p.Name] = p.Default
		}
	}
	return out
}
