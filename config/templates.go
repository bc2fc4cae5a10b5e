package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentstudio/core"
)

// LoadTemplates reads a YAML catalog of agent templates keyed by template id.
// Entries use the same field names as the REST API. Templates are always
// deployed; a missing name defaults to the key.
func LoadTemplates(path string) (map[string]core.AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	return DecodeTemplates(raw)
}

// DecodeTemplates converts generic YAML values into agent templates.
func DecodeTemplates(raw map[string]any) (map[string]core.AgentConfig, error) {
	out := make(map[string]core.AgentConfig, len(raw))
	for id, v := range raw {
		cfg := core.AgentConfig{
			Temperature: core.DefaultTemperature,
			MaxTokens:   core.DefaultMaxTokens,
		}
		if err := Remarshal(v, &cfg); err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		if cfg.Name == "" {
			cfg.Name = id
		}
		cfg.Status = core.AgentStatusDeployed
		out[id] = cfg
	}
	return out, nil
}

// Remarshal decodes a generic YAML value into a struct with JSON tags.
func Remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
