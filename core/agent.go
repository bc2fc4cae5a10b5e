package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AgentStatus is the deployment state of an agent.
type AgentStatus string

const (
	AgentStatusDraft    AgentStatus = "draft"
	AgentStatusDeployed AgentStatus = "deployed"
	AgentStatusArchived AgentStatus = "archived"
)

// Agent defaults applied when a configuration leaves them unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// AgentConfig is the stored definition of an LLM agent.
type AgentConfig struct {
	ID                     int64                     `json:"id"`
	Name                   string                    `json:"agent_name" validate:"required,max=255"`
	Description            string                    `json:"description,omitempty"`
	ExpectedOutcome        string                    `json:"expected_outcome,omitempty"`
	DeploymentChannel      string                    `json:"deployment_channel,omitempty"`
	InputSchema            map[string]any            `json:"input_schema,omitempty"`
	OutputSchema           map[string]any            `json:"output_schema,omitempty"`
	SystemPrompt           string                    `json:"system_prompt,omitempty"`
	UserPromptTemplate     string                    `json:"user_prompt_template,omitempty"`
	AdditionalInstructions string                    `json:"additional_instructions,omitempty"`
	Temperature            float64                   `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens              int                       `json:"max_tokens" validate:"gte=0"`
	MemoryEnabled          bool                      `json:"memory_enabled"`
	ToolsEnabled           bool                      `json:"tools_enabled"`
	Tools                  map[string]bool           `json:"tools,omitempty"`
	ToolConfig             map[string]map[string]any `json:"tool_config,omitempty"`
	AutoDeploy             bool                      `json:"auto_deploy"`
	EnableMonitoring       bool                      `json:"enable_monitoring"`
	SendNotifications      bool                      `json:"send_notifications"`
	Status                 AgentStatus               `json:"status"`
	CreatedAt              time.Time                 `json:"created_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
}

// EnabledTools returns the names of tools switched on for the agent in
// lexical order. Tool use must be enabled on the agent as a whole.
func (a AgentConfig) EnabledTools() []string {
	if !a.ToolsEnabled {
		return nil
	}
	names := make([]string, 0, len(a.Tools))
	for name, on := range a.Tools {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// WithDefaults fills zero sampling parameters with the package defaults.
func (a AgentConfig) WithDefaults() AgentConfig {
	if a.MaxTokens == 0 {
		a.MaxTokens = DefaultMaxTokens
	}
	if a.Status == "" {
		a.Status = AgentStatusDraft
	}
	return a
}

// Clone returns a deep copy of the configuration.
func (a AgentConfig) Clone() AgentConfig {
	a.InputSchema = cloneMap(a.InputSchema)
	a.OutputSchema = cloneMap(a.OutputSchema)
	if a.Tools != nil {
		tools := make(map[string]bool, len(a.Tools))
		for k, v := range a.Tools {
			tools[k] = v
		}
		a.Tools = tools
	}
	if a.ToolConfig != nil {
		tc := make(map[string]map[string]any, len(a.ToolConfig))
		for k, v := range a.ToolConfig {
			tc[k] = cloneMap(v)
		}
		a.ToolConfig = tc
	}
	return a
}

// AgentRef points a workflow node at an agent. Stored agents are referenced
// by numeric id, catalog templates by string id.
type AgentRef struct {
	ID       int64
	Template string
}

// AgentID returns a reference to a stored agent.
func AgentID(id int64) AgentRef { return AgentRef{ID: id} }

// TemplateID returns a reference to an agent template.
func TemplateID(id string) AgentRef { return AgentRef{Template: id} }

// IsTemplate reports whether the reference names a template.
func (r AgentRef) IsTemplate() bool { return r.Template != "" }

// IsZero reports whether the reference is unset.
func (r AgentRef) IsZero() bool { return r.ID == 0 && r.Template == "" }

func (r AgentRef) String() string {
	if r.IsTemplate() {
		return r.Template
	}
	return strconv.FormatInt(r.ID, 10)
}

// MarshalJSON encodes stored agents as numbers and templates as strings.
func (r AgentRef) MarshalJSON() ([]byte, error) {
	if r.IsTemplate() {
		return json.Marshal(r.Template)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a number, a numeric string or a template string.
func (r *AgentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = AgentRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseAgentRef(s)
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("agent reference must be a number or string: %w", err)
	}
	*r = AgentRef{ID: id}
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for workflow bundle files.
func (r *AgentRef) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*r = AgentRef{ID: int64(v)}
	case int64:
		*r = AgentRef{ID: v}
	case string:
		*r = ParseAgentRef(v)
	case nil:
		*r = AgentRef{}
	default:
		return fmt.Errorf("agent reference must be a number or string, got %T", raw)
	}
	return nil
}

// ParseAgentRef interprets s as a numeric agent id when possible and as a
// template id otherwise.
func ParseAgentRef(s string) AgentRef {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return AgentRef{ID: id}
	}
	return AgentRef{Template: s}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
