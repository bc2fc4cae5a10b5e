package testutil

import (
	"github.com/hupe1980/agentstudio/core"
)

// AgentBuilder helps construct agent configurations with fluent chaining.
// Example:
//
//	cfg := NewAgentBuilder("writer").Prompt("Be terse.").Tools("calculator").Deployed().Build()
type AgentBuilder struct {
	cfg core.AgentConfig
}

// NewAgentBuilder creates a builder for an agent with the given name.
func NewAgentBuilder(name string) *AgentBuilder {
	return &AgentBuilder{cfg: core.AgentConfig{
		Name:        name,
		Temperature: core.DefaultTemperature,
		MaxTokens:   core.DefaultMaxTokens,
		Status:      core.AgentStatusDraft,
	}}
}

// ID sets the agent id (chainable).
func (b *AgentBuilder) ID(id int64) *AgentBuilder {
	b.cfg.ID = id
	return b
}

// Prompt sets the system prompt (chainable).
func (b *AgentBuilder) Prompt(system string) *AgentBuilder {
	b.cfg.SystemPrompt = system
	return b
}

// Template sets the user prompt template (chainable).
func (b *AgentBuilder) Template(tpl string) *AgentBuilder {
	b.cfg.UserPromptTemplate = tpl
	return b
}

// Tools enables tool use and switches on the named tools (chainable).
func (b *AgentBuilder) Tools(names ...string) *AgentBuilder {
	b.cfg.ToolsEnabled = true
	if b.cfg.Tools == nil {
		b.cfg.Tools = map[string]bool{}
	}
	for _, n := range names {
		b.cfg.Tools[n] = true
	}
	return b
}

// ToolConfig sets the configuration passed to the named tool (chainable).
func (b *AgentBuilder) ToolConfig(name string, cfg map[string]any) *AgentBuilder {
	if b.cfg.ToolConfig == nil {
		b.cfg.ToolConfig = map[string]map[string]any{}
	}
	b.cfg.ToolConfig[name] = cfg
	return b
}

// Memory enables conversation memory (chainable).
func (b *AgentBuilder) Memory() *AgentBuilder {
	b.cfg.MemoryEnabled = true
	return b
}

// AutoDeploy marks the agent for deployment on creation (chainable).
func (b *AgentBuilder) AutoDeploy() *AgentBuilder {
	b.cfg.AutoDeploy = true
	return b
}

// Deployed sets the deployed status (chainable).
func (b *AgentBuilder) Deployed() *AgentBuilder {
	b.cfg.Status = core.AgentStatusDeployed
	return b
}

// Build returns a copy of the configuration.
func (b *AgentBuilder) Build() core.AgentConfig {
	return b.cfg.Clone()
}
