package agentstudio

import (
	"context"

	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/tool"
)

// ListTools returns tool descriptors. Disabled tools are only included when
// enabledOnly is false.
func (s *Studio) ListTools(category string, enabledOnly bool) []tool.Descriptor {
	return s.registry.List(tool.Filter{Category: category, IncludeDisabled: !enabledOnly})
}

// GetTool returns a tool descriptor.
func (s *Studio) GetTool(id string) (tool.Descriptor, bool) {
	return s.registry.Descriptor(id)
}

// ExecuteTool runs a tool outside of any agent.
func (s *Studio) ExecuteTool(ctx context.Context, id string, params map[string]any, cfg tool.Config) *tool.Result {
	return s.executor.Execute(ctx, id, params, cfg)
}

// ToolDefinitions exports function-calling schemas for ids, or for every
// enabled tool when ids is empty.
func (s *Studio) ToolDefinitions(ids ...string) []model.ToolDefinition {
	return s.registry.ToolDefinitions(ids...)
}

// ToolStats summarises the registry.
func (s *Studio) ToolStats() tool.Stats {
	return s.registry.Stats()
}
