package testutil

import (
	"fmt"

	"github.com/hupe1980/agentstudio/core"
)

// WorkflowBuilder helps construct workflow definitions with fluent chaining.
// Example:
//
//	def := NewWorkflowBuilder().Node("A", 1).Node("B", 2).Edge("A", "B").Build()
type WorkflowBuilder struct {
	def core.WorkflowDefinition
}

// NewWorkflowBuilder creates an empty definition builder.
func NewWorkflowBuilder() *WorkflowBuilder {
	return &WorkflowBuilder{}
}

// Node appends a node bound to a stored agent (chainable).
func (b *WorkflowBuilder) Node(id string, agentID int64) *WorkflowBuilder {
	b.def.Nodes = append(b.def.Nodes, core.Node{ID: id, AgentID: core.AgentID(agentID), Label: id})
	return b
}

// TemplateNode appends a node bound to an agent template (chainable).
func (b *WorkflowBuilder) TemplateNode(id, template string) *WorkflowBuilder {
	b.def.Nodes = append(b.def.Nodes, core.Node{ID: id, AgentID: core.TemplateID(template), Label: id})
	return b
}

// Edge appends a directed edge (chainable).
func (b *WorkflowBuilder) Edge(source, target string) *WorkflowBuilder {
	b.def.Edges = append(b.def.Edges, core.Edge{
		ID:     fmt.Sprintf("%s-%s", source, target),
		Source: source,
		Target: target,
	})
	return b
}

// Build returns a copy of the definition.
func (b *WorkflowBuilder) Build() core.WorkflowDefinition {
	return b.def.Clone()
}
