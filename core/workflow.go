package core

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowStatus is the lifecycle state of a multi-agent workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusArchived WorkflowStatus = "archived"
)

var (
	// ErrEmptyWorkflow is returned when a definition has no nodes.
	ErrEmptyWorkflow = errors.New("workflow has no nodes")
	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate workflow node")
	// ErrDanglingEdge is returned when an edge references a node that does not exist.
	ErrDanglingEdge = errors.New("edge references unknown node")
)

// Position is the canvas location of a node. It has no execution semantics.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one agent step of a workflow.
type Node struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	AgentID  AgentRef  `json:"agent_id" yaml:"agent_id"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// Edge is a directed dependency between two nodes.
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
}

// WorkflowDefinition is the node and edge graph of a workflow.
type WorkflowDefinition struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Validate checks that nodes exist, node ids are unique and every edge
// connects two declared nodes.
func (d WorkflowDefinition) Validate() error {
	if len(d.Nodes) == 0 {
		return ErrEmptyWorkflow
	}
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("workflow node without id")
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range d.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: source %q", ErrDanglingEdge, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: target %q", ErrDanglingEdge, e.Target)
		}
	}
	return nil
}

// ReferencesAgent reports whether any node points at the stored agent id.
func (d WorkflowDefinition) ReferencesAgent(id int64) bool {
	for _, n := range d.Nodes {
		if !n.AgentID.IsTemplate() && n.AgentID.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the definition.
func (d WorkflowDefinition) Clone() WorkflowDefinition {
	out := WorkflowDefinition{}
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		for i, n := range d.Nodes {
			if n.Position != nil {
				p := *n.Position
				n.Position = &p
			}
			out.Nodes[i] = n
		}
	}
	if d.Edges != nil {
		out.Edges = make([]Edge, len(d.Edges))
		copy(out.Edges, d.Edges)
	}
	return out
}

// Workflow is a stored, named workflow definition.
type Workflow struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name" validate:"required,max=255"`
	Description string             `json:"description,omitempty"`
	Definition  WorkflowDefinition `json:"workflow_definition"`
	Status      WorkflowStatus     `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the workflow.
func (w Workflow) Clone() Workflow {
	w.Definition = w.Definition.Clone()
	return w
}

// NodeResult is the outcome of running one workflow node. Output is nil when
// the node failed before its agent produced a reply.
type NodeResult struct {
	AgentID     AgentRef       `json:"agent_id"`
	AgentName   string         `json:"agent_name,omitempty"`
	Output      *string        `json:"output,omitempty"`
	ToolResults map[string]any `json:"tool_results,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// HasOutput reports whether the node produced an output value.
func (r NodeResult) HasOutput() bool { return r.Output != nil }

// OutputText returns the output or the empty string.
func (r NodeResult) OutputText() string {
	if r.Output == nil {
		return ""
	}
	return *r.Output
}

// CloneNodeResults returns a copy of results with independent entries.
func CloneNodeResults(results map[string]NodeResult) map[string]NodeResult {
	if results == nil {
		return nil
	}
	out := make(map[string]NodeResult, len(results))
	for k, v := range results {
		if v.Output != nil {
			s := *v.Output
			v.Output = &s
		}
		v.ToolResults = cloneMap(v.ToolResults)
		out[k] = v
	}
	return out
}
