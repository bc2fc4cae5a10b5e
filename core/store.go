package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAgentNotFound is returned when an agent reference cannot be resolved.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrWorkflowNotFound is returned when a workflow id is unknown.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// ListOptions pages through list results.
type ListOptions struct {
	Skip  int
	Limit int
}

// Window applies the options to a slice length and returns the bounds.
func (o ListOptions) Window(n int) (int, int) {
	start := o.Skip
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if o.Limit > 0 && start+o.Limit < n {
		end = start + o.Limit
	}
	return start, end
}

// AgentResolver looks up the agent a workflow node refers to.
type AgentResolver interface {
	ResolveAgent(ctx context.Context, ref AgentRef) (*AgentConfig, error)
}

// AgentRepository persists agent configurations.
type AgentRepository interface {
	AgentResolver
	CreateAgent(ctx context.Context, agent *AgentConfig) error
	GetAgent(ctx context.Context, id int64) (*AgentConfig, error)
	ListAgents(ctx context.Context, opts ListOptions) ([]*AgentConfig, error)
	UpdateAgent(ctx context.Context, agent *AgentConfig) error
	DeleteAgent(ctx context.Context, id int64) error
}

// WorkflowRepository persists multi-agent workflow definitions.
type WorkflowRepository interface {
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	// ListWorkflows returns workflows most recently updated first.
	ListWorkflows(ctx context.Context, opts ListOptions) ([]*Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *Workflow) error
	DeleteWorkflow(ctx context.Context, id int64) error
}

// ConversationStore keeps the user and assistant turns of memory enabled agents.
type ConversationStore interface {
	History(ctx context.Context, conversationID string) ([]Message, error)
	AppendTurns(ctx context.Context, conversationID string, msgs ...Message) error
	Clear(ctx context.Context, conversationID string) error
}

// TemplateResolver overlays a fixed catalog of agent templates on top of an
// AgentResolver. Template references are served from the catalog, everything
// else is delegated.
type TemplateResolver struct {
	next      AgentResolver
	templates map[string]AgentConfig
}

// NewTemplateResolver creates a resolver serving templates before next.
func NewTemplateResolver(next AgentResolver, templates map[string]AgentConfig) *TemplateResolver {
	t := make(map[string]AgentConfig, len(templates))
	for k, v := range templates {
		t[k] = v.Clone()
	}
	return &TemplateResolver{next: next, templates: t}
}

// ResolveAgent implements AgentResolver.
func (r *TemplateResolver) ResolveAgent(ctx context.Context, ref AgentRef) (*AgentConfig, error) {
	if ref.IsTemplate() {
		tpl, ok := r.templates[ref.Template]
		if !ok {
			tpl, ok = r.templates[strings.TrimPrefix(ref.Template, "template-")]
		}
		if !ok {
			return nil, fmt.Errorf("%w: template %s", ErrAgentNotFound, ref.Template)
		}
		a := tpl.Clone()
		return &a, nil
	}
	if r.next == nil {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, ref)
	}
	return r.next.ResolveAgent(ctx, ref)
}
