// Package flow compiles multi-agent workflow definitions into executable
// graphs and runs them.
//
// Every workflow node runs one agent to completion. A node's input is the
// workflow input when it has no incoming edge, otherwise the output of the
// source of its first incoming edge wrapped as
// {message, previous_agent, context}. Nodes execute one at a time; node
// failures are recorded per node and do not stop downstream nodes.
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentstudio/agent"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/graph"
	"github.com/hupe1980/agentstudio/logging"
)

// ErrEmptyWorkflow is returned when compiling a definition without nodes.
var ErrEmptyWorkflow = core.ErrEmptyWorkflow

// AgentExecutor runs one agent to completion. *agent.Runner implements it.
type AgentExecutor interface {
	Run(ctx context.Context, cfg core.AgentConfig, input map[string]any, history []core.Message) (*agent.Result, error)
}

// State is the per-run state of a workflow.
type State struct {
	Messages     []core.Message
	InitialInput map[string]any
	NodeResults  map[string]core.NodeResult
	CurrentNode  string
	FinalOutput  *string
	Error        string
}

// Options configure a compiled Workflow.
type Options struct {
	Logger logging.Logger
	// MaxSteps bounds supersteps; cyclic definitions stop with graph.ErrStepLimit.
	MaxSteps int
}

// Workflow is a compiled, reusable workflow definition.
type Workflow struct {
	def      core.WorkflowDefinition
	edges    []core.Edge
	incoming map[string][]string
	resolver core.AgentResolver
	executor AgentExecutor
	graph    *graph.Graph[State]
	opts     Options
}

// Compile validates def and binds every node to an executor. When def has
// no edges the nodes are chained in list order. Nodes without outgoing edge
// terminate the run. The first listed node is the entry point.
func Compile(def core.WorkflowDefinition, resolver core.AgentResolver, executor AgentExecutor, optFns ...func(o *Options)) (*Workflow, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if resolver == nil || executor == nil {
		return nil, errors.New("workflow requires an agent resolver and executor")
	}

	opts := Options{Logger: logging.NoOpLogger{}, MaxSteps: graph.DefaultMaxSteps}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	w := &Workflow{
		def:      def.Clone(),
		edges:    effectiveEdges(def),
		incoming: map[string][]string{},
		resolver: resolver,
		executor: executor,
		opts:     opts,
	}

	b := graph.NewBuilder[State]()
	for _, n := range w.def.Nodes {
		ne := &nodeExecutor{workflow: w, node: n}
		b.AddNode(n.ID, ne.run)
	}

	sources := map[string]struct{}{}
	for _, e := range w.edges {
		b.AddEdge(e.Source, e.Target)
		sources[e.Source] = struct{}{}
		w.incoming[e.Target] = append(w.incoming[e.Target], e.Source)
	}
	for _, n := range w.def.Nodes {
		if _, ok := sources[n.ID]; !ok {
			b.AddEdge(n.ID, graph.End)
		}
	}
	b.SetEntryPoint(w.def.Nodes[0].ID)

	g, err := b.Compile(func(o *graph.Options) {
		o.MaxSteps = opts.MaxSteps
		o.Logger = opts.Logger
		o.Name = "workflow"
	})
	if err != nil {
		return nil, err
	}
	w.graph = g
	return w, nil
}

func effectiveEdges(def core.WorkflowDefinition) []core.Edge {
	if len(def.Edges) > 0 {
		return append([]core.Edge(nil), def.Edges...)
	}
	edges := make([]core.Edge, 0, len(def.Nodes))
	for i := 0; i+1 < len(def.Nodes); i++ {
		src, dst := def.Nodes[i].ID, def.Nodes[i+1].ID
		edges = append(edges, core.Edge{ID: fmt.Sprintf("%s-%s", src, dst), Source: src, Target: dst})
	}
	return edges
}

// EntryPoint returns the id of the first node.
func (w *Workflow) EntryPoint() string { return w.graph.EntryPoint() }

// Edges returns the wired edges, including synthesized ones. Edges to the
// terminal are not included.
func (w *Workflow) Edges() []core.Edge { return append([]core.Edge(nil), w.edges...) }

// Successors returns the wired successors of a node; graph.End marks termination.
func (w *Workflow) Successors(nodeID string) []string { return w.graph.Successors(nodeID) }

// Result is the outcome of a workflow run. NodeResults always holds every
// result recorded before the run stopped.
type Result struct {
	Output      *string                    `json:"output,omitempty"`
	NodeResults map[string]core.NodeResult `json:"node_results"`
	Messages    []core.Message             `json:"messages"`
	Error       string                     `json:"error,omitempty"`
	Visited     []string                   `json:"visited"`
}

// OutputText returns the final output or the empty string.
func (r *Result) OutputText() string {
	if r.Output == nil {
		return ""
	}
	return *r.Output
}

// Execute runs the workflow with the given input. A non-nil error reports a
// fault of the run itself (step limit, cancellation); the returned Result
// is never nil and carries the partial node results in that case too.
func (w *Workflow) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	state := &State{
		InitialInput: input,
		NodeResults:  map[string]core.NodeResult{},
	}

	w.opts.Logger.Info("workflow.run.start", "nodes", len(w.def.Nodes), "entry", w.EntryPoint())
	visited, err := w.graph.Run(ctx, state)

	res := &Result{
		Output:      state.FinalOutput,
		NodeResults: state.NodeResults,
		Messages:    state.Messages,
		Error:       state.Error,
		Visited:     visited,
	}
	if err != nil {
		if res.Error == "" {
			res.Error = err.Error()
		}
		w.opts.Logger.Error("workflow.run.failed", "error", err.Error(), "visited", len(visited))
		return res, err
	}

	w.opts.Logger.Info("workflow.run.finished", "visited", len(visited), "error", res.Error)
	return res, nil
}

// DeriveInput computes the input of a node from the run state.
func (w *Workflow) DeriveInput(nodeID string, s *State) map[string]any {
	sources := w.incoming[nodeID]
	if len(sources) == 0 {
		return s.InitialInput
	}
	src := sources[0]
	prev, ok := s.NodeResults[src]
	if !ok || !prev.HasOutput() {
		return s.InitialInput
	}
	return map[string]any{
		"message":        prev.OutputText(),
		"previous_agent": prev.AgentName,
		"context":        s.InitialInput,
	}
}

type nodeExecutor struct {
	workflow *Workflow
	node     core.Node
}

func (ne *nodeExecutor) run(ctx context.Context, s *State) error {
	w := ne.workflow
	id := ne.node.ID
	s.CurrentNode = id
	logger := logging.With(w.opts.Logger, "node", id, "agent_ref", ne.node.AgentID.String())

	cfg, err := w.resolver.ResolveAgent(ctx, ne.node.AgentID)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, core.ErrAgentNotFound) {
			msg = fmt.Sprintf("Agent %s not found", ne.node.AgentID)
		}
		ne.fail(s, msg)
		logger.Warn("workflow.node.failed", "error", msg)
		return nil
	}

	input := w.DeriveInput(id, s)
	logger.Debug("workflow.node.start", "agent", cfg.Name)

	res, err := w.executor.Run(ctx, *cfg, input, nil)
	if err != nil {
		ne.fail(s, err.Error())
		logger.Error("workflow.node.failed", "error", err.Error())
		return nil
	}

	output := res.Content
	s.NodeResults[id] = core.NodeResult{
		AgentID:     ne.node.AgentID,
		AgentName:   cfg.Name,
		Output:      &output,
		ToolResults: res.ToolResults,
		Error:       res.Error,
	}
	s.Messages = core.AppendMessages(s.Messages, core.NewAssistantMessage(output))
	s.FinalOutput = &output

	logger.Info("workflow.node.completed", "agent", cfg.Name, "error", res.Error)
	return nil
}

func (ne *nodeExecutor) fail(s *State, msg string) {
	s.NodeResults[ne.node.ID] = core.NodeResult{Error: msg}
	s.Error = msg
}
