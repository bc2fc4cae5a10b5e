package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/agent"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/graph"
	"github.com/hupe1980/agentstudio/model"
)

type mapResolver map[int64]core.AgentConfig

func (m mapResolver) ResolveAgent(_ context.Context, ref core.AgentRef) (*core.AgentConfig, error) {
	a, ok := m[ref.ID]
	if !ok || ref.IsTemplate() {
		return nil, fmt.Errorf("%w: %s", core.ErrAgentNotFound, ref)
	}
	return &a, nil
}

type call struct {
	agent string
	input map[string]any
}

// stubExecutor answers "<agent name> done" and records every call.
type stubExecutor struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]string
}

func (s *stubExecutor) Run(_ context.Context, cfg core.AgentConfig, input map[string]any, _ []core.Message) (*agent.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{agent: cfg.Name, input: input})
	s.mu.Unlock()
	res := &agent.Result{Content: cfg.Name + " done", ToolResults: map[string]any{}}
	if msg, ok := s.fail[cfg.Name]; ok {
		res.Error = msg
	}
	return res, nil
}

func agents(names ...string) mapResolver {
	r := mapResolver{}
	for i, n := range names {
		r[int64(i+1)] = core.AgentConfig{ID: int64(i + 1), Name: n}
	}
	return r
}

func node(id string, agentID int64) core.Node {
	return core.Node{ID: id, AgentID: core.AgentID(agentID)}
}

func TestCompile_Empty(t *testing.T) {
	_, err := Compile(core.WorkflowDefinition{}, agents(), &stubExecutor{})
	assert.ErrorIs(t, err, ErrEmptyWorkflow)
}

func TestCompile_DanglingEdge(t *testing.T) {
	def := core.WorkflowDefinition{
		Nodes: []core.Node{node("A", 1)},
		Edges: []core.Edge{{Source: "A", Target: "ghost"}},
	}
	_, err := Compile(def, agents("a"), &stubExecutor{})
	assert.ErrorIs(t, err, core.ErrDanglingEdge)
}

func TestWorkflow_LinearChainWithoutEdges(t *testing.T) {
	def := core.WorkflowDefinition{Nodes: []core.Node{node("A", 1), node("B", 2)}}
	exec := &stubExecutor{}

	w, err := Compile(def, agents("alpha", "beta"), exec)
	require.NoError(t, err)

	assert.Equal(t, "A", w.EntryPoint())
	require.Len(t, w.Edges(), 1)
	assert.Equal(t, "A", w.Edges()[0].Source)
	assert.Equal(t, "B", w.Edges()[0].Target)
	assert.Equal(t, []string{"B"}, w.Successors("A"))
	assert.Equal(t, []string{graph.End}, w.Successors("B"))

	input := map[string]any{"topic": "go"}
	res, err := w.Execute(context.Background(), input)
	require.NoError(t, err)

	require.Contains(t, res.NodeResults, "A")
	require.Contains(t, res.NodeResults, "B")
	assert.Equal(t, "beta done", res.OutputText())
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{"A", "B"}, res.Visited)

	require.Len(t, exec.calls, 2)
	assert.Equal(t, input, exec.calls[0].input)
	assert.Equal(t, map[string]any{
		"message":        "alpha done",
		"previous_agent": "alpha",
		"context":        input,
	}, exec.calls[1].input)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, core.NewAssistantMessage("alpha done"), res.Messages[0])
}

func TestWorkflow_MissingAgent(t *testing.T) {
	def := core.WorkflowDefinition{Nodes: []core.Node{node("A", 999), node("B", 1)}}
	exec := &stubExecutor{}

	w, err := Compile(def, agents("beta"), exec)
	require.NoError(t, err)

	input := map[string]any{"q": "x"}
	res, err := w.Execute(context.Background(), input)
	require.NoError(t, err)

	a := res.NodeResults["A"]
	assert.Equal(t, "Agent 999 not found", a.Error)
	assert.False(t, a.HasOutput())
	assert.Empty(t, a.AgentName)
	assert.Equal(t, "Agent 999 not found", res.Error)

	// B still runs and falls back to the initial input.
	require.Len(t, exec.calls, 1)
	assert.Equal(t, input, exec.calls[0].input)
	assert.True(t, res.NodeResults["B"].HasOutput())
}

func TestWorkflow_AgentErrorIsRecordedOnNode(t *testing.T) {
	def := core.WorkflowDefinition{Nodes: []core.Node{node("A", 1)}}
	exec := &stubExecutor{fail: map[string]string{"alpha": "Agent execution error: boom"}}

	w, err := Compile(def, agents("alpha"), exec)
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Agent execution error: boom", res.NodeResults["A"].Error)
	assert.Empty(t, res.Error)
}

func TestWorkflow_FanOutFanIn(t *testing.T) {
	def := core.WorkflowDefinition{
		Nodes: []core.Node{node("A", 1), node("B", 2), node("C", 3), node("D", 4)},
		Edges: []core.Edge{
			{Source: "A", Target: "B"},
			{Source: "A", Target: "C"},
			{Source: "C", Target: "D"},
			{Source: "B", Target: "D"},
		},
	}
	exec := &stubExecutor{}
	w, err := Compile(def, agents("a", "b", "c", "d"), exec)
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Visited)
	assert.Len(t, res.NodeResults, 4)
	// D takes the first listed incoming edge (C -> D).
	last := exec.calls[len(exec.calls)-1]
	assert.Equal(t, "d", last.agent)
	assert.Equal(t, "c", last.input["previous_agent"])
	assert.Equal(t, "d done", res.OutputText())
}

func TestWorkflow_CycleHitsStepLimitWithPartialResults(t *testing.T) {
	def := core.WorkflowDefinition{
		Nodes: []core.Node{node("A", 1), node("B", 2)},
		Edges: []core.Edge{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}},
	}
	w, err := Compile(def, agents("a", "b"), &stubExecutor{}, func(o *Options) { o.MaxSteps = 4 })
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), nil)
	require.ErrorIs(t, err, graph.ErrStepLimit)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Error)
	assert.Len(t, res.NodeResults, 2)
	assert.Len(t, res.Visited, 4)
}

func TestWorkflow_WithAgentRunner(t *testing.T) {
	m := model.NewMockModel("test", "mock").
		AddResponse("draft about go").
		AddResponse("polished draft")

	resolver := mapResolver{
		1: {ID: 1, Name: "writer", UserPromptTemplate: "Write about {topic}"},
		2: {ID: 2, Name: "editor", UserPromptTemplate: "Edit ({previous_agent}): {message}"},
	}
	def := core.WorkflowDefinition{Nodes: []core.Node{node("w", 1), node("e", 2)}}

	w, err := Compile(def, resolver, agent.NewRunner(m, nil))
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), map[string]any{"topic": "go"})
	require.NoError(t, err)
	assert.Equal(t, "polished draft", res.OutputText())

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Write about go", reqs[0].Messages[0].Content)
	assert.Equal(t, "Edit (writer): draft about go", reqs[1].Messages[0].Content)
}

func TestWorkflow_ResolverFault(t *testing.T) {
	def := core.WorkflowDefinition{Nodes: []core.Node{node("A", 1)}}
	resolver := resolverFunc(func(context.Context, core.AgentRef) (*core.AgentConfig, error) {
		return nil, errors.New("db down")
	})
	w, err := Compile(def, resolver, &stubExecutor{})
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "db down", res.NodeResults["A"].Error)
	assert.Equal(t, "db down", res.Error)
}

type resolverFunc func(ctx context.Context, ref core.AgentRef) (*core.AgentConfig, error)

func (f resolverFunc) ResolveAgent(ctx context.Context, ref core.AgentRef) (*core.AgentConfig, error) {
	return f(ctx, ref)
}
