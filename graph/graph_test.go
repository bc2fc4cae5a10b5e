package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	trail []string
	count int
}

func appendNode(name string) NodeFunc[counterState] {
	return func(_ context.Context, s *counterState) error {
		s.trail = append(s.trail, name)
		return nil
	}
}

func TestGraph_Linear(t *testing.T) {
	g, err := NewBuilder[counterState]().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddEdge("a", "b").
		AddEdge("b", End).
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	var s counterState
	visited, err := g.Run(context.Background(), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, []string{"a", "b"}, s.trail)
}

func TestGraph_ConditionalLoop(t *testing.T) {
	g, err := NewBuilder[counterState]().
		AddNode("inc", func(_ context.Context, s *counterState) error {
			s.count++
			return nil
		}).
		AddNode("done", appendNode("done")).
		AddConditionalEdges("inc", func(s *counterState) string {
			if s.count < 3 {
				return "again"
			}
			return "stop"
		}, map[string]string{"again": "inc", "stop": "done"}).
		AddEdge("done", End).
		SetEntryPoint("inc").
		Compile()
	require.NoError(t, err)

	var s counterState
	visited, err := g.Run(context.Background(), &s)
	require.NoError(t, err)
	assert.Equal(t, 3, s.count)
	assert.Equal(t, []string{"inc", "inc", "inc", "done"}, visited)
}

func TestGraph_FanOutFanIn(t *testing.T) {
	g, err := NewBuilder[counterState]().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddNode("c", appendNode("c")).
		AddNode("d", appendNode("d")).
		AddEdge("a", "b").
		AddEdge("a", "c").
		AddEdge("b", "d").
		AddEdge("c", "d").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	var s counterState
	visited, err := g.Run(context.Background(), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, visited)
}

func TestGraph_CompileErrors(t *testing.T) {
	_, err := NewBuilder[counterState]().AddNode("a", appendNode("a")).Compile()
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	_, err = NewBuilder[counterState]().AddNode("a", appendNode("a")).SetEntryPoint("x").Compile()
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = NewBuilder[counterState]().AddNode("a", appendNode("a")).AddEdge("a", "ghost").SetEntryPoint("a").Compile()
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = NewBuilder[counterState]().
		AddNode("a", appendNode("a")).
		AddConditionalEdges("a", func(*counterState) string { return "x" }, map[string]string{"x": "ghost"}).
		SetEntryPoint("a").
		Compile()
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = NewBuilder[counterState]().AddNode("a", appendNode("a")).AddNode("a", appendNode("a")).SetEntryPoint("a").Compile()
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestGraph_StepLimit(t *testing.T) {
	g, err := NewBuilder[counterState]().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntryPoint("a").
		Compile(func(o *Options) { o.MaxSteps = 5 })
	require.NoError(t, err)

	var s counterState
	visited, err := g.Run(context.Background(), &s)
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Len(t, visited, 5)
}

func TestGraph_NodeFaultKeepsPartialState(t *testing.T) {
	boom := errors.New("boom")
	g, err := NewBuilder[counterState]().
		AddNode("a", appendNode("a")).
		AddNode("b", func(context.Context, *counterState) error { return boom }).
		AddNode("c", func(context.Context, *counterState) error { panic("bad") }).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	var s counterState
	visited, err := g.Run(context.Background(), &s)
	assert.ErrorIs(t, err, boom)
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.Node)
	assert.Equal(t, []string{"a", "b"}, visited)
	assert.Equal(t, []string{"a"}, s.trail)

	g2, err := NewBuilder[counterState]().AddNode("c", func(context.Context, *counterState) error { panic("bad") }).SetEntryPoint("c").Compile()
	require.NoError(t, err)
	_, err = g2.Run(context.Background(), &s)
	assert.ErrorContains(t, err, "panic: bad")
}

func TestGraph_ContextCanceled(t *testing.T) {
	g, err := NewBuilder[counterState]().AddNode("a", appendNode("a")).SetEntryPoint("a").Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var s counterState
	_, err = g.Run(ctx, &s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.trail)
}
