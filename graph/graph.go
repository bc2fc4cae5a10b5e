// Package graph provides a small data-driven state graph: a node table, an
// edge table and conditional routers walked by a single generic driver.
//
// Nodes mutate a caller-owned state value. Execution proceeds in supersteps:
// every node of the current frontier runs once, in frontier order, and the
// union of their successors (first-seen order) forms the next frontier.
// Routing to End, or a frontier that becomes empty, terminates the run.
package graph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/hupe1980/agentstudio/logging"
)

// End is the virtual terminal node.
const End = "__end__"

// DefaultMaxSteps bounds the number of supersteps of a run.
const DefaultMaxSteps = 100

var (
	// ErrUnknownNode is returned when an edge or entry point references a missing node.
	ErrUnknownNode = errors.New("unknown graph node")
	// ErrDuplicateNode is returned when a node id is added twice.
	ErrDuplicateNode = errors.New("duplicate graph node")
	// ErrNoEntryPoint is returned when compiling a graph without entry point.
	ErrNoEntryPoint = errors.New("graph has no entry point")
	// ErrStepLimit is returned when a run exceeds its superstep budget.
	ErrStepLimit = errors.New("graph step limit exceeded")
)

// NodeFunc executes one node against the shared state.
type NodeFunc[S any] func(ctx context.Context, state *S) error

// RouterFunc selects the route key taken after a node.
type RouterFunc[S any] func(state *S) string

type conditional[S any] struct {
	router  RouterFunc[S]
	targets map[string]string
}

// Builder assembles a Graph. Errors are collected and reported by Compile.
type Builder[S any] struct {
	nodes        map[string]NodeFunc[S]
	order        []string
	edges        map[string][]string
	conditionals map[string]conditional[S]
	entry        string
	errs         []error
}

// NewBuilder creates an empty builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes:        map[string]NodeFunc[S]{},
		edges:        map[string][]string{},
		conditionals: map[string]conditional[S]{},
	}
}

// AddNode registers a node.
func (b *Builder[S]) AddNode(id string, fn NodeFunc[S]) *Builder[S] {
	switch {
	case id == "" || id == End:
		b.errs = append(b.errs, fmt.Errorf("invalid node id %q", id))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %q has no function", id))
	default:
		if _, dup := b.nodes[id]; dup {
			b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateNode, id))
			return b
		}
		b.nodes[id] = fn
		b.order = append(b.order, id)
	}
	return b
}

// AddEdge adds a static edge. Duplicate edges are ignored.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	for _, existing := range b.edges[from] {
		if existing == to {
			return b
		}
	}
	b.edges[from] = append(b.edges[from], to)
	return b
}

// AddConditionalEdges routes from a node to targets[router(state)]. A node
// with conditional edges ignores its static edges.
func (b *Builder[S]) AddConditionalEdges(from string, router RouterFunc[S], targets map[string]string) *Builder[S] {
	if router == nil {
		b.errs = append(b.errs, fmt.Errorf("node %q has nil router", from))
		return b
	}
	t := make(map[string]string, len(targets))
	for k, v := range targets {
		t[k] = v
	}
	b.conditionals[from] = conditional[S]{router: router, targets: t}
	return b
}

// SetEntryPoint selects the first node to run.
func (b *Builder[S]) SetEntryPoint(id string) *Builder[S] {
	b.entry = id
	return b
}

// Compile validates the structure and returns an executable Graph.
func (b *Builder[S]) Compile(optFns ...func(o *Options)) (*Graph[S], error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if b.entry == "" {
		return nil, ErrNoEntryPoint
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("%w: entry %q", ErrUnknownNode, b.entry)
	}

	known := func(id string) bool {
		if id == End {
			return true
		}
		_, ok := b.nodes[id]
		return ok
	}

	edges := make(map[string][]string, len(b.edges))
	for from, tos := range b.edges {
		if !known(from) || from == End {
			return nil, fmt.Errorf("%w: edge source %q", ErrUnknownNode, from)
		}
		for _, to := range tos {
			if !known(to) {
				return nil, fmt.Errorf("%w: edge %s -> %s", ErrUnknownNode, from, to)
			}
		}
		edges[from] = append([]string(nil), tos...)
	}

	conds := make(map[string]conditional[S], len(b.conditionals))
	for from, c := range b.conditionals {
		if !known(from) || from == End {
			return nil, fmt.Errorf("%w: conditional source %q", ErrUnknownNode, from)
		}
		for key, to := range c.targets {
			if !known(to) {
				return nil, fmt.Errorf("%w: route %s[%s] -> %s", ErrUnknownNode, from, key, to)
			}
		}
		conds[from] = c
	}

	opts := Options{MaxSteps: DefaultMaxSteps, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	nodes := make(map[string]NodeFunc[S], len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}

	return &Graph[S]{
		nodes:        nodes,
		order:        append([]string(nil), b.order...),
		edges:        edges,
		conditionals: conds,
		entry:        b.entry,
		opts:         opts,
	}, nil
}

// Options configure a compiled Graph.
type Options struct {
	// MaxSteps bounds supersteps per run; 0 disables the guard.
	MaxSteps int
	Logger   logging.Logger
	// Name labels log records.
	Name string
}

// Graph is an immutable, executable state graph. It is safe to Run
// concurrently with distinct state values.
type Graph[S any] struct {
	nodes        map[string]NodeFunc[S]
	order        []string
	edges        map[string][]string
	conditionals map[string]conditional[S]
	entry        string
	opts         Options
}

// EntryPoint returns the first node of the graph.
func (g *Graph[S]) EntryPoint() string { return g.entry }

// Nodes returns node ids in insertion order.
func (g *Graph[S]) Nodes() []string { return append([]string(nil), g.order...) }

// Successors returns the static successors of a node.
func (g *Graph[S]) Successors(id string) []string { return append([]string(nil), g.edges[id]...) }

// NodeError wraps a fault raised by a node.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string { return fmt.Sprintf("node %s: %v", e.Node, e.Err) }

func (e *NodeError) Unwrap() error { return e.Err }

// Run executes the graph against state and returns the visited node ids in
// execution order. A node fault stops the run; state keeps every update made
// before the fault.
func (g *Graph[S]) Run(ctx context.Context, state *S) ([]string, error) {
	var visited []string
	frontier := []string{g.entry}

	for step := 1; len(frontier) > 0; step++ {
		if g.opts.MaxSteps > 0 && step > g.opts.MaxSteps {
			return visited, fmt.Errorf("%w: %d", ErrStepLimit, g.opts.MaxSteps)
		}

		var next []string
		seen := map[string]struct{}{}
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return visited, err
			}

			g.opts.Logger.Debug("graph.node.start", "graph", g.opts.Name, "node", id, "step", step)
			visited = append(visited, id)
			if err := g.runNode(ctx, id, state); err != nil {
				g.opts.Logger.Error("graph.node.failed", "graph", g.opts.Name, "node", id, "error", err.Error())
				return visited, &NodeError{Node: id, Err: err}
			}

			targets, err := g.route(id, state)
			if err != nil {
				return visited, err
			}
			for _, to := range targets {
				if to == End {
					continue
				}
				if _, dup := seen[to]; dup {
					continue
				}
				seen[to] = struct{}{}
				next = append(next, to)
			}
		}
		frontier = next
	}

	return visited, nil
}

func (g *Graph[S]) runNode(ctx context.Context, id string, state *S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.opts.Logger.Error("graph.node.panic", "graph", g.opts.Name, "node", id, "recover", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return g.nodes[id](ctx, state)
}

func (g *Graph[S]) route(id string, state *S) ([]string, error) {
	if c, ok := g.conditionals[id]; ok {
		key := c.router(state)
		to, ok := c.targets[key]
		if !ok {
			return nil, fmt.Errorf("%w: node %s has no route %q", ErrUnknownNode, id, key)
		}
		return []string{to}, nil
	}
	return g.edges[id], nil
}
