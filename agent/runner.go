package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/graph"
	"github.com/hupe1980/agentstudio/internal/util"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/tool"
)

// DefaultMaxIterations bounds model round trips per run.
const DefaultMaxIterations = 10

// ModelObserver receives one notification per model call.
type ModelObserver interface {
	ObserveModelCall(provider, model string, success bool, elapsed time.Duration)
}

// Options configure a Runner.
type Options struct {
	Logger logging.Logger
	// MaxIterations bounds model round trips per run; 0 disables the guard.
	MaxIterations int
	// Aliases maps agent-facing tool names to registry ids.
	Aliases map[string]string
	// GlobalInstruction is prepended to every agent's system prompt.
	GlobalInstruction Instruction
	Observer          ModelObserver
}

// Runner drives agents through the loop. A Runner is stateless between
// runs and safe for concurrent use.
type Runner struct {
	model    model.Model
	executor *tool.Executor
	graph    *graph.Graph[State]
	opts     Options
}

// NewRunner creates a Runner. executor may be nil for agents without tools.
func NewRunner(m model.Model, executor *tool.Executor, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MaxIterations: DefaultMaxIterations,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	r := &Runner{model: m, executor: executor, opts: opts}
	r.graph = r.compile()
	return r
}

func (r *Runner) compile() *graph.Graph[State] {
	maxSteps := graph.DefaultMaxSteps
	if r.opts.MaxIterations > 0 {
		// agent+tools per iteration, one refused agent visit, output.
		maxSteps = 2*r.opts.MaxIterations + 2
	}

	g, err := graph.NewBuilder[State]().
		AddNode(NodeAgent, r.agentNode).
		AddNode(NodeTools, r.toolsNode).
		AddNode(NodeOutput, r.outputNode).
		AddConditionalEdges(NodeAgent, RouteAfterAgent, map[string]string{
			NodeTools:  NodeTools,
			NodeOutput: NodeOutput,
		}).
		AddEdge(NodeTools, NodeAgent).
		AddEdge(NodeOutput, graph.End).
		SetEntryPoint(NodeAgent).
		Compile(func(o *graph.Options) {
			o.MaxSteps = maxSteps
			o.Logger = r.opts.Logger
			o.Name = "agent"
		})
	if err != nil {
		panic(fmt.Sprintf("agent: invalid loop graph: %v", err))
	}
	return g
}

// Result is the outcome of one agent run.
type Result struct {
	Content     string         `json:"content"`
	ToolResults map[string]any `json:"tool_results"`
	Messages    []core.Message `json:"messages"`
	Error       string         `json:"error,omitempty"`
	// Steps lists the visited loop nodes in order.
	Steps []string `json:"steps"`
}

// Run executes cfg against input. history holds prior turns and is only
// used when the agent has memory enabled. The returned error is reserved
// for misuse; execution faults are reported in Result.Error.
func (r *Runner) Run(ctx context.Context, cfg core.AgentConfig, input map[string]any, history []core.Message) (*Result, error) {
	if r.model == nil {
		return nil, errors.New("agent runner has no model")
	}

	system := SystemPrompt("", cfg)
	if !r.opts.GlobalInstruction.IsZero() {
		global, err := r.opts.GlobalInstruction.Resolve(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve global instruction: %w", err)
		}
		system = SystemPrompt(global, cfg)
	}

	state := BuildInitialState(cfg, system, input, history)
	steps := r.RunState(ctx, state)

	return &Result{
		Content:     state.FinalOutput,
		ToolResults: state.ToolResults,
		Messages:    state.Messages,
		Error:       state.Error,
		Steps:       steps,
	}, nil
}

// RunState drives an already built state to completion and returns the
// visited nodes.
func (r *Runner) RunState(ctx context.Context, state *State) []string {
	r.bindTools(state)
	state.budget = r.opts.MaxIterations

	logger := logging.With(r.opts.Logger, "agent", state.Agent.Name)
	logger.Info("agent.run.start", "tools", len(state.bound))

	steps, err := r.graph.Run(ctx, state)
	if err != nil && !state.HasError() {
		state.Error = fmt.Sprintf("Agent execution error: %v", err)
	}

	logger.Info("agent.run.finished",
		"steps", len(steps),
		"iterations", state.Iterations,
		"error", state.Error,
	)
	return steps
}

// bindTools resolves the agent's enabled tools to registry ids and their
// instance configuration.
func (r *Runner) bindTools(state *State) {
	state.bound = map[string]tool.Config{}
	state.definitions = nil
	if r.executor == nil {
		return
	}

	reg := r.executor.Registry()
	ids := make([]string, 0)
	for _, name := range state.Agent.EnabledTools() {
		id := name
		if alias, ok := r.opts.Aliases[name]; ok {
			id = alias
		}
		if !reg.Has(id) {
			r.opts.Logger.Warn("agent.tools.unknown", "agent", state.Agent.Name, "tool", name)
			continue
		}
		if _, dup := state.bound[id]; dup {
			continue
		}

		var cfg tool.Config
		if c, ok := state.Agent.ToolConfig[name]; ok {
			cfg = tool.Config(c)
		} else if c, ok := state.Agent.ToolConfig[id]; ok {
			cfg = tool.Config(c)
		}
		state.bound[id] = cfg
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		state.definitions = reg.ToolDefinitions(ids...)
	}
}

func (r *Runner) agentNode(ctx context.Context, s *State) error {
	if s.budget > 0 && s.Iterations >= s.budget {
		r.opts.Logger.Warn("agent.node.loop_limit", "agent", s.Agent.Name, "max", s.budget)
		s.Error = ErrLoopLimit
		return nil
	}
	s.Iterations++

	req := model.Request{
		Messages:  core.CloneMessages(s.Messages),
		Tools:     s.definitions,
		MaxTokens: s.Agent.MaxTokens,
	}
	temp := s.Agent.Temperature
	req.Temperature = &temp

	start := time.Now()
	resp, err := r.generate(ctx, req)
	r.observe(err == nil, time.Since(start))
	if err != nil {
		r.opts.Logger.Error("agent.node.model_error", "agent", s.Agent.Name, "error", err.Error())
		s.Error = fmt.Sprintf("Agent execution error: %v", err)
		return nil
	}

	msg := resp.Message
	msg.Role = core.RoleAssistant
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}
	s.appendMessages(msg)
	return nil
}

func (r *Runner) generate(ctx context.Context, req model.Request) (resp *model.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("model panicked: %v", rec)
		}
	}()
	resp, err = r.model.Generate(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("model returned no response")
	}
	return resp, err
}

func (r *Runner) observe(success bool, elapsed time.Duration) {
	if r.opts.Observer == nil {
		return
	}
	info := r.model.Info()
	r.opts.Observer.ObserveModelCall(info.Provider, info.Name, success, elapsed)
}

func (r *Runner) toolsNode(ctx context.Context, s *State) error {
	last, ok := s.LastMessage()
	if !ok || !last.HasToolCalls() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		s.Error = fmt.Sprintf("Agent execution error: %v", err)
		return nil
	}

	calls := last.ToolCalls
	results := make([]*tool.Result, len(calls))

	var (
		runnable []model.ToolCall
		index    []int
	)
	for i, fc := range calls {
		args, err := fc.ParsedArguments()
		if err != nil {
			s.ToolResults[fc.Name] = map[string]any{"args": fc.Arguments, "id": fc.ID}
		} else {
			s.ToolResults[fc.Name] = map[string]any{"args": args, "id": fc.ID}
		}

		if _, bound := s.bound[fc.Name]; !bound || r.executor == nil {
			results[i] = tool.NewFailure("tool %s is not enabled for this agent", fc.Name).
				WithMetadata(tool.MetaToolID, fc.Name).
				WithMetadata(tool.MetaToolCallID, fc.ID)
			continue
		}
		runnable = append(runnable, model.ToolCallFromCore(fc))
		index = append(index, i)
	}

	if len(runnable) > 0 {
		out := r.executor.ExecuteCalls(ctx, runnable, s.bound)
		for j, res := range out {
			results[index[j]] = res
		}
	}

	replies := make([]core.Message, len(calls))
	for i, fc := range calls {
		replies[i] = core.NewToolMessage(fc.ID, fc.Name, toolMessageContent(results[i]))
	}
	s.appendMessages(replies...)

	r.opts.Logger.Debug("agent.node.tools", "agent", s.Agent.Name, "calls", len(calls))
	return nil
}

func toolMessageContent(res *tool.Result) string {
	if res == nil {
		return "Error: tool returned no result"
	}
	if !res.Success {
		return "Error: " + res.Error
	}
	text, err := util.Stringify(res.Data)
	if err != nil {
		return fmt.Sprint(res.Data)
	}
	return text
}

// outputNode publishes the last message as the final output. A tool reply is
// never an answer, so a run that stopped mid tool loop has no output.
func (r *Runner) outputNode(_ context.Context, s *State) error {
	if last, ok := s.LastMessage(); ok && last.Role != core.RoleTool {
		s.FinalOutput = last.Content
	}
	return nil
}
