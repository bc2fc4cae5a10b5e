// Package agentstudio provides a high-level façade over the agent loop, the
// workflow compiler and the execution tracker. Most applications interact
// with this package by:
//  1. Creating a Studio via New() (optionally overriding the default in-memory stores)
//  2. Creating and deploying agents, or composing them into workflows
//  3. Executing agents and workflows and querying the resulting execution records
//
// Every execution is tracked as an execution.Record that moves from pending
// through running to completed or failed. All defaults are safe for local
// development and testing; production deployments typically supply the
// Postgres store and a structured logger.
package agentstudio

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/agentstudio/agent"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/memory"
	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/store/inmem"
	"github.com/hupe1980/agentstudio/tool"
	"github.com/hupe1980/agentstudio/tool/builtin"
)

var (
	// ErrAgentInUse is returned when deleting an agent that is still referenced
	// by active workflows or executions.
	ErrAgentInUse = errors.New("agent is in use")
	// ErrAgentNotDeployed is returned when executing an agent that is not deployed.
	ErrAgentNotDeployed = errors.New("agent must be deployed before execution")
	// ErrAgentAlreadyDeployed is returned when deploying a deployed agent.
	ErrAgentAlreadyDeployed = errors.New("agent is already deployed")
	// ErrWorkflowBusy is returned when deleting a workflow with pending or
	// running executions without force.
	ErrWorkflowBusy = errors.New("workflow has running executions")
	// ErrInvalidInput wraps validation failures of agents and workflows.
	ErrInvalidInput = errors.New("invalid input")
)

// Options configures the Studio instance.
type Options struct {
	// Stores (default to one shared in-memory store if not provided)
	Agents        core.AgentRepository
	Workflows     core.WorkflowRepository
	Executions    execution.Store
	Conversations core.ConversationStore

	// Templates are agent configurations workflow nodes may reference by
	// string id.
	Templates map[string]core.AgentConfig

	// Registry holds the callable tools. A nil registry is populated with
	// the built-in tools.
	Registry *tool.Registry
	// ToolAliases maps agent-facing tool names to registry ids.
	ToolAliases map[string]string

	MaxIterations     int
	MaxParallelTools  int
	ToolTimeout       time.Duration
	MaxWorkflowSteps  int
	GlobalInstruction agent.Instruction

	ToolObserver      tool.Observer
	ModelObserver     agent.ModelObserver
	ExecutionObserver execution.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Studio is the high-level façade aggregating stores, runner and tracker.
type Studio struct {
	opts      Options
	agents    core.AgentRepository
	workflows core.WorkflowRepository
	convs     core.ConversationStore
	resolver  core.AgentResolver
	registry  *tool.Registry
	executor  *tool.Executor
	runner    *agent.Runner
	tracker   *execution.Tracker
	validate  *validator.Validate
	logger    logging.Logger
}

// New creates a Studio driving agents with m. Any unset store is backed by
// an in-memory implementation.
func New(m model.Model, optFns ...func(o *Options)) (*Studio, error) {
	opts := Options{
		MaxIterations: agent.DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var fallback *inmem.Store
	mem := func() *inmem.Store {
		if fallback == nil {
			fallback = inmem.New()
		}
		return fallback
	}
	if opts.Agents == nil {
		opts.Agents = mem()
	}
	if opts.Workflows == nil {
		opts.Workflows = mem()
	}
	if opts.Executions == nil {
		opts.Executions = mem()
	}
	if opts.Conversations == nil {
		opts.Conversations = memory.NewInMemoryStore()
	}

	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger })
		if err := builtin.Register(opts.Registry); err != nil {
			return nil, fmt.Errorf("register built-in tools: %w", err)
		}
	}
	if opts.ToolAliases == nil {
		opts.ToolAliases = builtin.Aliases()
	}

	executor := tool.NewExecutor(opts.Registry, func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
		o.MaxParallel = opts.MaxParallelTools
		o.Timeout = opts.ToolTimeout
		o.Observer = opts.ToolObserver
	})

	runner := agent.NewRunner(m, executor, func(o *agent.Options) {
		o.Logger = opts.Logger
		o.MaxIterations = opts.MaxIterations
		o.Aliases = opts.ToolAliases
		o.GlobalInstruction = opts.GlobalInstruction
		o.Observer = opts.ModelObserver
	})

	tracker := execution.NewTracker(opts.Executions, func(o *execution.TrackerOptions) {
		o.Logger = opts.Logger
		o.Observer = opts.ExecutionObserver
	})

	return &Studio{
		opts:      opts,
		agents:    opts.Agents,
		workflows: opts.Workflows,
		convs:     opts.Conversations,
		resolver:  core.NewTemplateResolver(opts.Agents, opts.Templates),
		registry:  opts.Registry,
		executor:  executor,
		runner:    runner,
		tracker:   tracker,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    opts.Logger,
	}, nil
}

// Registry returns the tool registry.
func (s *Studio) Registry() *tool.Registry { return s.registry }

// Executor returns the tool executor shared by all agents.
func (s *Studio) Executor() *tool.Executor { return s.executor }

// Tracker returns the execution tracker.
func (s *Studio) Tracker() *execution.Tracker { return s.tracker }

func (s *Studio) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
