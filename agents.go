package agentstudio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
	"github.com/hupe1980/agentstudio/logging"
)

// ProcessingMode is reported in the output of every agent execution.
const ProcessingMode = "graph"

// CreateAgent stores a new agent. Agents with AutoDeploy start deployed,
// all others as draft.
func (s *Studio) CreateAgent(ctx context.Context, cfg core.AgentConfig) (*core.AgentConfig, error) {
	if err := s.check(cfg); err != nil {
		return nil, err
	}
	a := cfg.Clone()
	a.ID = 0
	a.Status = core.AgentStatusDraft
	if a.AutoDeploy {
		a.Status = core.AgentStatusDeployed
	}
	if err := s.agents.CreateAgent(ctx, &a); err != nil {
		return nil, err
	}
	s.logger.Info("agent.created", "agent_id", a.ID, "status", string(a.Status))
	return &a, nil
}

// GetAgent returns a stored agent.
func (s *Studio) GetAgent(ctx context.Context, id int64) (*core.AgentConfig, error) {
	return s.agents.GetAgent(ctx, id)
}

// ListAgents returns stored agents ordered by id.
func (s *Studio) ListAgents(ctx context.Context, opts core.ListOptions) ([]*core.AgentConfig, error) {
	return s.agents.ListAgents(ctx, opts)
}

// UpdateAgent loads the agent, applies fn and stores the result. The id
// cannot be changed.
func (s *Studio) UpdateAgent(ctx context.Context, id int64, fn func(a *core.AgentConfig)) (*core.AgentConfig, error) {
	a, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(a)
	a.ID = id
	if err := s.check(*a); err != nil {
		return nil, err
	}
	if err := s.agents.UpdateAgent(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeployAgent moves a draft agent to deployed.
func (s *Studio) DeployAgent(ctx context.Context, id int64) (*core.AgentConfig, error) {
	a, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == core.AgentStatusDeployed {
		return nil, ErrAgentAlreadyDeployed
	}
	a.Status = core.AgentStatusDeployed
	if err := s.agents.UpdateAgent(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("agent.deployed", "agent_id", id)
	return a, nil
}

// DeleteAgent removes an agent unless it has pending or running executions,
// is part of an active workflow or of a workflow that is currently executing.
func (s *Studio) DeleteAgent(ctx context.Context, id int64) error {
	a, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return err
	}

	running, err := s.tracker.Store().ListExecutions(ctx, execution.Filter{
		Kind:     execution.KindAgent,
		AgentID:  id,
		Statuses: execution.Active(),
	})
	if err != nil {
		return err
	}
	if len(running) > 0 {
		return fmt.Errorf("%w: it has %d running execution(s), wait for them to complete", ErrAgentInUse, len(running))
	}

	workflows, err := s.workflows.ListWorkflows(ctx, core.ListOptions{})
	if err != nil {
		return err
	}
	var active []string
	for _, wf := range workflows {
		if !wf.Definition.ReferencesAgent(id) {
			continue
		}
		if wf.Status == core.WorkflowStatusActive {
			active = append(active, wf.Name)
			continue
		}
		busy, err := s.tracker.Store().ListExecutions(ctx, execution.Filter{
			Kind:        execution.KindWorkflow,
			WorkflowID:  wf.ID,
			Statuses:    execution.Active(),
			ListOptions: core.ListOptions{Limit: 1},
		})
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return fmt.Errorf("%w: workflow '%s' is currently executing with this agent", ErrAgentInUse, wf.Name)
		}
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: it is used in active workflow(s): %s", ErrAgentInUse, strings.Join(active, ", "))
	}

	if err := s.agents.DeleteAgent(ctx, id); err != nil {
		return err
	}
	s.logger.Info("agent.deleted", "agent_id", id, "agent_name", a.Name)
	return nil
}

// ConversationID is the memory key of an agent.
func ConversationID(agentID int64) string {
	return "agent-" + strconv.FormatInt(agentID, 10)
}

// ExecuteAgent runs a deployed agent against input and returns the final
// execution record. A failing run yields a failed record, not an error;
// errors report lookup and persistence problems.
func (s *Studio) ExecuteAgent(ctx context.Context, id int64, input map[string]any) (*execution.Record, error) {
	a, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != core.AgentStatusDeployed {
		return nil, fmt.Errorf("%w: current status %s", ErrAgentNotDeployed, a.Status)
	}

	rec, err := s.tracker.Create(ctx, execution.KindAgent, id, 0, input)
	if err != nil {
		return nil, err
	}

	logger := logging.With(s.logger, "agent_id", id, "execution_id", rec.ID)
	return s.tracker.Run(ctx, rec.ID, func(ctx context.Context) (*execution.Outcome, error) {
		var history []core.Message
		if a.MemoryEnabled {
			h, err := s.convs.History(ctx, ConversationID(id))
			if err != nil {
				return nil, fmt.Errorf("load conversation: %w", err)
			}
			history = h
		}

		res, err := s.runner.Run(ctx, *a, input, history)
		if err != nil {
			return nil, err
		}
		if res.Error != "" {
			return &execution.Outcome{Error: res.Error}, nil
		}

		if a.MemoryEnabled {
			turns := []core.Message{core.NewAssistantMessage(res.Content)}
			if user, ok := lastUserMessage(res.Messages); ok {
				turns = append([]core.Message{user}, turns...)
			}
			if err := s.convs.AppendTurns(ctx, ConversationID(id), turns...); err != nil {
				logger.Warn("agent.memory.append_failed", "error", err.Error())
			}
		}

		toolResults := res.ToolResults
		if toolResults == nil {
			toolResults = map[string]any{}
		}
		return &execution.Outcome{Output: map[string]any{
			"content":         res.Content,
			"tool_results":    toolResults,
			"processing_mode": ProcessingMode,
			"input_data":      input,
			"agent_name":      a.Name,
		}}, nil
	})
}

// ListAgentExecutions returns the executions of an agent, newest first.
func (s *Studio) ListAgentExecutions(ctx context.Context, agentID int64, opts core.ListOptions) ([]*execution.Record, error) {
	return s.tracker.Store().ListExecutions(ctx, execution.Filter{
		Kind:        execution.KindAgent,
		AgentID:     agentID,
		ListOptions: opts,
	})
}

// ClearAgentMemory forgets the conversation of an agent.
func (s *Studio) ClearAgentMemory(ctx context.Context, agentID int64) error {
	return s.convs.Clear(ctx, ConversationID(agentID))
}

func lastUserMessage(msgs []core.Message) (core.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i], true
		}
	}
	return core.Message{}, false
}
