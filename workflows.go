package agentstudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
	"github.com/hupe1980/agentstudio/flow"
	"github.com/hupe1980/agentstudio/logging"
)

// WorkflowUpdate carries the fields to change. Nil fields are left alone.
type WorkflowUpdate struct {
	Name        *string
	Description *string
	Definition  *core.WorkflowDefinition
	Status      *core.WorkflowStatus
}

// CreateWorkflow stores a new draft workflow. A definition with nodes must
// be structurally valid.
func (s *Studio) CreateWorkflow(ctx context.Context, name, description string, def core.WorkflowDefinition) (*core.Workflow, error) {
	wf := core.Workflow{
		Name:        name,
		Description: description,
		Definition:  def.Clone(),
		Status:      core.WorkflowStatusDraft,
	}
	if err := s.checkWorkflow(wf); err != nil {
		return nil, err
	}
	if err := s.workflows.CreateWorkflow(ctx, &wf); err != nil {
		return nil, err
	}
	s.logger.Info("workflow.created", "workflow_id", wf.ID, "nodes", len(wf.Definition.Nodes))
	return &wf, nil
}

// GetWorkflow returns a stored workflow.
func (s *Studio) GetWorkflow(ctx context.Context, id int64) (*core.Workflow, error) {
	return s.workflows.GetWorkflow(ctx, id)
}

// ListWorkflows returns workflows most recently updated first.
func (s *Studio) ListWorkflows(ctx context.Context, opts core.ListOptions) ([]*core.Workflow, error) {
	return s.workflows.ListWorkflows(ctx, opts)
}

// UpdateWorkflow applies u. A draft that receives a definition with nodes
// becomes active unless u sets the status explicitly.
func (s *Studio) UpdateWorkflow(ctx context.Context, id int64, u WorkflowUpdate) (*core.Workflow, error) {
	wf, err := s.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		wf.Name = *u.Name
	}
	if u.Description != nil {
		wf.Description = *u.Description
	}
	if u.Definition != nil {
		wf.Definition = u.Definition.Clone()
		if u.Status == nil && wf.Status == core.WorkflowStatusDraft && len(wf.Definition.Nodes) > 0 {
			wf.Status = core.WorkflowStatusActive
		}
	}
	if u.Status != nil {
		wf.Status = *u.Status
	}
	if err := s.checkWorkflow(*wf); err != nil {
		return nil, err
	}
	if err := s.workflows.UpdateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// DeleteWorkflow removes a workflow together with all of its executions.
// Pending or running executions block the deletion unless force is set, in
// which case they are failed first.
func (s *Studio) DeleteWorkflow(ctx context.Context, id int64, force bool) error {
	wf, err := s.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}

	scope := execution.Filter{Kind: execution.KindWorkflow, WorkflowID: id}
	active := scope
	active.Statuses = execution.Active()
	running, err := s.tracker.Store().ListExecutions(ctx, active)
	if err != nil {
		return err
	}
	if len(running) > 0 {
		if !force {
			return fmt.Errorf("%w: cannot delete workflow '%s', it has %d running execution(s); use force to cancel and delete anyway",
				ErrWorkflowBusy, wf.Name, len(running))
		}
		if _, err := s.tracker.CancelActive(ctx, scope, execution.CanceledByDeletion); err != nil {
			return err
		}
	}

	n, err := s.tracker.Store().DeleteExecutions(ctx, scope)
	if err != nil {
		return err
	}
	if err := s.workflows.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	s.logger.Info("workflow.deleted", "workflow_id", id, "executions", n)
	return nil
}

// ExecuteWorkflow runs a workflow against input and returns the final
// execution record. The record output holds the final output under
// "output"; node results are kept even when the run fails.
func (s *Studio) ExecuteWorkflow(ctx context.Context, id int64, input map[string]any) (*execution.Record, error) {
	wf, err := s.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.tracker.Create(ctx, execution.KindWorkflow, 0, id, input)
	if err != nil {
		return nil, err
	}

	logger := logging.With(s.logger, "workflow_id", id, "execution_id", rec.ID)
	return s.tracker.Run(ctx, rec.ID, func(ctx context.Context) (*execution.Outcome, error) {
		compiled, err := flow.Compile(wf.Definition, s.resolver, s.runner, func(o *flow.Options) {
			o.Logger = logger
			o.MaxSteps = s.opts.MaxWorkflowSteps
		})
		if err != nil {
			return nil, err
		}

		res, err := compiled.Execute(ctx, input)
		out := &execution.Outcome{NodeResults: res.NodeResults, Error: res.Error}
		if res.Output != nil {
			out.Output = map[string]any{"output": *res.Output}
		}
		if err != nil && out.Error == "" {
			out.Error = err.Error()
		}
		return out, nil
	})
}

// ListWorkflowExecutions returns the executions of a workflow, newest first.
func (s *Studio) ListWorkflowExecutions(ctx context.Context, workflowID int64, opts core.ListOptions) ([]*execution.Record, error) {
	return s.tracker.Store().ListExecutions(ctx, execution.Filter{
		Kind:        execution.KindWorkflow,
		WorkflowID:  workflowID,
		ListOptions: opts,
	})
}

// GetExecution returns an execution record.
func (s *Studio) GetExecution(ctx context.Context, id string) (*execution.Record, error) {
	return s.tracker.Store().GetExecution(ctx, id)
}

// CancelWorkflowExecution fails a pending or running execution of the given
// workflow with the user cancellation message.
func (s *Studio) CancelWorkflowExecution(ctx context.Context, workflowID int64, executionID string) (*execution.Record, error) {
	rec, err := s.tracker.Store().GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if rec.Kind != execution.KindWorkflow || rec.WorkflowID != workflowID {
		return nil, fmt.Errorf("%w: %s", execution.ErrNotFound, executionID)
	}
	return s.tracker.Cancel(ctx, executionID)
}

// CancelExecution fails any pending or running execution.
func (s *Studio) CancelExecution(ctx context.Context, executionID string) (*execution.Record, error) {
	return s.tracker.Cancel(ctx, executionID)
}

func (s *Studio) checkWorkflow(wf core.Workflow) error {
	if err := s.check(wf); err != nil {
		return err
	}
	if err := wf.Definition.Validate(); err != nil && !errors.Is(err, core.ErrEmptyWorkflow) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ListExecutions returns the records matching f, newest first.
func (s *Studio) ListExecutions(ctx context.Context, f execution.Filter) ([]*execution.Record, error) {
	return s.tracker.Store().ListExecutions(ctx, f)
}
