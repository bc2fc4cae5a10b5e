package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore() *Store {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(func(o *Options) { o.Now = clock.now })
}

func TestStore_Agents(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	a := &core.AgentConfig{Name: "one", Tools: map[string]bool{"calculator": true}}
	require.NoError(t, s.CreateAgent(ctx, a))
	assert.Equal(t, int64(1), a.ID)

	got, err := s.GetAgent(ctx, 1)
	require.NoError(t, err)
	got.Tools["calculator"] = false

	again, _ := s.GetAgent(ctx, 1)
	assert.True(t, again.Tools["calculator"])

	resolved, err := s.ResolveAgent(ctx, core.AgentID(1))
	require.NoError(t, err)
	assert.Equal(t, "one", resolved.Name)

	_, err = s.ResolveAgent(ctx, core.TemplateID("template-x"))
	assert.ErrorIs(t, err, core.ErrAgentNotFound)

	require.NoError(t, s.CreateAgent(ctx, &core.AgentConfig{Name: "two"}))
	list, err := s.ListAgents(ctx, core.ListOptions{Skip: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "two", list[0].Name)

	again.Name = "renamed"
	require.NoError(t, s.UpdateAgent(ctx, again))
	updated, _ := s.GetAgent(ctx, 1)
	assert.Equal(t, "renamed", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	require.NoError(t, s.DeleteAgent(ctx, 1))
	_, err = s.GetAgent(ctx, 1)
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
	assert.ErrorIs(t, s.DeleteAgent(ctx, 1), core.ErrAgentNotFound)
}

func TestStore_WorkflowsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	w1 := &core.Workflow{Name: "first"}
	w2 := &core.Workflow{Name: "second"}
	require.NoError(t, s.CreateWorkflow(ctx, w1))
	require.NoError(t, s.CreateWorkflow(ctx, w2))

	list, err := s.ListWorkflows(ctx, core.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, []string{list[0].Name, list[1].Name})

	w1.Description = "touched"
	require.NoError(t, s.UpdateWorkflow(ctx, w1))
	list, _ = s.ListWorkflows(ctx, core.ListOptions{})
	assert.Equal(t, "first", list[0].Name)

	require.NoError(t, s.DeleteWorkflow(ctx, w1.ID))
	_, err = s.GetWorkflow(ctx, w1.ID)
	assert.ErrorIs(t, err, core.ErrWorkflowNotFound)
}

func TestStore_Executions(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	now := time.Now()

	r1 := execution.NewRecord(execution.KindWorkflow, nil, now)
	r1.WorkflowID = 1
	r2 := execution.NewRecord(execution.KindWorkflow, nil, now)
	r2.WorkflowID = 1
	r3 := execution.NewRecord(execution.KindAgent, nil, now)
	r3.AgentID = 5
	for _, r := range []*execution.Record{r1, r2, r3} {
		require.NoError(t, s.CreateExecution(ctx, r))
	}
	assert.Error(t, s.CreateExecution(ctx, r1))

	list, err := s.ListExecutions(ctx, execution.Filter{WorkflowID: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, r2.ID, list[0].ID)

	_, err = s.TransitionExecution(ctx, r1.ID, func(r *execution.Record) error {
		return r.Complete(now, nil, nil)
	})
	assert.ErrorIs(t, err, execution.ErrInvalidTransition)
	stored, _ := s.GetExecution(ctx, r1.ID)
	assert.Equal(t, execution.StatusPending, stored.Status)

	active, _ := s.ListExecutions(ctx, execution.Filter{Kind: execution.KindAgent, Statuses: execution.Active()})
	require.Len(t, active, 1)
	assert.Equal(t, r3.ID, active[0].ID)

	n, err := s.DeleteExecutions(ctx, execution.Filter{WorkflowID: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = s.GetExecution(ctx, r1.ID)
	assert.ErrorIs(t, err, execution.ErrNotFound)
}
