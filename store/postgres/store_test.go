package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

func TestExecutionWhere(t *testing.T) {
	where, args := executionWhere(execution.Filter{})
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = executionWhere(execution.Filter{
		Kind:       execution.KindWorkflow,
		WorkflowID: 4,
		Statuses:   execution.Active(),
	})
	assert.Equal(t, " WHERE kind = $1 AND workflow_id = $2 AND status = ANY($3)", where)
	assert.Equal(t, []any{"workflow", int64(4), []string{"pending", "running"}}, args)
}

func TestPageClause(t *testing.T) {
	assert.Empty(t, pageClause(core.ListOptions{}))
	assert.Equal(t, " LIMIT 10 OFFSET 20", pageClause(core.ListOptions{Skip: 20, Limit: 10}))
	assert.Equal(t, " OFFSET 5", pageClause(core.ListOptions{Skip: 5}))
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/agentstudio")
	t.Setenv("PG_MAX_CONNS", "8")
	t.Setenv("PG_MIN_CONNS", "nope")
	t.Setenv("PG_MAX_CONN_IDLE", "bad")
	t.Setenv("PG_MAX_CONN_LIFETIME", "2h")

	cfg := Config{MinConns: 2}
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://localhost/agentstudio", cfg.URL)
	assert.Equal(t, int32(8), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, 2*time.Hour, cfg.MaxConnLifetime)
	assert.Zero(t, cfg.HealthCheckPeriod)
}

func TestNewPool_RequiresURL(t *testing.T) {
	_, err := NewPool(context.Background(), Config{})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

// newIntegrationStore connects to AGENTSTUDIO_TEST_DATABASE_URL. Each test
// starts from empty tables.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("AGENTSTUDIO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set AGENTSTUDIO_TEST_DATABASE_URL to run postgres integration tests")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE agents, workflows, executions, conversation_turns RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestStore_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	t.Run("agents", func(t *testing.T) {
		a := &core.AgentConfig{Name: "writer", ToolsEnabled: true, Tools: map[string]bool{"calculator": true}}
		require.NoError(t, s.CreateAgent(ctx, a))
		require.NotZero(t, a.ID)

		got, err := s.GetAgent(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "writer", got.Name)
		assert.True(t, got.Tools["calculator"])

		got.Status = core.AgentStatusDeployed
		require.NoError(t, s.UpdateAgent(ctx, got))
		again, err := s.ResolveAgent(ctx, core.AgentID(a.ID))
		require.NoError(t, err)
		assert.Equal(t, core.AgentStatusDeployed, again.Status)

		require.NoError(t, s.DeleteAgent(ctx, a.ID))
		_, err = s.GetAgent(ctx, a.ID)
		assert.ErrorIs(t, err, core.ErrAgentNotFound)
	})

	t.Run("workflows", func(t *testing.T) {
		wf := &core.Workflow{
			Name: "pipeline",
			Definition: core.WorkflowDefinition{
				Nodes: []core.Node{{ID: "A", AgentID: core.AgentID(1)}, {ID: "B", AgentID: core.TemplateID("template-x")}},
				Edges: []core.Edge{{Source: "A", Target: "B"}},
			},
			Status: core.WorkflowStatusActive,
		}
		require.NoError(t, s.CreateWorkflow(ctx, wf))

		got, err := s.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.Definition, got.Definition)

		list, err := s.ListWorkflows(ctx, core.ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("executions", func(t *testing.T) {
		rec := execution.NewRecord(execution.KindWorkflow, map[string]any{"message": "hi"}, time.Now().UTC())
		rec.WorkflowID = 9
		require.NoError(t, s.CreateExecution(ctx, rec))

		started, err := s.TransitionExecution(ctx, rec.ID, func(r *execution.Record) error {
			return r.Start(time.Now().UTC())
		})
		require.NoError(t, err)
		assert.Equal(t, execution.StatusRunning, started.Status)

		_, err = s.TransitionExecution(ctx, rec.ID, func(r *execution.Record) error {
			return r.Start(time.Now().UTC())
		})
		assert.ErrorIs(t, err, execution.ErrInvalidTransition)

		active, err := s.ListExecutions(ctx, execution.Filter{WorkflowID: 9, Statuses: execution.Active()})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "hi", active[0].Input["message"])

		n, err := s.DeleteExecutions(ctx, execution.Filter{WorkflowID: 9})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("conversations", func(t *testing.T) {
		require.NoError(t, s.AppendTurns(ctx, "c1",
			core.NewUserMessage("hello"),
			core.NewToolMessage("call", "calculator", "4"),
			core.NewAssistantMessage("hi there"),
		))
		history, err := s.History(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, core.RoleAssistant, history[1].Role)

		require.NoError(t, s.Clear(ctx, "c1"))
		history, err = s.History(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}
