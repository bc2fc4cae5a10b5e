// Package postgres persists agents, workflows, executions and conversation
// turns in PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

//go:embed schema.sql
var schema string

// DB is the subset of *pgxpool.Pool used by the Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements the agent, workflow, execution and conversation stores.
type Store struct {
	db  DB
	now func() time.Time
}

var (
	_ core.AgentRepository    = (*Store)(nil)
	_ core.WorkflowRepository = (*Store)(nil)
	_ core.ConversationStore  = (*Store)(nil)
	_ execution.Store         = (*Store)(nil)
)

// New wraps db. Call Migrate once before use.
func New(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// CreateAgent inserts an agent and assigns its id.
func (s *Store) CreateAgent(ctx context.Context, a *core.AgentConfig) error {
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode agent: %w", err)
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO agents (agent_name, status, config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Name, string(a.Status), doc, now, now,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent loads an agent.
func (s *Store) GetAgent(ctx context.Context, id int64) (*core.AgentConfig, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, config, created_at, updated_at FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", core.ErrAgentNotFound, id)
	}
	return a, err
}

// ResolveAgent implements core.AgentResolver for stored agents.
func (s *Store) ResolveAgent(ctx context.Context, ref core.AgentRef) (*core.AgentConfig, error) {
	if ref.IsTemplate() {
		return nil, fmt.Errorf("%w: template %s", core.ErrAgentNotFound, ref.Template)
	}
	return s.GetAgent(ctx, ref.ID)
}

// ListAgents returns agents ordered by id.
func (s *Store) ListAgents(ctx context.Context, opts core.ListOptions) ([]*core.AgentConfig, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, config, created_at, updated_at FROM agents ORDER BY id`+pageClause(opts))
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*core.AgentConfig
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAgent replaces the stored configuration.
func (s *Store) UpdateAgent(ctx context.Context, a *core.AgentConfig) error {
	a.UpdatedAt = s.now().UTC()
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode agent: %w", err)
	}
	err = s.db.QueryRow(ctx,
		`UPDATE agents SET agent_name = $2, status = $3, config = $4, updated_at = $5
		 WHERE id = $1 RETURNING created_at`,
		a.ID, a.Name, string(a.Status), doc, a.UpdatedAt,
	).Scan(&a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", core.ErrAgentNotFound, a.ID)
	}
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	return nil
}

// DeleteAgent removes an agent.
func (s *Store) DeleteAgent(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", core.ErrAgentNotFound, id)
	}
	return nil
}

func scanAgent(row pgx.Row) (*core.AgentConfig, error) {
	var (
		a    core.AgentConfig
		id   int64
		doc  []byte
		c, u time.Time
	)
	if err := row.Scan(&id, &doc, &c, &u); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("decode agent %d: %w", id, err)
	}
	a.ID, a.CreatedAt, a.UpdatedAt = id, c, u
	return &a, nil
}

// CreateWorkflow inserts a workflow and assigns its id.
func (s *Store) CreateWorkflow(ctx context.Context, wf *core.Workflow) error {
	now := s.now().UTC()
	wf.CreatedAt, wf.UpdatedAt = now, now
	def, err := json.Marshal(wf.Definition)
	if err != nil {
		return fmt.Errorf("encode workflow definition: %w", err)
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO workflows (name, description, workflow_definition, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		wf.Name, wf.Description, def, string(wf.Status), now, now,
	).Scan(&wf.ID)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

const workflowColumns = `id, name, description, workflow_definition, status, created_at, updated_at`

// GetWorkflow loads a workflow.
func (s *Store) GetWorkflow(ctx context.Context, id int64) (*core.Workflow, error) {
	wf, err := scanWorkflow(s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, id)
	}
	return wf, err
}

// ListWorkflows returns workflows most recently updated first.
func (s *Store) ListWorkflows(ctx context.Context, opts core.ListOptions) ([]*core.Workflow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY updated_at DESC, id DESC`+pageClause(opts))
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*core.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// UpdateWorkflow replaces a stored workflow.
func (s *Store) UpdateWorkflow(ctx context.Context, wf *core.Workflow) error {
	wf.UpdatedAt = s.now().UTC()
	def, err := json.Marshal(wf.Definition)
	if err != nil {
		return fmt.Errorf("encode workflow definition: %w", err)
	}
	err = s.db.QueryRow(ctx,
		`UPDATE workflows SET name = $2, description = $3, workflow_definition = $4, status = $5, updated_at = $6
		 WHERE id = $1 RETURNING created_at`,
		wf.ID, wf.Name, wf.Description, def, string(wf.Status), wf.UpdatedAt,
	).Scan(&wf.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, wf.ID)
	}
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

// DeleteWorkflow removes a workflow.
func (s *Store) DeleteWorkflow(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, id)
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*core.Workflow, error) {
	var (
		wf     core.Workflow
		def    []byte
		status string
	)
	if err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &def, &status, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(def, &wf.Definition); err != nil {
		return nil, fmt.Errorf("decode workflow %d: %w", wf.ID, err)
	}
	wf.Status = core.WorkflowStatus(status)
	return &wf, nil
}

const executionColumns = `id, kind, agent_id, workflow_id, status, input_data, output_data, node_results,
	error_message, created_at, started_at, completed_at`

// CreateExecution inserts a record.
func (s *Store) CreateExecution(ctx context.Context, rec *execution.Record) error {
	in, out, nodes, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO executions (id, kind, agent_id, workflow_id, status, input_data, output_data, node_results,
		 error_message, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, string(rec.Kind), rec.AgentID, rec.WorkflowID, string(rec.Status), in, out, nodes,
		rec.Error, rec.CreatedAt, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution loads a record.
func (s *Store) GetExecution(ctx context.Context, id string) (*execution.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", execution.ErrNotFound, id)
	}
	return rec, err
}

// ListExecutions returns matching records newest first.
func (s *Store) ListExecutions(ctx context.Context, f execution.Filter) ([]*execution.Record, error) {
	where, args := executionWhere(f)
	rows, err := s.db.Query(ctx,
		`SELECT `+executionColumns+` FROM executions`+where+` ORDER BY created_at DESC, seq DESC`+pageClause(f.ListOptions),
		args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*execution.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TransitionExecution locks the row, applies fn and writes the result back
// in one transaction.
func (s *Store) TransitionExecution(ctx context.Context, id string, fn func(rec *execution.Record) error) (*execution.Record, error) {
	var result *execution.Record
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rec, err := scanRecord(tx.QueryRow(ctx,
			`SELECT `+executionColumns+` FROM executions WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", execution.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}

		_, out, nodes, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE executions SET status = $2, output_data = $3, node_results = $4, error_message = $5,
			 started_at = $6, completed_at = $7 WHERE id = $1`,
			rec.ID, string(rec.Status), out, nodes, rec.Error, rec.StartedAt, rec.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("update execution: %w", err)
		}
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteExecutions removes matching records.
func (s *Store) DeleteExecutions(ctx context.Context, f execution.Filter) (int, error) {
	where, args := executionWhere(f)
	tag, err := s.db.Exec(ctx, `DELETE FROM executions`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete executions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func executionWhere(f execution.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.AgentID != 0 {
		add("agent_id = $%d", f.AgentID)
	}
	if f.WorkflowID != 0 {
		add("workflow_id = $%d", f.WorkflowID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pageClause(opts core.ListOptions) string {
	var b strings.Builder
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", opts.Limit)
	}
	if opts.Skip > 0 {
		fmt.Fprintf(&b, " OFFSET %d", opts.Skip)
	}
	return b.String()
}

func encodeRecord(rec *execution.Record) (in, out, nodes []byte, err error) {
	if in, err = marshalNullable(rec.Input); err != nil {
		return nil, nil, nil, fmt.Errorf("encode input: %w", err)
	}
	if out, err = marshalNullable(rec.Output); err != nil {
		return nil, nil, nil, fmt.Errorf("encode output: %w", err)
	}
	if nodes, err = marshalNullable(rec.NodeResults); err != nil {
		return nil, nil, nil, fmt.Errorf("encode node results: %w", err)
	}
	return in, out, nodes, nil
}

func marshalNullable[T any](v map[string]T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanRecord(row pgx.Row) (*execution.Record, error) {
	var (
		rec            execution.Record
		kind, status   string
		in, out, nodes []byte
	)
	err := row.Scan(&rec.ID, &kind, &rec.AgentID, &rec.WorkflowID, &status, &in, &out, &nodes,
		&rec.Error, &rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	rec.Kind = execution.Kind(kind)
	rec.Status = execution.Status(status)
	for _, part := range []struct {
		raw []byte
		dst any
	}{{in, &rec.Input}, {out, &rec.Output}, {nodes, &rec.NodeResults}} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return nil, fmt.Errorf("decode execution %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// History returns the turns of a conversation in insertion order.
func (s *Store) History(ctx context.Context, conversationID string) ([]core.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT role, content FROM conversation_turns WHERE conversation_id = $1 ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		out = append(out, core.Message{Role: core.Role(role), Content: content})
	}
	return out, rows.Err()
}

// AppendTurns stores user and assistant messages; other roles are skipped.
func (s *Store) AppendTurns(ctx context.Context, conversationID string, msgs ...core.Message) error {
	batch := &pgx.Batch{}
	for _, m := range msgs {
		if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
			continue
		}
		batch.Queue(`INSERT INTO conversation_turns (conversation_id, role, content) VALUES ($1, $2, $3)`,
			conversationID, string(m.Role), m.Content)
	}
	if batch.Len() == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("append turns: %w", err)
		}
		return nil
	})
}

// Clear deletes a conversation.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM conversation_turns WHERE conversation_id = $1`, conversationID); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
