// Package inmem provides a volatile implementation of the agent, workflow
// and execution stores. It is safe for concurrent access and suited for
// tests, the CLI and single-process demo servers. Every record is cloned on
// the way in and out so callers never share state with the store.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

// Store keeps agents, workflows and executions in process local maps.
type Store struct {
	mu         sync.RWMutex
	agents     map[int64]*core.AgentConfig
	workflows  map[int64]*core.Workflow
	executions map[string]*execution.Record
	execSeq    map[string]int64 // insertion order for stable newest-first sort
	nextAgent  int64
	nextWF     int64
	nextExec   int64
	now        func() time.Time
}

// Options configure a Store.
type Options struct {
	Now func() time.Time
}

// New constructs an empty store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		agents:     make(map[int64]*core.AgentConfig),
		workflows:  make(map[int64]*core.Workflow),
		executions: make(map[string]*execution.Record),
		execSeq:    make(map[string]int64),
		now:        opts.Now,
	}
}

var (
	_ core.AgentRepository    = (*Store)(nil)
	_ core.WorkflowRepository = (*Store)(nil)
	_ execution.Store         = (*Store)(nil)
)

// CreateAgent assigns an id and timestamps and stores the agent.
func (s *Store) CreateAgent(_ context.Context, a *core.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAgent++
	now := s.now().UTC()
	a.ID = s.nextAgent
	a.CreatedAt, a.UpdatedAt = now, now
	c := a.Clone()
	s.agents[a.ID] = &c
	return nil
}

// GetAgent returns a stored agent.
func (s *Store) GetAgent(_ context.Context, id int64) (*core.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrAgentNotFound, id)
	}
	c := a.Clone()
	return &c, nil
}

// ResolveAgent implements core.AgentResolver for stored agents.
func (s *Store) ResolveAgent(ctx context.Context, ref core.AgentRef) (*core.AgentConfig, error) {
	if ref.IsTemplate() {
		return nil, fmt.Errorf("%w: template %s", core.ErrAgentNotFound, ref.Template)
	}
	return s.GetAgent(ctx, ref.ID)
}

// ListAgents returns agents ordered by id.
func (s *Store) ListAgents(_ context.Context, opts core.ListOptions) ([]*core.AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*core.AgentConfig, 0, len(s.agents))
	for _, a := range s.agents {
		c := a.Clone()
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start, end := opts.Window(len(all))
	return all[start:end], nil
}

// UpdateAgent replaces a stored agent and refreshes UpdatedAt.
func (s *Store) UpdateAgent(_ context.Context, a *core.AgentConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.agents[a.ID]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrAgentNotFound, a.ID)
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = s.now().UTC()
	c := a.Clone()
	s.agents[a.ID] = &c
	return nil
}

// DeleteAgent removes an agent.
func (s *Store) DeleteAgent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return fmt.Errorf("%w: %d", core.ErrAgentNotFound, id)
	}
	delete(s.agents, id)
	return nil
}

// CreateWorkflow assigns an id and timestamps and stores the workflow.
func (s *Store) CreateWorkflow(_ context.Context, wf *core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWF++
	now := s.now().UTC()
	wf.ID = s.nextWF
	wf.CreatedAt, wf.UpdatedAt = now, now
	c := wf.Clone()
	s.workflows[wf.ID] = &c
	return nil
}

// GetWorkflow returns a stored workflow.
func (s *Store) GetWorkflow(_ context.Context, id int64) (*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, id)
	}
	c := wf.Clone()
	return &c, nil
}

// ListWorkflows returns workflows most recently updated first.
func (s *Store) ListWorkflows(_ context.Context, opts core.ListOptions) ([]*core.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*core.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		c := wf.Clone()
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	start, end := opts.Window(len(all))
	return all[start:end], nil
}

// UpdateWorkflow replaces a stored workflow and refreshes UpdatedAt.
func (s *Store) UpdateWorkflow(_ context.Context, wf *core.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.workflows[wf.ID]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, wf.ID)
	}
	wf.CreatedAt = old.CreatedAt
	wf.UpdatedAt = s.now().UTC()
	c := wf.Clone()
	s.workflows[wf.ID] = &c
	return nil
}

// DeleteWorkflow removes a workflow.
func (s *Store) DeleteWorkflow(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[id]; !ok {
		return fmt.Errorf("%w: %d", core.ErrWorkflowNotFound, id)
	}
	delete(s.workflows, id)
	return nil
}

// CreateExecution stores a new record.
func (s *Store) CreateExecution(_ context.Context, rec *execution.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.executions[rec.ID]; exists {
		return fmt.Errorf("execution %s already exists", rec.ID)
	}
	s.nextExec++
	s.executions[rec.ID] = rec.Clone()
	s.execSeq[rec.ID] = s.nextExec
	return nil
}

// GetExecution returns a stored record.
func (s *Store) GetExecution(_ context.Context, id string) (*execution.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", execution.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// ListExecutions returns matching records newest first.
func (s *Store) ListExecutions(_ context.Context, f execution.Filter) ([]*execution.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*execution.Record, 0)
	for _, rec := range s.executions {
		if f.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.execSeq[out[i].ID] > s.execSeq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	start, end := f.Window(len(out))
	return out[start:end], nil
}

// TransitionExecution applies fn under the write lock. The stored record is
// only replaced when fn succeeds.
func (s *Store) TransitionExecution(_ context.Context, id string, fn func(rec *execution.Record) error) (*execution.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", execution.ErrNotFound, id)
	}
	work := rec.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	s.executions[id] = work
	return work.Clone(), nil
}

// DeleteExecutions removes matching records and returns how many were deleted.
func (s *Store) DeleteExecutions(_ context.Context, f execution.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.executions {
		if f.Matches(rec) {
			delete(s.executions, id)
			delete(s.execSeq, id)
			n++
		}
	}
	return n, nil
}
