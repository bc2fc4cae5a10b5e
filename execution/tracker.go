package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
)

// Filter selects records. Zero fields match everything.
type Filter struct {
	Kind       Kind
	AgentID    int64
	WorkflowID int64
	Statuses   []Status
	core.ListOptions
}

// Matches reports whether r satisfies the filter, ignoring paging.
func (f Filter) Matches(r *Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.AgentID != 0 && r.AgentID != f.AgentID {
		return false
	}
	if f.WorkflowID != 0 && r.WorkflowID != f.WorkflowID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Active selects pending and running records.
func Active() []Status { return []Status{StatusPending, StatusRunning} }

// Store persists execution records.
type Store interface {
	CreateExecution(ctx context.Context, rec *Record) error
	GetExecution(ctx context.Context, id string) (*Record, error)
	// ListExecutions returns matching records newest first.
	ListExecutions(ctx context.Context, f Filter) ([]*Record, error)
	// TransitionExecution applies fn to the stored record atomically and
	// persists the result unless fn fails.
	TransitionExecution(ctx context.Context, id string, fn func(rec *Record) error) (*Record, error)
	DeleteExecutions(ctx context.Context, f Filter) (int, error)
}

// Observer receives one notification per finished execution.
type Observer interface {
	ObserveExecution(kind Kind, status Status, elapsed time.Duration)
}

// Outcome is what a run function reports back to the Tracker.
type Outcome struct {
	Output      map[string]any
	NodeResults map[string]core.NodeResult
	// Error marks the run failed while keeping Output and NodeResults.
	Error string
}

// TrackerOptions configure a Tracker.
type TrackerOptions struct {
	Logger   logging.Logger
	Observer Observer
	Now      func() time.Time
}

// Tracker drives records through their lifecycle around a run function.
type Tracker struct {
	store Store
	opts  TrackerOptions
}

// NewTracker creates a Tracker on top of store.
func NewTracker(store Store, optFns ...func(o *TrackerOptions)) *Tracker {
	opts := TrackerOptions{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{store: store, opts: opts}
}

// Store returns the underlying store.
func (t *Tracker) Store() Store { return t.store }

// Create persists a new pending record.
func (t *Tracker) Create(ctx context.Context, kind Kind, agentID, workflowID int64, input map[string]any) (*Record, error) {
	rec := NewRecord(kind, input, t.opts.Now().UTC())
	rec.AgentID = agentID
	rec.WorkflowID = workflowID
	if err := t.store.CreateExecution(ctx, rec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return rec.Clone(), nil
}

// Run marks the record running, invokes fn and stores the outcome. A record
// canceled while fn was in flight stays failed and the outcome is dropped.
// The returned record is the final stored state.
func (t *Tracker) Run(ctx context.Context, id string, fn func(ctx context.Context) (*Outcome, error)) (*Record, error) {
	started, err := t.store.TransitionExecution(ctx, id, func(r *Record) error {
		return r.Start(t.opts.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	logger := logging.With(t.opts.Logger, "execution_id", id, "kind", string(started.Kind))
	logger.Info("execution.started")

	out, runErr := t.invoke(ctx, fn)

	// The run may outlive a canceled request context.
	dropped := false
	final, err := t.store.TransitionExecution(context.WithoutCancel(ctx), id, func(r *Record) error {
		if r.Status.IsTerminal() {
			dropped = true
			return nil
		}
		now := t.opts.Now().UTC()
		switch {
		case runErr != nil:
			var nodes map[string]core.NodeResult
			if out != nil {
				nodes = out.NodeResults
			}
			return r.Fail(now, runErr.Error(), nodes)
		case out.Error != "":
			r.Output = out.Output
			return r.Fail(now, out.Error, out.NodeResults)
		default:
			return r.Complete(now, out.Output, out.NodeResults)
		}
	})
	if err != nil {
		return nil, err
	}

	if dropped {
		logger.Warn("execution.result.discarded", "status", string(final.Status))
	} else {
		logger.Info("execution.finished", "status", string(final.Status), "error", final.Error)
	}
	if t.opts.Observer != nil {
		t.opts.Observer.ObserveExecution(final.Kind, final.Status, final.Duration())
	}
	return final, nil
}

func (t *Tracker) invoke(ctx context.Context, fn func(ctx context.Context) (*Outcome, error)) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.opts.Logger.Error("execution.panic", "recover", r)
			out, err = nil, fmt.Errorf("execution panicked: %v", r)
		}
	}()
	out, err = fn(ctx)
	if err == nil && out == nil {
		out = &Outcome{}
	}
	return out, err
}

// Cancel fails a pending or running record with the user cancellation
// message.
func (t *Tracker) Cancel(ctx context.Context, id string) (*Record, error) {
	return t.CancelWith(ctx, id, CanceledByUser)
}

// CancelWith fails a pending or running record with msg.
func (t *Tracker) CancelWith(ctx context.Context, id string, msg string) (*Record, error) {
	rec, err := t.store.TransitionExecution(ctx, id, func(r *Record) error {
		return r.Cancel(t.opts.Now().UTC(), msg)
	})
	if err != nil {
		return nil, err
	}
	t.opts.Logger.Info("execution.canceled", "execution_id", id, "reason", msg)
	return rec, nil
}

// CancelActive cancels every pending or running record matching f and
// returns how many were canceled. Records finishing concurrently are skipped.
func (t *Tracker) CancelActive(ctx context.Context, f Filter, msg string) (int, error) {
	f.Statuses = Active()
	f.ListOptions = core.ListOptions{}
	recs, err := t.store.ListExecutions(ctx, f)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range recs {
		if _, err := t.CancelWith(ctx, r.ID, msg); err != nil {
			if errors.Is(err, ErrNotCancelable) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}
