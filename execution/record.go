// Package execution tracks the lifecycle of agent and workflow runs.
//
// A Record moves pending -> running -> completed | failed. Cancelling a
// pending or running record fails it with a fixed message; terminal records
// cannot change anymore.
package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentstudio/core"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Kind distinguishes single-agent from workflow executions.
type Kind string

const (
	KindAgent    Kind = "agent"
	KindWorkflow Kind = "workflow"
)

// Fixed failure messages.
const (
	CanceledByUser     = "Execution canceled by user"
	CanceledByDeletion = "Execution canceled due to workflow deletion"
)

var (
	// ErrNotFound is returned for unknown execution ids.
	ErrNotFound = errors.New("execution not found")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid execution status transition")
	// ErrNotCancelable is returned when cancelling a terminal record.
	ErrNotCancelable = errors.New("execution cannot be canceled")
)

var allowedTransitions = map[Status]map[Status]struct{}{
	"": {
		StatusPending: {},
	},
	StatusPending: {
		StatusRunning: {},
		StatusFailed:  {},
	},
	StatusRunning: {
		StatusCompleted: {},
		StatusFailed:    {},
	},
	StatusCompleted: {},
	StatusFailed:    {},
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the record is pending or running.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

func validateTransition(from, to Status) error {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Record is one persisted execution.
type Record struct {
	ID          string                     `json:"id"`
	Kind        Kind                       `json:"kind"`
	AgentID     int64                      `json:"agent_id,omitempty"`
	WorkflowID  int64                      `json:"workflow_id,omitempty"`
	Status      Status                     `json:"status"`
	Input       map[string]any             `json:"input_data"`
	Output      map[string]any             `json:"output_data,omitempty"`
	NodeResults map[string]core.NodeResult `json:"node_results,omitempty"`
	Error       string                     `json:"error_message,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	StartedAt   *time.Time                 `json:"started_at,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// NewRecord creates a pending record with a fresh id.
func NewRecord(kind Kind, input map[string]any, now time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		Input:     input,
		CreatedAt: now,
	}
}

// Start flips a pending record to running.
func (r *Record) Start(now time.Time) error {
	if err := validateTransition(r.Status, StatusRunning); err != nil {
		return err
	}
	r.Status = StatusRunning
	r.StartedAt = &now
	return nil
}

// Complete records a successful outcome.
func (r *Record) Complete(now time.Time, output map[string]any, nodeResults map[string]core.NodeResult) error {
	if err := validateTransition(r.Status, StatusCompleted); err != nil {
		return err
	}
	r.Status = StatusCompleted
	r.Output = output
	r.NodeResults = nodeResults
	r.Error = ""
	r.CompletedAt = &now
	return nil
}

// Fail records a failed outcome. Partial node results are kept.
func (r *Record) Fail(now time.Time, msg string, nodeResults map[string]core.NodeResult) error {
	if err := validateTransition(r.Status, StatusFailed); err != nil {
		return err
	}
	r.Status = StatusFailed
	r.Error = msg
	if nodeResults != nil {
		r.NodeResults = nodeResults
	}
	r.CompletedAt = &now
	return nil
}

// Cancel fails a pending or running record with msg.
func (r *Record) Cancel(now time.Time, msg string) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: status %s", ErrNotCancelable, r.Status)
	}
	return r.Fail(now, msg, nil)
}

// Duration returns the run time of a finished record.
func (r *Record) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Input != nil {
		c.Input = make(map[string]any, len(r.Input))
		for k, v := range r.Input {
			c.Input[k] = v
		}
	}
	if r.Output != nil {
		c.Output = make(map[string]any, len(r.Output))
		for k, v := range r.Output {
			c.Output[k] = v
		}
	}
	c.NodeResults = core.CloneNodeResults(r.NodeResults)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
