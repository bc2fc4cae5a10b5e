package tool

import "fmt"

// Metadata keys attached by the Executor.
const (
	MetaExecutionTimeMS = "execution_time_ms"
	MetaToolID          = "tool_id"
	MetaErrorType       = "error_type"
	MetaToolCallID      = "tool_call_id"
	MetaErrorCode       = "error_code"
)

// Result is the normalized outcome of a tool invocation. Data is only set on
// success and Error only on failure.
type Result struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSuccess creates a successful result.
func NewSuccess(data any) *Result {
	return &Result{Success: true, Data: data}
}

// NewFailure creates a failed result with a formatted message.
func NewFailure(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// WithMetadata sets a metadata entry and returns the result.
func (r *Result) WithMetadata(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
	return r
}

// normalize enforces the success/data and failure/error exclusivity.
func (r *Result) normalize() *Result {
	if r.Success {
		r.Error = ""
	} else {
		r.Data = nil
		if r.Error == "" {
			r.Error = "tool execution failed"
		}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	return r
}
