// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side‑effects) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
//
// Tools are constructed on demand from a Registry of factories and invoked
// through an Executor which validates parameters, measures latency and turns
// every failure (validation, lookup, fault or panic) into a failed Result.
package tool

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Tool is a configured, invocable capability.
//
// Implementations should:
//   - Return a stable Descriptor whose ID is unique within a registry
//   - Report expected failures as a failed *Result and reserve errors for faults
//   - Be safe for concurrent use if the same instance is executed in parallel
type Tool interface {
	// Descriptor returns the metadata and parameter specification of the tool.
	Descriptor() Descriptor

	// Execute runs the tool with already validated parameters.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Factory constructs a tool instance for the given configuration. Factories
// must accept a nil config.
type Factory func(cfg Config) Tool

// Config is per-instance tool configuration (e.g. timeouts, credentials).
type Config map[string]any

// String returns the string value stored under key or def.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Int returns the integer value stored under key or def. Floats and numeric
// strings are converted.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the boolean value stored under key or def.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Duration returns the duration stored under key or def. Numbers are read as
// seconds, strings are parsed with time.ParseDuration.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// ToolError represents errors that occur during tool execution. A FunctionTool
// returning a *ToolError produces a failed Result instead of a fault.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
