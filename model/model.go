package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentstudio/core"
)

// ToolCall represents a function call request in the provider wire shape.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON encoded argument object
}

// ToolCallFromCore converts a message level function call into the provider shape.
func ToolCallFromCore(fc core.FunctionCall) ToolCall {
	return ToolCall{ID: fc.ID, Type: "function", Function: ToolCallFunction{Name: fc.Name, Arguments: fc.Arguments}}
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the agent loop.
type Request struct {
	Messages    []core.Message   `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the assistant reply to a Request.
type Response struct {
	ID           string       `json:"id"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the agent loop to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Func adapts a plain function to the Model interface.
type Func func(ctx context.Context, req Request) (*Response, error)

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Info implements Model.
func (f Func) Info() Info { return Info{Name: "func", Provider: "local", SupportsTools: true} }

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted replies are returned in order; once exhausted the model echoes the
// last user message.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []mockReply
	requests []Request
}

type mockReply struct {
	msg core.Message
	err error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// AddResponse queues a plain text reply.
func (m *MockModel) AddResponse(content string) *MockModel {
	return m.AddMessage(core.NewAssistantMessage(content))
}

// AddToolCalls queues a reply requesting the given tool calls.
func (m *MockModel) AddToolCalls(calls ...core.FunctionCall) *MockModel {
	return m.AddMessage(core.NewAssistantMessage("", calls...))
}

// AddMessage queues an arbitrary assistant message.
func (m *MockModel) AddMessage(msg core.Message) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{msg: msg})
	return m
}

// AddError queues a failed call.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{err: err})
	return m
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	req.Messages = core.CloneMessages(req.Messages)
	m.requests = append(m.requests, req)
	var next *mockReply
	if len(m.script) > 0 {
		next = &m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if next != nil {
		if next.err != nil {
			return nil, next.err
		}
		msg := next.msg.Clone()
		msg.Role = core.RoleAssistant
		reason := "stop"
		if msg.HasToolCalls() {
			reason = "tool_calls"
		}
		return &Response{Message: msg, FinishReason: reason}, nil
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			input = req.Messages[i].Content
			break
		}
	}
	return &Response{
		Message:      core.NewAssistantMessage(fmt.Sprintf("Mock response to: %s", input)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
