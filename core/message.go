package core

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FunctionCall is a tool invocation requested by the model inside an
// assistant message. Arguments holds the raw JSON argument object.
type FunctionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ParsedArguments decodes Arguments into a map. Empty arguments decode to an
// empty map.
func (fc FunctionCall) ParsedArguments() (map[string]any, error) {
	args := map[string]any{}
	if fc.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Message is a single conversation entry. Assistant messages may carry tool
// calls; tool messages reference the call they answer through ToolCallID.
type Message struct {
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []FunctionCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message, optionally requesting tool calls.
func NewAssistantMessage(content string, calls ...FunctionCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates the reply to a tool call.
func NewToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// HasToolCalls reports whether the message requests at least one tool call.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		calls := make([]FunctionCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		m.ToolCalls = calls
	}
	return m
}

// AppendMessages returns a new slice holding existing followed by add.
// The existing slice is never written to, so earlier snapshots of a
// conversation stay valid after later appends.
func AppendMessages(existing []Message, add ...Message) []Message {
	out := make([]Message, 0, len(existing)+len(add))
	out = append(out, existing...)
	for _, m := range add {
		out = append(out, m.Clone())
	}
	return out
}

// CloneMessages returns a deep copy of msgs.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	return AppendMessages(nil, msgs...)
}
