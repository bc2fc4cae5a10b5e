package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/core"
)

func TestMockModel_Script(t *testing.T) {
	m := NewMockModel("mock", "test").
		AddToolCalls(core.FunctionCall{ID: "c1", Name: "calculator", Arguments: `{}`}).
		AddResponse("done").
		AddError(errors.New("boom"))

	ctx := context.Background()
	req := Request{Messages: []core.Message{core.NewUserMessage("hi")}}

	resp, err := m.Generate(ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.Message.HasToolCalls())
	assert.Equal(t, "tool_calls", resp.FinishReason)

	resp, err = m.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message.Content)
	assert.Equal(t, core.RoleAssistant, resp.Message.Role)

	_, err = m.Generate(ctx, req)
	assert.EqualError(t, err, "boom")

	resp, err = m.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hi", resp.Message.Content)

	assert.Len(t, m.Requests(), 4)
}

func TestMockModel_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockModel("mock", "test").Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToolCallFromCore(t *testing.T) {
	tc := ToolCallFromCore(core.FunctionCall{ID: "x", Name: "calculator", Arguments: `{"a":1}`})
	assert.Equal(t, ToolCall{ID: "x", Type: "function", Function: ToolCallFunction{Name: "calculator", Arguments: `{"a":1}`}}, tc)
}
