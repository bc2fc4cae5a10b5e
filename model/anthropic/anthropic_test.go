package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/model"
)

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	msgs := []core.Message{
		core.NewSystemMessage("sys"),
		core.NewUserMessage("compare"),
		core.NewAssistantMessage("",
			core.FunctionCall{ID: "t1", Name: "calculator", Arguments: `{"operation":"add","a":1,"b":2}`},
			core.FunctionCall{ID: "t2", Name: "calculator", Arguments: `{"operation":"add","a":3,"b":4}`},
		),
		core.NewToolMessage("t1", "calculator", "3"),
		core.NewToolMessage("t2", "calculator", "7"),
		core.NewAssistantMessage("3 and 7"),
	}

	out := buildMessages(msgs)
	require.Len(t, out, 4)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	assert.Len(t, out[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	assert.Len(t, out[2].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[3].Role)

	system := extractSystemMessage(msgs)
	require.Len(t, system, 1)
	assert.Equal(t, "sys", system[0].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "calculator",
			Description: "Performs arithmetic",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"a": map[string]any{"type": "number"}},
				"required":   []string{"a"},
			},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "calculator", tools[0].OfTool.Name)
	assert.Equal(t, []string{"a"}, tools[0].OfTool.InputSchema.Required)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	assert.Equal(t, "anthropic", m.Info().Provider)
}
