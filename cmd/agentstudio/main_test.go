package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/execution"
	"github.com/hupe1980/agentstudio/model"
	"github.com/hupe1980/agentstudio/tool"
)

const pipelineBundle = `
name: write and review
templates:
  writer:
    agent_name: Writer
    system_prompt: Write a short draft.
  reviewer:
    system_prompt: Review the draft.
workflow:
  nodes:
    - id: A
      agent_id: writer
    - id: B
      agent_id: reviewer
  edges:
    - source: A
      target: B
input:
  message: a haiku about go
`

func TestLoadBundle(t *testing.T) {
	b, err := loadBundle(strings.NewReader(pipelineBundle))
	require.NoError(t, err)

	assert.Equal(t, "write and review", b.Name)
	require.Len(t, b.Templates, 2)
	assert.Equal(t, "reviewer", b.Templates["reviewer"].Name)
	require.Len(t, b.Definition.Nodes, 2)
	assert.Equal(t, "writer", b.Definition.Nodes[0].AgentID.Template)
	assert.Equal(t, "a haiku about go", b.Input["message"])
}

func TestLoadBundle_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no workflow", "name: x\n", "bundle has no workflow"},
		{"stored agent", "workflow:\n  nodes:\n    - id: A\n      agent_id: 7\n", "must reference a template"},
		{"dangling edge", "workflow:\n  nodes:\n    - id: A\n      agent_id: w\n  edges:\n    - source: A\n      target: Z\n", "unknown node"},
		{"malformed", "workflow: [", "parse bundle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBundle(strings.NewReader(tt.in))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRunBundle(t *testing.T) {
	b, err := loadBundle(strings.NewReader(pipelineBundle))
	require.NoError(t, err)

	m := model.NewMockModel("mock", "mock").AddResponse("draft").AddResponse("reviewed")
	rec, err := runBundle(context.Background(), config.Default(), b, func(o *appOptions) { o.Model = m })
	require.NoError(t, err)

	assert.Equal(t, execution.StatusCompleted, rec.Status)
	assert.Equal(t, "reviewed", rec.Output["output"])
	assert.Equal(t, "Writer", rec.NodeResults["A"].AgentName)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Write a short draft.", reqs[0].Messages[0].Content)
}

func TestToolsCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"tools", "--env-file", "", "--category", "utility", "--json"})
	require.NoError(t, cmd.Execute())

	var tools []tool.Descriptor
	require.NoError(t, json.Unmarshal(out.Bytes(), &tools))
	require.NotEmpty(t, tools)
	for _, d := range tools {
		assert.Equal(t, "utility", d.Category)
	}
}

func TestWriteToolTable(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeToolTable(&out, []tool.Descriptor{{
		ID:          "calculator",
		Category:    "utility",
		Description: "Does math",
		Parameters: []tool.ParameterSpec{
			{Name: "operation", Required: true},
			{Name: "b"},
		},
	}}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "operation*,b")
}
