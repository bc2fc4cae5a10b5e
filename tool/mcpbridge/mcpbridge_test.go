package mcpbridge

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentstudio/tool"
)

type fakeSession struct {
	tools   []mcp.Tool
	calls   []mcp.CallToolRequest
	result  *mcp.CallToolResult
	listErr error
	closed  bool
}

func (f *fakeSession) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeSession) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, req)
	return f.result, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func newFake() *fakeSession {
	return &fakeSession{
		tools: []mcp.Tool{
			mcp.NewTool("search",
				mcp.WithDescription("Search documents"),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
				mcp.WithNumber("limit", mcp.Description("Max hits")),
			),
		},
		result: &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent("hit one"), mcp.NewTextContent("hit two")},
		},
	}
}

func TestBridge_RegisterAndExecute(t *testing.T) {
	fake := newFake()
	b := New()
	require.NoError(t, b.Attach("docs", fake))

	reg := tool.NewRegistry()
	require.NoError(t, b.Register(context.Background(), reg))

	id := ToolID("docs", "search")
	assert.Equal(t, "docs__search", id)

	desc, ok := reg.Descriptor(id)
	require.True(t, ok)
	assert.Equal(t, Category, desc.Category)
	require.Len(t, desc.Parameters, 2)
	assert.Equal(t, "limit", desc.Parameters[0].Name)
	assert.False(t, desc.Parameters[0].Required)
	assert.Equal(t, "query", desc.Parameters[1].Name)
	assert.True(t, desc.Parameters[1].Required)

	exec := tool.NewExecutor(reg)
	res := exec.Execute(context.Background(), id, map[string]any{"query": "go"}, nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hit one\nhit two", res.Data)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "search", fake.calls[0].Params.Name)

	res = exec.Execute(context.Background(), id, map[string]any{}, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "missing required parameter: query", res.Error)
	assert.Len(t, fake.calls, 1)
}

func TestBridge_RemoteError(t *testing.T) {
	fake := newFake()
	fake.result = &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.NewTextContent("index offline")}}

	b := New()
	require.NoError(t, b.Attach("docs", fake))
	reg := tool.NewRegistry()
	require.NoError(t, b.Register(context.Background(), reg))

	res := tool.NewExecutor(reg).Execute(context.Background(), "docs__search", map[string]any{"query": "go"}, nil)
	assert.False(t, res.Success)
	assert.Equal(t, "index offline", res.Error)
}

func TestBridge_ListFailureAndClose(t *testing.T) {
	broken := &fakeSession{listErr: errors.New("boom")}
	b := New()
	require.NoError(t, b.Attach("broken", broken))
	require.Error(t, b.Attach("broken", broken))

	err := b.Register(context.Background(), tool.NewRegistry())
	assert.ErrorContains(t, err, "list tools of broken")

	require.NoError(t, b.Close())
	assert.True(t, broken.closed)
	assert.Empty(t, b.Servers())
}

func TestToolID_Sanitizes(t *testing.T) {
	assert.Equal(t, "my_server__read_file", ToolID("my server", "read.file"))
}
