package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	desc Descriptor
	cfg  Config
	run  func(ctx context.Context, params map[string]any) (*Result, error)
}

func (s *stubTool) Descriptor() Descriptor { return s.desc }

func (s *stubTool) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	if s.run == nil {
		return NewSuccess(params), nil
	}
	return s.run(ctx, params)
}

func stubFactory(desc Descriptor, run func(ctx context.Context, params map[string]any) (*Result, error)) Factory {
	return func(cfg Config) Tool { return &stubTool{desc: desc, cfg: cfg, run: run} }
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "echo", Category: "utility"}, nil)))

	assert.True(t, reg.Has("echo"))
	assert.Equal(t, 1, reg.Len())

	d, ok := reg.Descriptor("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", d.Name)
	assert.Equal(t, DefaultVersion, d.Version)

	inst, ok := reg.Instantiate("echo", Config{"k": "v"})
	require.True(t, ok)
	assert.Equal(t, Config{"k": "v"}, inst.(*stubTool).cfg)

	_, ok = reg.Instantiate("missing", nil)
	assert.False(t, ok)
	_, ok = reg.Factory("missing")
	assert.False(t, ok)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "echo"}, nil)))

	assert.ErrorIs(t, reg.Register(stubFactory(Descriptor{ID: "echo"}, nil)), ErrDuplicateTool)
	assert.ErrorIs(t, reg.Register(stubFactory(Descriptor{}, nil)), ErrToolIDEmpty)
	assert.ErrorIs(t, reg.Register(nil), ErrNilFactory)
	assert.ErrorIs(t, reg.Register(stubFactory(Descriptor{ID: "bad", Parameters: []ParameterSpec{{Name: "x", Type: "date"}}}, nil)), ErrInvalidParameter)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "a"}, nil)))
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "b"}, nil)))

	reg.Unregister("a")
	reg.Unregister("a")
	reg.Unregister("never")

	assert.False(t, reg.Has("a"))
	ids := []string{}
	for _, d := range reg.List(Filter{}) {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"b"}, ids)

	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "a"}, nil)))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ListFilters(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "calc", Category: "utility"}, nil)))
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "scrape", Category: "web"}, nil)))
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "old", Category: "utility", Disabled: true}, nil)))

	names := func(ds []Descriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []string{"calc", "scrape"}, names(reg.List(Filter{})))
	assert.Equal(t, []string{"calc"}, names(reg.List(Filter{Category: "utility"})))
	assert.Equal(t, []string{"calc", "old"}, names(reg.List(Filter{Category: "utility", IncludeDisabled: true})))

	require.NoError(t, reg.SetEnabled("old", true))
	assert.Equal(t, []string{"calc", "scrape", "old"}, names(reg.List(Filter{})))
	assert.ErrorIs(t, reg.SetEnabled("nope", true), ErrToolNotFound)

	stats := reg.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Enabled)
	assert.Equal(t, map[string]int{"utility": 2, "web": 1}, stats.Categories)
}

func TestRegistry_ToolDefinitions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{
		ID:          "calculator",
		Description: "Performs arithmetic",
		Parameters: []ParameterSpec{
			StringParam("operation", "op", WithEnum("add", "subtract")),
			NumberParam("a", "first"),
			NumberParam("b", "second", Optional()),
			ArrayParam("values", "list", map[string]any{"type": "number"}, Optional()),
			ObjectParam("options", "opts", map[string]any{"precision": map[string]any{"type": "integer"}}, Optional()),
		},
	}, nil)))
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "other"}, nil)))

	defs := reg.ToolDefinitions("calculator", "unknown")
	require.Len(t, defs, 1)

	raw, err := json.Marshal(defs[0])
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "function", got["type"])
	fn := got["function"].(map[string]any)
	assert.Equal(t, "calculator", fn["name"])
	assert.Equal(t, "Performs arithmetic", fn["description"])

	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []any{"operation", "a"}, params["required"])

	props := params["properties"].(map[string]any)
	assert.Equal(t, []any{"add", "subtract"}, props["operation"].(map[string]any)["enum"])
	assert.Equal(t, map[string]any{"type": "number"}, props["values"].(map[string]any)["items"])
	assert.NotContains(t, props["values"], "properties")
	assert.Contains(t, props["options"], "properties")
	assert.NotContains(t, props["a"], "enum")

	assert.Len(t, reg.ToolDefinitions(), 2)
}

func TestRegistry_ToolDefinitionsIdempotent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubFactory(Descriptor{ID: "calculator", Parameters: []ParameterSpec{NumberParam("a", "first")}}, nil)))

	first, err := json.Marshal(reg.ToolDefinitions())
	require.NoError(t, err)

	exec := NewExecutor(reg)
	exec.Execute(context.Background(), "calculator", map[string]any{"a": 1.0}, nil)

	second, err := json.Marshal(reg.ToolDefinitions())
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	d, _ := reg.Descriptor("calculator")
	assert.Equal(t, int64(1), d.UseCount)
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 10; i++ {
		require.NoError(t, reg.Register(stubFactory(Descriptor{ID: fmt.Sprintf("t%d", i)}, nil)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = reg.List(Filter{})
			_ = reg.ToolDefinitions()
			_, _ = reg.Instantiate(fmt.Sprintf("t%d", i%10), nil)
			if i%10 == 0 {
				_ = reg.Register(stubFactory(Descriptor{ID: fmt.Sprintf("late%d", i)}, nil))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 15, reg.Len())
}
