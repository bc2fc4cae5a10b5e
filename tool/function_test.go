package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetArgs struct {
	Name     string `json:"name" description:"Who to greet"`
	Language string `json:"language,omitempty" description:"Greeting language" enum:"en,de"`
}

func TestFunctionTool_FromStruct(t *testing.T) {
	ft := NewFunctionToolFromStruct("greet", "Greets someone", greetArgs{}, func(_ context.Context, args map[string]any) (any, error) {
		if args["language"] == "de" {
			return "Hallo " + args["name"].(string), nil
		}
		return "Hello " + args["name"].(string), nil
	}, WithCategory("demo"), WithTags("social"))

	d := ft.Descriptor()
	assert.Equal(t, "greet", d.ID)
	assert.Equal(t, "demo", d.Category)
	assert.Equal(t, []string{"social"}, d.Tags)
	require.Len(t, d.Parameters, 2)
	assert.True(t, d.Parameters[0].Required)
	assert.False(t, d.Parameters[1].Required)
	assert.Equal(t, []any{"en", "de"}, d.Parameters[1].Enum)

	reg := NewRegistry()
	require.NoError(t, reg.Register(ft.Factory()))
	exec := NewExecutor(reg)

	res := exec.Execute(context.Background(), "greet", map[string]any{"name": "Ada", "language": "de"}, nil)
	require.True(t, res.Success)
	assert.Equal(t, "Hallo Ada", res.Data)
}

func TestFunctionTool_Errors(t *testing.T) {
	ft := NewFunctionTool("picky", "Rejects input", nil, func(_ context.Context, args map[string]any) (any, error) {
		if _, ok := args["hard"]; ok {
			return nil, errors.New("hard failure")
		}
		return nil, NewToolError("picky", "input rejected", "VALIDATION_ERROR")
	})

	res, err := ft.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "input rejected", res.Error)
	assert.Equal(t, "VALIDATION_ERROR", res.Metadata[MetaErrorCode])

	_, err = ft.Execute(context.Background(), map[string]any{"hard": true})
	assert.EqualError(t, err, "hard failure")
}

func TestToolError(t *testing.T) {
	assert.Equal(t, "tool error [EXECUTION_ERROR] in calc: boom", NewToolError("calc", "boom", "EXECUTION_ERROR").Error())
	assert.Equal(t, "tool error in calc: boom", NewToolError("calc", "boom", "").Error())
}

func TestConfigAccessors(t *testing.T) {
	c := Config{"s": "x", "i": 3.0, "b": true, "d": "2s", "n": 5}
	assert.Equal(t, "x", c.String("s", "def"))
	assert.Equal(t, "def", c.String("missing", "def"))
	assert.Equal(t, 3, c.Int("i", 0))
	assert.True(t, c.Bool("b", false))
	assert.Equal(t, "2s", c.Duration("d", 0).String())
	assert.Equal(t, "5s", c.Duration("n", 0).String())

	var nilCfg Config
	assert.Equal(t, 7, nilCfg.Int("x", 7))
}
