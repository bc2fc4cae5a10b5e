package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlaceholders(t *testing.T) {
	out, err := RenderPlaceholders("Summarize {topic} in {count} bullets for {who}", map[string]any{
		"topic": "Go generics",
		"count": 3,
		"extra": "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Summarize Go generics in 3 bullets for {who}", out)
}

func TestRenderPlaceholders_StructuredValue(t *testing.T) {
	out, err := RenderPlaceholders("data: {payload}", map[string]any{"payload": map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, `data: {"a":1}`, out)
}

func TestRenderPlaceholders_Unencodable(t *testing.T) {
	_, err := RenderPlaceholders("x {ch}", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestStructFields(t *testing.T) {
	type args struct {
		Operation string   `json:"operation" description:"operation to apply" enum:"add, subtract"`
		A         float64  `json:"a"`
		Precision *int     `json:"precision"`
		Tags      []string `json:"tags,omitempty"`
		hidden    string
	}

	fields := StructFields(args{})
	require.Len(t, fields, 4)
	assert.Equal(t, FieldSchema{Name: "operation", Type: "string", Description: "operation to apply", Required: true, Enum: []string{"add", "subtract"}}, fields[0])
	assert.Equal(t, "number", fields[1].Type)
	assert.Equal(t, "integer", fields[2].Type)
	assert.False(t, fields[2].Required)
	assert.Equal(t, "array", fields[3].Type)
	assert.False(t, fields[3].Required)
}

func TestIsJSONType(t *testing.T) {
	assert.True(t, IsJSONType(3.0, "integer"))
	assert.False(t, IsJSONType(3.5, "integer"))
	assert.True(t, IsJSONType(3.5, "number"))
	assert.True(t, IsJSONType(7, "number"))
	assert.False(t, IsJSONType("7", "number"))
	assert.True(t, IsJSONType([]string{"a"}, "array"))
	assert.True(t, IsJSONType(map[string]any{}, "object"))
	assert.False(t, IsJSONType(map[int]any{}, "object"))
	assert.False(t, IsJSONType(nil, "string"))
	assert.False(t, IsJSONType(1, "boolean"))
}
