package tool

import (
	"context"
	"errors"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds the Descriptor (id, description, parameter specs) shown to models
//   - Invokes the wrapped function with already validated arguments
//   - Normalizes error handling so callers receive consistent results:
//     *ToolError        -> failed Result carrying the error code in metadata
//     any other error   -> returned as a fault (the Executor records its type)
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type FunctionTool struct {
	desc Descriptor
	fn   func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit parameter specs and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  []ParameterSpec{NumberParam("a", "First addend"), NumberParam("b", "Second addend")},
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	id, description string,
	params []ParameterSpec,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(d *Descriptor),
) *FunctionTool {
	d := Descriptor{
		ID:          id,
		Name:        id,
		Description: description,
		Category:    "custom",
		Version:     DefaultVersion,
		Parameters:  params,
	}
	for _, o := range optFns {
		o(&d)
	}
	return &FunctionTool{desc: d, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter specs from a struct using reflection.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sumTool := NewFunctionToolFromStruct("calculate_sum", "Calculate the sum of two numbers", SumArgs{}, fn)
func NewFunctionToolFromStruct(
	id, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(d *Descriptor),
) *FunctionTool {
	return NewFunctionTool(id, description, ParametersFromStruct(structType), fn, optFns...)
}

// Descriptor implements Tool.
func (t *FunctionTool) Descriptor() Descriptor { return t.desc.clone() }

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	out, err := t.fn(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			res := NewFailure("%s", toolErr.Message)
			if toolErr.Code != "" {
				res.WithMetadata(MetaErrorCode, toolErr.Code)
			}
			return res, nil
		}
		return nil, err
	}
	return NewSuccess(out), nil
}

// Factory returns a Factory that always yields this stateless tool.
func (t *FunctionTool) Factory() Factory {
	return func(Config) Tool { return t }
}

// WithCategory sets the descriptor category.
func WithCategory(category string) func(d *Descriptor) {
	return func(d *Descriptor) { d.Category = category }
}

// WithTags sets the descriptor tags.
func WithTags(tags ...string) func(d *Descriptor) {
	return func(d *Descriptor) { d.Tags = tags }
}
