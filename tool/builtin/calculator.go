// Package builtin provides the tools that ship with agentstudio.
package builtin

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/agentstudio/tool"
)

// CalculatorID is the registry id of the calculator tool.
const CalculatorID = "calculator"

// Calculator performs basic arithmetic on two operands.
type Calculator struct{}

// NewCalculator is the tool.Factory of the calculator.
func NewCalculator(tool.Config) tool.Tool { return Calculator{} }

// Descriptor implements tool.Tool.
func (Calculator) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		ID:          CalculatorID,
		Name:        "Calculator",
		Description: "Performs arithmetic on two numbers: add, subtract, multiply, divide, power or sqrt (uses a only).",
		Category:    "utility",
		Tags:        []string{"math"},
		Parameters: []tool.ParameterSpec{
			tool.StringParam("operation", "Operation to perform", tool.WithEnum("add", "subtract", "multiply", "divide", "power", "sqrt")),
			tool.NumberParam("a", "First operand"),
			tool.NumberParam("b", "Second operand", tool.Optional(), tool.WithDefault(0.0)),
		},
	}
}

// Execute implements tool.Tool.
func (Calculator) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	op, _ := params["operation"].(string)
	a, err := toFloat(params["a"])
	if err != nil {
		return tool.NewFailure("parameter a: %v", err), nil
	}
	b, err := toFloat(params["b"])
	if err != nil {
		return tool.NewFailure("parameter b: %v", err), nil
	}

	var result float64
	switch op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return tool.NewFailure("division by zero"), nil
		}
		result = a / b
	case "power":
		result = math.Pow(a, b)
	case "sqrt":
		if a < 0 {
			return tool.NewFailure("square root of negative number"), nil
		}
		result = math.Sqrt(a)
	default:
		return tool.NewFailure("unsupported operation: %s", op), nil
	}

	return tool.NewSuccess(map[string]any{"result": result}), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
