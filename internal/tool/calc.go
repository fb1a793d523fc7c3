package tool

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// CalcToolManager evaluates arithmetic expressions so the model does not
// have to do mental math
type CalcToolManager struct {
	toolSet
}

// NewCalcToolManager creates a new calculator tool manager
func NewCalcToolManager() *CalcToolManager {
	m := &CalcToolManager{toolSet: newToolSet()}
	m.RegisterTool("calculate", "Evaluate an arithmetic expression and return the result. Supports +, -, *, /, %, parentheses and common math functions (abs, ceil, floor, round, min, max, sqrt, pow).",
		[]message.ToolArgument{
			{Name: "expression", Description: "Expression to evaluate, e.g. '(1920 * 0.8) / 3'", Required: true, Type: "string"},
		},
		m.handleCalculate)
	return m
}

func calcEnv() map[string]any {
	return map[string]any{
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"round": math.Round,
		"sqrt":  math.Sqrt,
		"pow":   math.Pow,
		"min":   math.Min,
		"max":   math.Max,
		"pi":    math.Pi,
	}
}

func (m *CalcToolManager) handleCalculate(ctx context.Context, args message.ToolArgumentValues) (message.ToolResult, error) {
	expression, ok := args.String("expression")
	if !ok || strings.TrimSpace(expression) == "" {
		return message.NewToolResultError("expression parameter is required"), nil
	}

	env := calcEnv()
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to compile expression '%s': %v", expression, err)), nil
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return message.NewToolResultError(fmt.Sprintf("failed to evaluate expression '%s': %v", expression, err)), nil
	}

	switch v := result.(type) {
	case int:
		return message.NewToolResultText(fmt.Sprintf("%d", v)), nil
	case float64:
		// Integral floats print without a trailing .000000
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return message.NewToolResultText(fmt.Sprintf("%d", int64(v))), nil
		}
		return message.NewToolResultText(fmt.Sprintf("%g", v)), nil
	default:
		return message.NewToolResultError(fmt.Sprintf("expression result is not a number: %v", result)), nil
	}
}
