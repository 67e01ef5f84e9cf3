package tool

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CalculatorTool evaluates arithmetic expressions exactly.
// Supported: + - * / %, ^ for powers, parentheses, and the functions
// sqrt, abs, round, floor and ceil.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

func (t *CalculatorTool) Name() string { return "calculator" }
func (t *CalculatorTool) Description() string {
	return "Useful for when you need to answer questions about math. " +
		"Input should be a plain arithmetic expression such as (3.5 + 2) * 4 ^ 2."
}
func (t *CalculatorTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"expression": {Type: "string", Description: "Arithmetic expression to evaluate"},
		},
		[]string{"expression"},
	)
}

type calcArgs struct {
	Expression string `mapstructure:"expression"`
}

func (a calcArgs) Validate() error {
	if strings.TrimSpace(a.Expression) == "" {
		return fmt.Errorf("missing argument: expression")
	}
	return nil
}

func (t *CalculatorTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	req, err := DecodeArgs[calcArgs](args)
	if err != nil {
		return "", err
	}
	v, err := Evaluate(req.Expression)
	if err != nil {
		return "", err
	}
	return "Answer: " + v.String(), nil
}

// Evaluate parses and computes expr.
func Evaluate(expr string) (decimal.Decimal, error) {
	expr = strings.ReplaceAll(strings.TrimSpace(expr), "**", "^")
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot parse expression %q: %w", expr, err)
	}
	return eval(node)
}

func eval(node ast.Expr) (decimal.Decimal, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return decimal.Zero, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return decimal.NewFromString(strings.ReplaceAll(n.Value, "_", ""))
	case *ast.ParenExpr:
		return eval(n.X)
	case *ast.UnaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return decimal.Zero, err
		}
		switch n.Op {
		case token.SUB:
			return x.Neg(), nil
		case token.ADD:
			return x, nil
		}
		return decimal.Zero, fmt.Errorf("unsupported operator %s", n.Op)
	case *ast.BinaryExpr:
		return evalBinary(n)
	case *ast.CallExpr:
		return evalCall(n)
	case *ast.Ident:
		switch strings.ToLower(n.Name) {
		case "pi":
			return decimal.NewFromFloat(math.Pi), nil
		case "e":
			return decimal.NewFromFloat(math.E), nil
		}
		return decimal.Zero, fmt.Errorf("unknown identifier %s", n.Name)
	}
	return decimal.Zero, fmt.Errorf("unsupported expression")
}

func evalBinary(n *ast.BinaryExpr) (decimal.Decimal, error) {
	x, err := eval(n.X)
	if err != nil {
		return decimal.Zero, err
	}
	y, err := eval(n.Y)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.Op {
	case token.ADD:
		return x.Add(y), nil
	case token.SUB:
		return x.Sub(y), nil
	case token.MUL:
		return x.Mul(y), nil
	case token.QUO:
		if y.IsZero() {
			return decimal.Zero, fmt.Errorf("division by zero")
		}
		return x.Div(y), nil
	case token.REM:
		if y.IsZero() {
			return decimal.Zero, fmt.Errorf("division by zero")
		}
		return x.Mod(y), nil
	case token.XOR:
		if !y.IsInteger() {
			return decimal.NewFromFloat(math.Pow(x.InexactFloat64(), y.InexactFloat64())), nil
		}
		if x.IsZero() && y.IsNegative() {
			return decimal.Zero, fmt.Errorf("division by zero")
		}
		return x.Pow(y), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported operator %s", n.Op)
}

func evalCall(n *ast.CallExpr) (decimal.Decimal, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok || len(n.Args) != 1 {
		return decimal.Zero, fmt.Errorf("unsupported function call")
	}
	x, err := eval(n.Args[0])
	if err != nil {
		return decimal.Zero, err
	}
	switch strings.ToLower(fn.Name) {
	case "sqrt":
		if x.IsNegative() {
			return decimal.Zero, fmt.Errorf("square root of negative number")
		}
		return decimal.NewFromFloat(math.Sqrt(x.InexactFloat64())), nil
	case "abs":
		return x.Abs(), nil
	case "round":
		return x.Round(0), nil
	case "floor":
		return x.Floor(), nil
	case "ceil":
		return x.Ceil(), nil
	}
	return decimal.Zero, fmt.Errorf("unknown function %s", fn.Name)
}
