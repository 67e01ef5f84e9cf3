package tool

import (
	"context"
	"testing"
)

func TestEvaluate(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":      "7",
		"(1 + 2) * 3":    "9",
		"2 ^ 10":         "1024",
		"2 ** 3":         "8",
		"0.1 + 0.2":      "0.3",
		"-4 + abs(-6)":   "2",
		"10 % 4":         "2",
		"7 / 2":          "3.5",
		"sqrt(16)":       "4",
		"floor(2.7) + 1": "3",
		"1_000 * 3":      "3000",
	}
	for expr, want := range cases {
		got, err := Evaluate(expr)
		if err != nil {
			t.Fatalf("%s: %v", expr, err)
		}
		if got.String() != want {
			t.Fatalf("%s: expected %s, got %s", expr, want, got.String())
		}
	}
}

func TestEvaluate_Errors(t *testing.T) {
	for _, expr := range []string{"1 / 0", "5 % 0", "sqrt(-1)", "foo(2)", "x + 1", `"a" + 1`, "1 +"} {
		if _, err := Evaluate(expr); err == nil {
			t.Fatalf("expected error for %q", expr)
		}
	}
}

func TestCalculatorTool_Execute(t *testing.T) {
	out, err := NewCalculatorTool().Execute(context.Background(), map[string]any{"expression": "3 * (2 + 5)"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Answer: 21" {
		t.Fatalf("unexpected output: %q", out)
	}

	if _, err := NewCalculatorTool().Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing expression")
	}
}
