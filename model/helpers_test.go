package model_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

// scale multiplies the numeric field "x" by the first argument.
func scale(_ context.Context, data state.State, args ...any) (state.State, error) {
	if len(args) != 1 {
		return data, fmt.Errorf("scale takes one factor, got %d arguments", len(args))
	}
	factor, ok := args[0].(float64)
	if !ok {
		return data, fmt.Errorf("factor must be float64, got %T", args[0])
	}
	x, _ := data.Float("x")
	data.Data["x"] = x * factor
	return data, nil
}

func newScaleModel(t *testing.T, x float64, opts ...model.Option[state.State]) *model.Model[state.State] {
	t.Helper()
	m := model.New(state.New(map[string]any{"x": x}), opts...)
	m.RegisterDataModifier("scale", scale)
	return m
}

func currentX(t *testing.T, m *model.Model[state.State]) float64 {
	t.Helper()
	x, ok := m.Current().Float("x")
	if !ok {
		t.Fatalf("state has no numeric x: %v", m.Current().Data)
	}
	return x
}

func assertSteps(t *testing.T, m *model.Model[state.State]) {
	t.Helper()
	for i, v := range m.History().Versions() {
		if v.Step != i {
			t.Errorf("history[%d].Step = %d, want %d", i, v.Step, i)
		}
	}
}

func versionNames(h model.Ledger[state.State]) []string {
	versions := h.Versions()
	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
