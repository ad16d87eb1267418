package model_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/observability"
	"github.com/tailored-agentic-units/bulldog/state"
)

func TestNew_CopiesInitialState(t *testing.T) {
	initial := state.New(map[string]any{"x": 2.0})
	m := model.New(initial)

	initial.Data["x"] = 50.0

	if x := currentX(t, m); x != 2 {
		t.Errorf("x = %v, want 2", x)
	}
	if m.RunID() == "" {
		t.Error("RunID() is empty")
	}
	if !m.UniqueSteps() {
		t.Error("UniqueSteps() = false, want true by default")
	}
	if m.History().Len() != 0 {
		t.Errorf("History().Len() = %d, want 0", m.History().Len())
	}
}

func TestNew_RunID(t *testing.T) {
	a := model.New(state.New(nil))
	b := model.New(state.New(nil))
	if a.RunID() == b.RunID() {
		t.Errorf("two models share run ID %s", a.RunID())
	}

	c := model.New(state.New(nil), model.WithRunID[state.State]("resume-me"))
	if c.RunID() != "resume-me" {
		t.Errorf("RunID() = %q, want resume-me", c.RunID())
	}
}

func TestModel_MarshalJSON(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 2, model.WithRunID[state.State]("run-1"))
	m.FlagCheckpoint("scale")

	if _, err := m.Commit(ctx, "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := m.Commit(ctx, "missing"); err == nil {
		t.Fatal("Commit(missing) succeeded")
	}

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		RunID string `json:"run_id"`
		Data  struct {
			Data map[string]any `json:"data"`
		} `json:"data"`
		History []struct {
			Step  int             `json:"step"`
			Name  string          `json:"name"`
			State json.RawMessage `json:"state"`
		} `json:"history"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", decoded.RunID)
	}
	if decoded.Data.Data["x"] != 6.0 {
		t.Errorf("data.x = %v, want 6", decoded.Data.Data["x"])
	}
	if len(decoded.History) != 2 {
		t.Fatalf("history has %d entries, want 2", len(decoded.History))
	}
	if decoded.History[0].State == nil {
		t.Error("checkpointed entry exported without state")
	}
	if decoded.History[1].Name != "missing" || decoded.History[1].State != nil {
		t.Errorf("history[1] = %+v, want placeholder without state", decoded.History[1])
	}
}

func TestModel_UnmarshalJSONIsFrozen(t *testing.T) {
	m := newScaleModel(t, 2)

	err := json.Unmarshal([]byte(`{"data":{"data":{"x":100}}}`), m)
	if !errors.Is(err, model.ErrFrozenState) {
		t.Fatalf("Unmarshal() error = %v, want %v", err, model.ErrFrozenState)
	}
	if x := currentX(t, m); x != 2 {
		t.Errorf("x = %v, want 2", x)
	}
}

func TestRegistry_Listings(t *testing.T) {
	m := newScaleModel(t, 2)
	m.RegisterDataModifier("add", scale)
	m.RegisterBusinessLogic("zeta", doubleViaCommit)
	m.RegisterBusinessLogic("alpha", doubleViaCommit)

	if got, want := m.DataModifiers(), []string{"add", "scale"}; !equalStrings(got, want) {
		t.Errorf("DataModifiers() = %v, want %v", got, want)
	}
	if got, want := m.BusinessLogics(), []string{"alpha", "zeta"}; !equalStrings(got, want) {
		t.Errorf("BusinessLogics() = %v, want %v", got, want)
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	rec := observability.NewRecorder()
	m := newScaleModel(t, 2, model.WithObserver[state.State](rec))
	m.FlagCheckpoint("scale")
	m.RegisterBusinessLogic("double_via_commit", doubleViaCommit)
	m.RegisterAnalysis("noop", func(context.Context, state.State, model.Ledger[state.State]) error { return nil })

	if _, err := m.Dispatch(ctx, "double_via_commit"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := m.Rollback(ctx, 1); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	_, _ = m.Commit(ctx, "missing")

	tests := []struct {
		event observability.EventType
		count int
	}{
		{model.EventDispatchStart, 1},
		{model.EventDispatchComplete, 1},
		{model.EventCommitStart, 2},
		{model.EventCommitComplete, 1},
		{model.EventCommitFailed, 1},
		{model.EventAnalysesStart, 1},
		{model.EventCheckpointSave, 1},
		{model.EventRevert, 1},
	}

	for _, tt := range tests {
		if got := rec.Count(tt.event); got != tt.count {
			t.Errorf("Count(%s) = %d, want %d", tt.event, got, tt.count)
		}
	}

	for _, e := range rec.Events() {
		if strings.HasPrefix(e.Source, "model.") && e.Data["run_id"] != m.RunID() {
			t.Errorf("event %s missing run_id", e.Type)
			break
		}
	}
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := model.DefaultConfig()
		if cfg.MaxWorkers != 0 || !cfg.UniqueSteps() || cfg.Observer != "slog" {
			t.Errorf("DefaultConfig() = %+v", cfg)
		}
	})

	t.Run("nil unique steps means enabled", func(t *testing.T) {
		var cfg model.Config
		if !cfg.UniqueSteps() {
			t.Error("UniqueSteps() = false, want true")
		}
	})

	t.Run("merge", func(t *testing.T) {
		disabled := false
		cfg := model.DefaultConfig()
		cfg.Merge(&model.Config{MaxWorkers: 6, UniqueStepsNil: &disabled})

		if cfg.MaxWorkers != 6 {
			t.Errorf("MaxWorkers = %d, want 6", cfg.MaxWorkers)
		}
		if cfg.UniqueSteps() {
			t.Error("UniqueSteps() = true, want false")
		}
		if cfg.Observer != "slog" {
			t.Errorf("Observer = %q, want slog", cfg.Observer)
		}
	})
}

func TestNewFromConfig(t *testing.T) {
	disabled := false
	cfg := &model.Config{MaxWorkers: 2, UniqueStepsNil: &disabled, Observer: "noop"}

	m, err := model.NewFromConfig(state.New(nil), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if m.MaxWorkers() != 2 || m.UniqueSteps() {
		t.Errorf("MaxWorkers() = %d, UniqueSteps() = %v; want 2, false", m.MaxWorkers(), m.UniqueSteps())
	}

	override, err := model.NewFromConfig(state.New(nil), cfg, model.WithMaxWorkers[state.State](5))
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	if override.MaxWorkers() != 5 {
		t.Errorf("MaxWorkers() = %d, want option override 5", override.MaxWorkers())
	}

	if _, err := model.NewFromConfig(state.New(nil), &model.Config{Observer: "nope"}); err == nil {
		t.Error("NewFromConfig() with unknown observer succeeded")
	}
}

func TestNewFromConfig_ObserverList(t *testing.T) {
	rec := observability.NewRecorder()
	observability.RegisterObserver("model-test-recorder", rec)
	reg := prometheus.NewRegistry()

	cfg := &model.Config{Observer: "model-test-recorder, prometheus"}
	m, err := model.NewFromConfig(state.New(map[string]any{"x": 2.0}), cfg,
		model.WithObserverDeps[state.State](observability.Deps{Registerer: reg}),
	)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	m.RegisterDataModifier("scale", scale)

	if _, err := m.Commit(context.Background(), "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if rec.Count(model.EventCommitComplete) != 1 {
		t.Errorf("recorded events = %v, want one commit complete", rec.Types())
	}
	count, err := testutil.GatherAndCount(reg, "bulldog_events_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count == 0 {
		t.Error("no bulldog_events_total series on the supplied registry")
	}
}

func TestNewFromConfig_ObserverOptionWins(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := observability.NewRecorder()

	cfg := &model.Config{Observer: "prometheus"}
	m, err := model.NewFromConfig(state.New(map[string]any{"x": 2.0}), cfg,
		model.WithObserverDeps[state.State](observability.Deps{Registerer: reg}),
		model.WithObserver[state.State](rec),
	)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	m.RegisterDataModifier("scale", scale)
	if _, err := m.Commit(context.Background(), "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if rec.Count(model.EventCommitComplete) != 1 {
		t.Errorf("recorded events = %v, want one commit complete", rec.Types())
	}
	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("registry holds %d series, want 0 when the observer option overrides config", count)
	}

	_, err = model.NewFromConfig(state.New(nil), &model.Config{Observer: "slog,nope"}, model.WithObserver[state.State](rec))
	if !errors.Is(err, observability.ErrUnknownObserver) {
		t.Errorf("NewFromConfig() error = %v, want ErrUnknownObserver", err)
	}
}
