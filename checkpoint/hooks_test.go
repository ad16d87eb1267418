package checkpoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/bulldog/checkpoint"
	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

func scale(_ context.Context, data state.State, args ...any) (state.State, error) {
	x, _ := data.Float("x")
	return data.Set("x", x*args[0].(float64)), nil
}

func newHookedModel(t *testing.T, store checkpoint.Store, codec checkpoint.Codec[state.State], runID string) *model.Model[state.State] {
	t.Helper()
	save, restore := checkpoint.Hooks(store, codec, runID)
	m := model.New(state.New(map[string]any{"x": 2.0}),
		model.WithRunID[state.State](runID),
		model.WithSaveHook(save),
		model.WithRestoreHook(restore),
	)
	m.RegisterDataModifier("scale", scale)
	m.FlagCheckpoint("scale")
	return m
}

func TestKey(t *testing.T) {
	if got := checkpoint.Key("run-1", 4); got != "run-1/data_4" {
		t.Errorf("Key() = %q, want run-1/data_4", got)
	}
}

func TestHooks_CommitAndRevert(t *testing.T) {
	eachStore(t, func(t *testing.T, store checkpoint.Store) {
		ctx := context.Background()
		m := newHookedModel(t, store, checkpoint.JSONCodec[state.State]{}, "run-1")

		for _, f := range []float64{3, 2} {
			if _, err := m.Commit(ctx, "scale", f); err != nil {
				t.Fatalf("Commit(%v) error = %v", f, err)
			}
		}

		entry, _ := m.History().At(0)
		if token, ok := entry.Snapshot.Token(); !ok || token != "run-1/data_0" {
			t.Errorf("history[0] token = %q, %v; want run-1/data_0", token, ok)
		}

		keys, err := checkpoint.RunKeys(ctx, store, "run-1")
		if err != nil {
			t.Fatalf("RunKeys() error = %v", err)
		}
		if len(keys) != 2 {
			t.Errorf("RunKeys() = %v, want 2 keys", keys)
		}

		if err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"}); err != nil {
			t.Fatalf("Revert() error = %v", err)
		}
		if x, _ := m.Current().Float("x"); x != 6 {
			t.Errorf("x = %v, want 6", x)
		}
	})
}

func TestHooks_StepReuseOverwrites(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	m := newHookedModel(t, store, checkpoint.ProtoCodec{}, "run-1")

	for _, f := range []float64{3, 2} {
		if _, err := m.Commit(ctx, "scale", f); err != nil {
			t.Fatalf("Commit(%v) error = %v", f, err)
		}
	}
	if err := m.Rollback(ctx, 1); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if _, err := m.Commit(ctx, "scale", 10.0); err != nil {
		t.Fatalf("Commit(10) error = %v", err)
	}

	// Step 1 now holds x = 60, not the reverted x = 12.
	if err := m.Revert(ctx, model.Version{Step: 1, Name: "scale"}); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if x, _ := m.Current().Float("x"); x != 60 {
		t.Errorf("x = %v, want 60", x)
	}
}

func TestHooks_MissingKeyRestoresNothing(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	m := newHookedModel(t, store, checkpoint.JSONCodec[state.State]{}, "run-1")

	for _, f := range []float64{3, 2} {
		if _, err := m.Commit(ctx, "scale", f); err != nil {
			t.Fatalf("Commit(%v) error = %v", f, err)
		}
	}

	if err := checkpoint.Purge(ctx, store, "run-1"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}

	err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"})
	if !errors.Is(err, model.ErrNoCheckpointAvailable) {
		t.Errorf("Revert() error = %v, want %v", err, model.ErrNoCheckpointAvailable)
	}
}

func TestPurge_OnlyTouchesRun(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	err := store.Save(ctx,
		checkpoint.Entry{Key: "run-1/data_0", Value: []byte("a")},
		checkpoint.Entry{Key: "run-10/data_0", Value: []byte("b")},
	)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := checkpoint.Purge(ctx, store, "run-1"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}

	keys, _ := store.List(ctx)
	if len(keys) != 1 || keys[0] != "run-10/data_0" {
		t.Errorf("List() = %v, want [run-10/data_0]", keys)
	}
}
