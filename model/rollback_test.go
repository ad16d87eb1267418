package model_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

// tokenStore keeps checkpoints outside the history, keyed by token.
type tokenStore struct {
	saved   map[string]state.State
	lengths []int
}

func newTokenStore() *tokenStore {
	return &tokenStore{saved: make(map[string]state.State)}
}

func (s *tokenStore) save(_ context.Context, data state.State, version model.Version, history model.Ledger[state.State]) (string, error) {
	token := fmt.Sprintf("data_%d", version.Step)
	s.saved[token] = data
	s.lengths = append(s.lengths, history.Len())
	return token, nil
}

func (s *tokenStore) restore(_ context.Context, version model.Version, _ model.Ledger[state.State]) (state.State, bool, error) {
	data, ok := s.saved[fmt.Sprintf("data_%d", version.Step)]
	return data, ok, nil
}

func TestRevert_UnknownVersion(t *testing.T) {
	m := newScaleModel(t, 2)
	m.FlagCheckpoint("scale")

	if _, err := m.Commit(context.Background(), "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	tests := []struct {
		name    string
		version model.Version
	}{
		{"wrong name", model.Version{Step: 0, Name: "other"}},
		{"wrong step", model.Version{Step: 4, Name: "scale"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Revert(context.Background(), tt.version)
			if !errors.Is(err, model.ErrNoCheckpointAvailable) {
				t.Errorf("Revert() error = %v, want %v", err, model.ErrNoCheckpointAvailable)
			}
		})
	}
}

func TestRevert_NotCheckpointed(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 2)

	if _, err := m.Commit(ctx, "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := m.Commit(ctx, "scale", 2.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"})
	if !errors.Is(err, model.ErrNoCheckpointAvailable) {
		t.Fatalf("Revert() error = %v, want %v", err, model.ErrNoCheckpointAvailable)
	}

	if x := currentX(t, m); x != 12 {
		t.Errorf("x = %v, want 12", x)
	}
	if m.History().Len() != 2 {
		t.Errorf("History().Len() = %d, want 2", m.History().Len())
	}
}

func TestRevert_EmptyStateIsACheckpoint(t *testing.T) {
	ctx := context.Background()
	m := model.New(state.New(map[string]any{"x": 1.0}))
	m.RegisterDataModifier("clear", func(context.Context, state.State, ...any) (state.State, error) {
		return state.New(nil), nil
	})
	m.RegisterDataModifier("fill", func(_ context.Context, data state.State, _ ...any) (state.State, error) {
		return data.Set("y", 2.0), nil
	})
	m.FlagCheckpoint("clear")

	if _, err := m.Commit(ctx, "clear"); err != nil {
		t.Fatalf("Commit(clear) error = %v", err)
	}
	if _, err := m.Commit(ctx, "fill"); err != nil {
		t.Fatalf("Commit(fill) error = %v", err)
	}

	if err := m.Revert(ctx, model.Version{Step: 0, Name: "clear"}); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if m.Current().Len() != 0 {
		t.Errorf("state = %v, want empty", m.Current().Data)
	}
}

func TestRevert_RepeatedReverts(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 1)
	m.FlagCheckpoint("scale")

	for _, f := range []float64{2, 3, 5} {
		if _, err := m.Commit(ctx, "scale", f); err != nil {
			t.Fatalf("Commit(%v) error = %v", f, err)
		}
	}

	if err := m.Revert(ctx, model.Version{Step: 1, Name: "scale"}); err != nil {
		t.Fatalf("Revert(1) error = %v", err)
	}
	if x := currentX(t, m); x != 6 {
		t.Errorf("x = %v, want 6", x)
	}

	// Later steps are gone.
	if err := m.Revert(ctx, model.Version{Step: 2, Name: "scale"}); !errors.Is(err, model.ErrNoCheckpointAvailable) {
		t.Errorf("Revert(2) error = %v, want %v", err, model.ErrNoCheckpointAvailable)
	}

	if err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"}); err != nil {
		t.Fatalf("Revert(0) error = %v", err)
	}
	if x := currentX(t, m); x != 2 {
		t.Errorf("x = %v, want 2", x)
	}
	if m.History().Len() != 1 {
		t.Errorf("History().Len() = %d, want 1", m.History().Len())
	}
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 1)
	m.FlagCheckpoint("scale")

	for _, f := range []float64{2, 3, 5} {
		if _, err := m.Commit(ctx, "scale", f); err != nil {
			t.Fatalf("Commit(%v) error = %v", f, err)
		}
	}

	if err := m.Rollback(ctx, 0); err != nil {
		t.Fatalf("Rollback(0) error = %v", err)
	}
	if x := currentX(t, m); x != 30 || m.History().Len() != 3 {
		t.Errorf("after Rollback(0): x = %v, len = %d; want 30, 3", x, m.History().Len())
	}

	if err := m.Rollback(ctx, 2); err != nil {
		t.Fatalf("Rollback(2) error = %v", err)
	}
	if x := currentX(t, m); x != 2 || m.History().Len() != 1 {
		t.Errorf("after Rollback(2): x = %v, len = %d; want 2, 1", x, m.History().Len())
	}
}

func TestRollback_OutOfRange(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 1)
	m.FlagCheckpoint("scale")

	if _, err := m.Commit(ctx, "scale", 2.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	for _, n := range []int{-1, 1, 5} {
		if err := m.Rollback(ctx, n); !errors.Is(err, model.ErrRollbackOutOfRange) {
			t.Errorf("Rollback(%d) error = %v, want %v", n, err, model.ErrRollbackOutOfRange)
		}
	}
	if x := currentX(t, m); x != 2 {
		t.Errorf("x = %v, want 2", x)
	}
}

func TestHooks_SaveAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newTokenStore()
	m := newScaleModel(t, 2,
		model.WithSaveHook[state.State](store.save),
		model.WithRestoreHook[state.State](store.restore),
	)
	m.FlagCheckpoint("scale")

	for _, f := range []float64{3, 2} {
		if _, err := m.Commit(ctx, "scale", f); err != nil {
			t.Fatalf("Commit(%v) error = %v", f, err)
		}
	}

	entry, _ := m.History().At(1)
	if token, ok := entry.Snapshot.Token(); !ok || token != "data_1" {
		t.Errorf("history[1] token = %q, %v; want data_1, true", token, ok)
	}
	if _, ok := entry.Snapshot.State(); ok {
		t.Error("history kept a state copy alongside the save hook token")
	}
	// The hook sees the history with the step's own slot reserved.
	if want := []int{1, 2}; len(store.lengths) != 2 || store.lengths[0] != want[0] || store.lengths[1] != want[1] {
		t.Errorf("history lengths seen by save hook = %v, want %v", store.lengths, want)
	}

	if err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"}); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if x := currentX(t, m); x != 6 {
		t.Errorf("x = %v, want 6", x)
	}
}

func TestHooks_EmptyTokenMeansNoCheckpoint(t *testing.T) {
	ctx := context.Background()
	m := newScaleModel(t, 2,
		model.WithSaveHook[state.State](func(context.Context, state.State, model.Version, model.Ledger[state.State]) (string, error) {
			return "", nil
		}),
	)
	m.FlagCheckpoint("scale")

	if _, err := m.Commit(ctx, "scale", 3.0); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	entry, _ := m.History().At(0)
	if entry.Snapshot.Present() {
		t.Error("empty token recorded as a checkpoint")
	}
	if err := m.Revert(ctx, entry.Version); !errors.Is(err, model.ErrNoCheckpointAvailable) {
		t.Errorf("Revert() error = %v, want %v", err, model.ErrNoCheckpointAvailable)
	}
}

func TestHooks_Errors(t *testing.T) {
	ctx := context.Background()
	errDisk := errors.New("disk full")

	t.Run("save", func(t *testing.T) {
		m := newScaleModel(t, 2,
			model.WithSaveHook[state.State](func(context.Context, state.State, model.Version, model.Ledger[state.State]) (string, error) {
				return "", errDisk
			}),
		)
		m.FlagCheckpoint("scale")

		if _, err := m.Commit(ctx, "scale", 3.0); !errors.Is(err, errDisk) {
			t.Errorf("Commit() error = %v, want %v", err, errDisk)
		}
	})

	t.Run("restore", func(t *testing.T) {
		m := newScaleModel(t, 2,
			model.WithRestoreHook[state.State](func(context.Context, model.Version, model.Ledger[state.State]) (state.State, bool, error) {
				return state.State{}, false, errDisk
			}),
		)
		m.FlagCheckpoint("scale")

		if _, err := m.Commit(ctx, "scale", 3.0); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if _, err := m.Commit(ctx, "scale", 2.0); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		if err := m.Revert(ctx, model.Version{Step: 0, Name: "scale"}); !errors.Is(err, errDisk) {
			t.Errorf("Revert() error = %v, want %v", err, errDisk)
		}
		if m.History().Len() != 2 {
			t.Errorf("History().Len() = %d, want 2 (failed revert must not truncate)", m.History().Len())
		}
	})
}
