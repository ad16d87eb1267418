package model

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/bulldog/observability"
)

// Revert restores the state checkpointed at version and drops every later
// history entry. The entry for version itself is kept.
//
// With a restore hook the state comes from the hook; otherwise it is the
// snapshot retained in history. Versions missing from the history, and
// versions for which nothing can be restored, fail with
// ErrNoCheckpointAvailable and leave the Model untouched.
func (m *Model[S]) Revert(ctx context.Context, version Version) error {
	snap, exists := m.history.Lookup(version)
	if !exists {
		return fmt.Errorf("%w: %s is not in history", ErrNoCheckpointAvailable, version)
	}

	var (
		restored S
		ok       bool
	)
	if m.onRestore != nil {
		var err error
		restored, ok, err = m.onRestore(ctx, version, m.History())
		if err != nil {
			return fmt.Errorf("checkpoint restore %s: %w", version, err)
		}
	} else {
		restored, ok = snap.State()
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoCheckpointAvailable, version)
	}

	dropped := m.history.Len() - version.Step - 1
	m.data = restored.Clone()
	m.history.truncateAfter(version.Step)

	m.emit(ctx, EventRevert, observability.LevelInfo, "model.Revert", map[string]any{
		"step":    version.Step,
		"name":    version.Name,
		"dropped": dropped,
	})

	return nil
}

// Rollback skips the n most recent history entries and reverts to the one
// before them: Rollback(ctx, 1) returns to the second-to-last entry.
func (m *Model[S]) Rollback(ctx context.Context, n int) error {
	index := m.history.Len() - n - 1
	entry, ok := m.history.At(index)
	if n < 0 || !ok {
		return fmt.Errorf("%w: cannot skip %d of %d entries", ErrRollbackOutOfRange, n, m.history.Len())
	}
	return m.Revert(ctx, entry.Version)
}
