package model

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/bulldog/observability"
)

// Commit applies the data modifier registered under name to a copy of the
// current state and makes its result the canonical state.
//
// The history slot for the step is reserved before the modifier is looked up,
// so a failed commit still occupies a step: the entry stays in history with
// no snapshot as a trace of the attempt. On failure the canonical state is
// unchanged.
//
// When name is checkpoint-flagged the analyses run against the new state and
// the entry retains a snapshot, or the save hook's token when one is set.
func (m *Model[S]) Commit(ctx context.Context, name string, args ...any) (S, error) {
	var zero S

	version := m.history.reserve(name)
	m.emit(ctx, EventCommitStart, observability.LevelVerbose, "model.Commit", map[string]any{
		"step": version.Step,
		"name": name,
	})

	modifier, exists := m.registry.modifiers[name]
	if !exists {
		return zero, m.commitFailed(ctx, version, fmt.Errorf("%w: %s", ErrDataModifierNotFound, name))
	}

	next, err := modifier(ctx, m.Current(), args...)
	if err != nil {
		return zero, m.commitFailed(ctx, version, &StepError{Role: RoleDataModifier, Name: name, Err: err})
	}
	// the modifier may still hold a reference to what it returned
	m.data = next.Clone()

	checkpointed := m.registry.checkpointed(name)
	if checkpointed {
		if err := m.RunAnalyses(ctx); err != nil {
			return zero, m.commitFailed(ctx, version, err)
		}
		snap, err := m.snapshot(ctx, version)
		if err != nil {
			return zero, m.commitFailed(ctx, version, err)
		}
		m.history.store(version, snap)
	}

	m.emit(ctx, EventCommitComplete, observability.LevelInfo, "model.Commit", map[string]any{
		"step":         version.Step,
		"name":         name,
		"checkpointed": checkpointed,
	})

	return m.Current(), nil
}

func (m *Model[S]) commitFailed(ctx context.Context, version Version, err error) error {
	m.emit(ctx, EventCommitFailed, observability.LevelError, "model.Commit", map[string]any{
		"step":  version.Step,
		"name":  version.Name,
		"error": err.Error(),
	})
	return err
}

// snapshot builds the history snapshot for a checkpointed step from the
// current state.
func (m *Model[S]) snapshot(ctx context.Context, version Version) (Snapshot[S], error) {
	if m.onSave == nil {
		m.emit(ctx, EventCheckpointSave, observability.LevelVerbose, "model.snapshot", map[string]any{
			"step": version.Step,
			"name": version.Name,
		})
		return stateSnapshot(m.Current()), nil
	}

	token, err := m.onSave(ctx, m.Current(), version, m.History())
	if err != nil {
		return Snapshot[S]{}, fmt.Errorf("checkpoint save %s: %w", version, err)
	}

	m.emit(ctx, EventCheckpointSave, observability.LevelVerbose, "model.snapshot", map[string]any{
		"step":  version.Step,
		"name":  version.Name,
		"token": token,
	})

	if token == "" {
		return Snapshot[S]{}, nil
	}
	return tokenSnapshot[S](token), nil
}
