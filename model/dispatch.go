package model

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/bulldog/observability"
)

// Dispatch runs the business logic registered under name and returns its
// output.
//
// The procedure receives a copy of the current state and m.Commit. Its
// return value is handed back to the caller and never becomes state: editing
// the received copy and returning it changes nothing. Only commits made
// through the capability change state.
//
// With unique steps enabled, a name already present in the history fails
// with ErrBusinessLogicAlreadyExecuted before anything runs. The dispatch
// entry is appended after the procedure returns, so it follows the entries
// of the commits made inside it. A failing procedure adds no entry of its
// own; commits it made before failing remain.
func (m *Model[S]) Dispatch(ctx context.Context, name string, args ...any) (any, error) {
	if m.uniqueSteps && m.history.Contains(name) {
		return nil, m.dispatchFailed(ctx, name, fmt.Errorf("%w: %s", ErrBusinessLogicAlreadyExecuted, name))
	}

	logic, exists := m.registry.logic[name]
	if !exists {
		return nil, m.dispatchFailed(ctx, name, fmt.Errorf("%w: %s", ErrBusinessLogicNotFound, name))
	}

	m.emit(ctx, EventDispatchStart, observability.LevelVerbose, "model.Dispatch", map[string]any{
		"name": name,
	})

	output, err := logic(ctx, m.Current(), m.Commit, args...)
	if err != nil {
		return nil, m.dispatchFailed(ctx, name, &StepError{Role: RoleBusinessLogic, Name: name, Err: err})
	}

	version := Version{Step: m.history.Len(), Name: name}
	var snap Snapshot[S]

	checkpointed := m.registry.checkpointed(name)
	if checkpointed {
		if err := m.RunAnalyses(ctx); err != nil {
			return nil, m.dispatchFailed(ctx, name, err)
		}
		snap, err = m.snapshot(ctx, version)
		if err != nil {
			return nil, m.dispatchFailed(ctx, name, err)
		}
	}

	m.history.reserve(name)
	m.history.store(version, snap)

	m.emit(ctx, EventDispatchComplete, observability.LevelInfo, "model.Dispatch", map[string]any{
		"step":         version.Step,
		"name":         name,
		"checkpointed": checkpointed,
	})

	return output, nil
}

func (m *Model[S]) dispatchFailed(ctx context.Context, name string, err error) error {
	m.emit(ctx, EventDispatchFailed, observability.LevelError, "model.Dispatch", map[string]any{
		"name":  name,
		"error": err.Error(),
	})
	return err
}
