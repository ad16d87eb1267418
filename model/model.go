package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/bulldog/observability"
	"github.com/tailored-agentic-units/bulldog/workers"
)

// Cloneable is the constraint on model state: Clone must return a copy that
// shares no mutable memory with the receiver.
type Cloneable[S any] interface {
	Clone() S
}

// SaveHook persists a checkpoint and returns the token kept in history in
// place of the state. An empty token records the step as not checkpointed.
type SaveHook[S Cloneable[S]] func(ctx context.Context, data S, version Version, history Ledger[S]) (string, error)

// RestoreHook resolves a checkpointed version back into a state. Returning
// false means nothing could be restored for that version.
type RestoreHook[S Cloneable[S]] func(ctx context.Context, version Version, history Ledger[S]) (S, bool, error)

// Option configures a Model during New.
type Option[S Cloneable[S]] func(*Model[S])

// WithMaxWorkers sizes the analysis worker pool. Zero or less selects
// runtime.NumCPU().
func WithMaxWorkers[S Cloneable[S]](n int) Option[S] {
	return func(m *Model[S]) { m.maxWorkers = n }
}

// WithUniqueSteps toggles the one-dispatch-per-name rule (default on).
func WithUniqueSteps[S Cloneable[S]](unique bool) Option[S] {
	return func(m *Model[S]) { m.uniqueSteps = unique }
}

// WithSaveHook stores checkpoints through hook instead of in memory.
func WithSaveHook[S Cloneable[S]](hook SaveHook[S]) Option[S] {
	return func(m *Model[S]) { m.onSave = hook }
}

// WithRestoreHook resolves reverts through hook instead of the history.
func WithRestoreHook[S Cloneable[S]](hook RestoreHook[S]) Option[S] {
	return func(m *Model[S]) { m.onRestore = hook }
}

// WithObserver sends engine events to o. It takes precedence over the
// observer named in a Config.
func WithObserver[S Cloneable[S]](o observability.Observer) Option[S] {
	return func(m *Model[S]) {
		m.observer = o
		m.observerSet = true
	}
}

// WithObserverDeps supplies the logger and metrics registry that observers
// named in a Config are built on. It has no effect outside NewFromConfig.
func WithObserverDeps[S Cloneable[S]](deps observability.Deps) Option[S] {
	return func(m *Model[S]) { m.observerDeps = deps }
}

// WithRunID replaces the generated run identifier, for instance to resume
// writing checkpoints under an earlier run's keys.
func WithRunID[S Cloneable[S]](id string) Option[S] {
	return func(m *Model[S]) { m.runID = id }
}

// Model owns a canonical state value and the history of the steps applied
// to it.
//
// A Model is not safe for concurrent use. Commit, Dispatch, Revert and
// Rollback must be called by one caller at a time; only analyses flagged
// parallelizable run on other goroutines, and they only see copies.
type Model[S Cloneable[S]] struct {
	runID       string
	data        S
	history     Ledger[S]
	registry    *registry[S]
	uniqueSteps bool
	maxWorkers  int
	pool        *workers.Pool
	onSave      SaveHook[S]
	onRestore   RestoreHook[S]
	observer    observability.Observer

	observerSet  bool
	observerDeps observability.Deps
}

// New creates a Model holding a copy of initial.
//
//	m := model.New(state.New(map[string]any{"x": 2}))
//	m.RegisterDataModifier("scale", scale)
//	next, err := m.Commit(ctx, "scale", 3)
func New[S Cloneable[S]](initial S, opts ...Option[S]) *Model[S] {
	m := &Model[S]{
		runID:       uuid.Must(uuid.NewV7()).String(),
		data:        initial.Clone(),
		registry:    newRegistry[S](),
		uniqueSteps: true,
		observer:    observability.NoOpObserver{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.observer == nil {
		m.observer = observability.NoOpObserver{}
	}
	m.pool = workers.NewPool(m.maxWorkers, m.observer)

	return m
}

// NewFromConfig creates a Model from cfg. Options are applied after the
// configuration and override it. The observer list in cfg is always checked
// but only built when no WithObserver option is given.
func NewFromConfig[S Cloneable[S]](initial S, cfg *Config, opts ...Option[S]) (*Model[S], error) {
	if err := observability.Check(cfg.Observer); err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	base := []Option[S]{
		WithMaxWorkers[S](cfg.MaxWorkers),
		WithUniqueSteps[S](cfg.UniqueSteps()),
	}
	m := New(initial, append(base, opts...)...)
	if m.observerSet {
		return m, nil
	}

	observer, err := observability.Resolve(cfg.Observer, m.observerDeps)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	m.observer = observer
	m.pool = workers.NewPool(m.maxWorkers, observer)
	return m, nil
}

// RunID identifies this Model instance.
func (m *Model[S]) RunID() string {
	return m.runID
}

// MaxWorkers returns the analysis pool size.
func (m *Model[S]) MaxWorkers() int {
	return m.pool.Size()
}

// UniqueSteps reports whether a business logic name may be dispatched once
// only.
func (m *Model[S]) UniqueSteps() bool {
	return m.uniqueSteps
}

// Current returns a copy of the canonical state. Changes to the copy never
// reach the Model.
func (m *Model[S]) Current() S {
	return m.data.Clone()
}

// History returns a copy of the history.
func (m *Model[S]) History() Ledger[S] {
	return m.history.Clone()
}

// MarshalJSON exports the run ID, a state copy and a history copy.
func (m *Model[S]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID   string    `json:"run_id"`
		Data    S         `json:"data"`
		History Ledger[S] `json:"history"`
	}{
		RunID:   m.runID,
		Data:    m.Current(),
		History: m.History(),
	})
}

// UnmarshalJSON always fails: decoding into a Model would overwrite its state
// outside of Commit.
func (m *Model[S]) UnmarshalJSON([]byte) error {
	return ErrFrozenState
}

func (m *Model[S]) emit(ctx context.Context, t observability.EventType, level observability.Level, source string, data map[string]any) {
	data["run_id"] = m.runID
	m.observer.OnEvent(ctx, observability.NewEvent(t, level, source, data))
}
