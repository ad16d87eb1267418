package model

import (
	"context"
	"maps"
	"slices"
)

// DataModifier receives a copy of the current state and returns the next
// state. Mutating data in place and returning it is the expected idiom.
type DataModifier[S Cloneable[S]] func(ctx context.Context, data S, args ...any) (S, error)

// CommitFunc is the commit capability handed to business logic.
type CommitFunc[S Cloneable[S]] func(ctx context.Context, name string, args ...any) (S, error)

// BusinessLogic receives a copy of the current state and a commit
// capability. Its return value goes back to the Dispatch caller and never
// replaces state; only calls to commit do.
type BusinessLogic[S Cloneable[S]] func(ctx context.Context, data S, commit CommitFunc[S], args ...any) (any, error)

// Analysis is a read-only report over a state copy and a history copy.
type Analysis[S Cloneable[S]] func(ctx context.Context, data S, history Ledger[S]) error

// Guard is what registering a data modifier or business logic hands back in
// place of the function. Calling it always fails: registered functions run
// only through Commit or Dispatch.
type Guard struct {
	role Role
	name string
}

func (g Guard) Role() Role   { return g.role }
func (g Guard) Name() string { return g.name }

// Call fails with a *NotCallableError naming the role.
func (g Guard) Call(context.Context, ...any) error {
	return &NotCallableError{Role: g.role, Name: g.name}
}

type namedAnalysis[S Cloneable[S]] struct {
	name string
	fn   Analysis[S]
}

type registry[S Cloneable[S]] struct {
	modifiers      map[string]DataModifier[S]
	logic          map[string]BusinessLogic[S]
	analyses       map[string]Analysis[S]
	analysisOrder  []string
	checkpoints    map[string]struct{}
	parallelizable map[string]struct{}
}

func newRegistry[S Cloneable[S]]() *registry[S] {
	return &registry[S]{
		modifiers:      make(map[string]DataModifier[S]),
		logic:          make(map[string]BusinessLogic[S]),
		analyses:       make(map[string]Analysis[S]),
		checkpoints:    make(map[string]struct{}),
		parallelizable: make(map[string]struct{}),
	}
}

// partition splits registered analyses into the parallelizable batch and the
// sequential batch, both in registration order.
func (r *registry[S]) partition() (parallel, sequential []namedAnalysis[S]) {
	for _, name := range r.analysisOrder {
		a := namedAnalysis[S]{name: name, fn: r.analyses[name]}
		if _, ok := r.parallelizable[name]; ok {
			parallel = append(parallel, a)
		} else {
			sequential = append(sequential, a)
		}
	}
	return parallel, sequential
}

func (r *registry[S]) checkpointed(name string) bool {
	_, ok := r.checkpoints[name]
	return ok
}

// RegisterDataModifier stores fn under name, replacing any earlier
// registration.
func (m *Model[S]) RegisterDataModifier(name string, fn DataModifier[S]) Guard {
	m.registry.modifiers[name] = fn
	return Guard{role: RoleDataModifier, name: name}
}

// RegisterBusinessLogic stores fn under name, replacing any earlier
// registration.
func (m *Model[S]) RegisterBusinessLogic(name string, fn BusinessLogic[S]) Guard {
	m.registry.logic[name] = fn
	return Guard{role: RoleBusinessLogic, name: name}
}

// RegisterAnalysis stores fn under name. Re-registering a name replaces the
// function but keeps its original position in the run order.
func (m *Model[S]) RegisterAnalysis(name string, fn Analysis[S]) {
	if _, exists := m.registry.analyses[name]; !exists {
		m.registry.analysisOrder = append(m.registry.analysisOrder, name)
	}
	m.registry.analyses[name] = fn
}

// FlagCheckpoint marks name so that committing or dispatching it runs the
// analyses and retains a snapshot. The flag may precede registration.
func (m *Model[S]) FlagCheckpoint(name string) {
	m.registry.checkpoints[name] = struct{}{}
}

// FlagParallelizable lets the analysis registered under name run on the
// worker pool.
func (m *Model[S]) FlagParallelizable(name string) {
	m.registry.parallelizable[name] = struct{}{}
}

// Checkpointed reports whether name carries the checkpoint flag.
func (m *Model[S]) Checkpointed(name string) bool {
	return m.registry.checkpointed(name)
}

// DataModifiers returns the registered data modifier names, sorted.
func (m *Model[S]) DataModifiers() []string {
	return slices.Sorted(maps.Keys(m.registry.modifiers))
}

// BusinessLogics returns the registered business logic names, sorted.
func (m *Model[S]) BusinessLogics() []string {
	return slices.Sorted(maps.Keys(m.registry.logic))
}

// Analyses returns the registered analysis names in registration order.
func (m *Model[S]) Analyses() []string {
	return slices.Clone(m.registry.analysisOrder)
}
