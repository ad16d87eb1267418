// Package model implements a versioned state container for step-by-step data
// pipelines.
//
// A Model owns one canonical state value. Callers register named functions
// and run them through the Model, which records every step in a history and
// can rewind to checkpointed steps:
//
//   - data modifiers turn a state copy into the next state and run through
//     Commit;
//   - business logic procedures receive a state copy plus a commit capability
//     and run through Dispatch;
//   - analyses read a state copy and a history copy, and run after every
//     checkpointed step, optionally in parallel.
//
// # State ownership
//
// The canonical state only changes inside Commit (and when Revert restores a
// checkpoint). Every read hands out a deep copy made with the state's Clone
// method, so holding on to a value returned by Current, History or a
// function argument never exposes the Model's own storage.
//
// # History
//
// Each Commit and each Dispatch adds one entry whose Version is the step
// ordinal and the function name. Entries of checkpoint-flagged names retain
// a snapshot: the state itself, or a token produced by a save hook that a
// restore hook later resolves. Revert and Rollback truncate the history back
// to a checkpointed entry.
//
//	m := model.New(state.New(map[string]any{"x": 2}))
//	m.RegisterDataModifier("scale", scale)
//	m.FlagCheckpoint("scale")
//	m.Commit(ctx, "scale", 3.0) // x = 6, step 0
//	m.Commit(ctx, "scale", 2.0) // x = 12, step 1
//	m.Revert(ctx, model.Version{Step: 0, Name: "scale"}) // x = 6
//
// # Concurrency
//
// A Model is single-caller: serialize Commit, Dispatch, Revert and Rollback
// externally if needed. Parallelizable analyses run on a worker pool sized at
// construction and receive private copies.
package model
