// Package checkpoint persists model checkpoints outside the history.
//
// A Store is a flat key-value namespace with pluggable backends (memory,
// filesystem, BadgerDB, SQLite). Hooks turns a Store and a Codec into the
// save and restore hooks a model.Model accepts: each checkpointed step is
// encoded under the key "<run id>/data_<step>" and only that key is kept in
// the history.
//
//	store, err := checkpoint.Open(&cfg, logger)
//	save, restore := checkpoint.Hooks(store, checkpoint.JSONCodec[state.State]{}, runID)
//	m := model.New(initial,
//		model.WithRunID[state.State](runID),
//		model.WithSaveHook(save),
//		model.WithRestoreHook(restore),
//	)
package checkpoint
