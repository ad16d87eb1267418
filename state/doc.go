// Package state provides State, a map-backed value suitable as the canonical
// state of a model.Model.
//
// State is a value type whose operations never modify the receiver: Set,
// Delete and Merge return a new State. Clone produces a deep copy of nested
// maps and slices, so a copy handed to a data modifier or an analysis can be
// mutated freely without reaching the engine's canonical value.
//
//	s := state.New(map[string]any{"x": 2})
//	s = s.Set("label", "raw")
//	x, _ := s.Float("x") // 2
//
// Secrets live beside Data but are excluded from JSON encoding and from the
// checkpoint codecs, so tokens or credentials never reach a checkpoint store.
package state
