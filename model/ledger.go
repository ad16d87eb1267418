package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Version identifies a history entry. Step is the entry's position in the
// history, which equals the history length when the entry was created.
type Version struct {
	Step int    `json:"step"`
	Name string `json:"name"`
}

func (v Version) String() string {
	return fmt.Sprintf("%s@%d", v.Name, v.Step)
}

// Snapshot is what a history entry retained for its step: a state copy, a
// token returned by a save hook, or nothing.
type Snapshot[S Cloneable[S]] struct {
	state    S
	token    string
	hasState bool
}

func stateSnapshot[S Cloneable[S]](s S) Snapshot[S] {
	return Snapshot[S]{state: s, hasState: true}
}

func tokenSnapshot[S Cloneable[S]](token string) Snapshot[S] {
	return Snapshot[S]{token: token}
}

// State returns a copy of the retained state.
func (s Snapshot[S]) State() (S, bool) {
	if !s.hasState {
		var zero S
		return zero, false
	}
	return s.state.Clone(), true
}

// Token returns the save hook token.
func (s Snapshot[S]) Token() (string, bool) {
	return s.token, s.token != ""
}

// Present reports whether the entry retained anything at all.
func (s Snapshot[S]) Present() bool {
	return s.hasState || s.token != ""
}

func (s Snapshot[S]) clone() Snapshot[S] {
	if s.hasState {
		s.state = s.state.Clone()
	}
	return s
}

// Entry pairs a Version with its Snapshot.
type Entry[S Cloneable[S]] struct {
	Version  Version
	Snapshot Snapshot[S]
}

// Ledger is the ordered history of executed steps. Values handed out by a
// Model are copies: nothing done to a Ledger reaches the engine.
type Ledger[S Cloneable[S]] struct {
	entries []Entry[S]
}

// Len returns the number of entries.
func (l Ledger[S]) Len() int {
	return len(l.entries)
}

// Entries returns the entries in step order.
func (l Ledger[S]) Entries() []Entry[S] {
	return slices.Clone(l.entries)
}

// Versions returns the versions in step order.
func (l Ledger[S]) Versions() []Version {
	versions := make([]Version, len(l.entries))
	for i, e := range l.entries {
		versions[i] = e.Version
	}
	return versions
}

// At returns the entry at position i.
func (l Ledger[S]) At(i int) (Entry[S], bool) {
	if i < 0 || i >= len(l.entries) {
		return Entry[S]{}, false
	}
	return l.entries[i], true
}

// Last returns the most recent entry.
func (l Ledger[S]) Last() (Entry[S], bool) {
	return l.At(len(l.entries) - 1)
}

// Lookup returns the snapshot stored for v. Both the step and the name must
// match.
func (l Ledger[S]) Lookup(v Version) (Snapshot[S], bool) {
	e, ok := l.At(v.Step)
	if !ok || e.Version != v {
		return Snapshot[S]{}, false
	}
	return e.Snapshot, true
}

// Contains reports whether any entry carries name.
func (l Ledger[S]) Contains(name string) bool {
	return slices.ContainsFunc(l.entries, func(e Entry[S]) bool {
		return e.Version.Name == name
	})
}

// Clone returns a deep copy; retained states are cloned.
func (l Ledger[S]) Clone() Ledger[S] {
	entries := make([]Entry[S], len(l.entries))
	for i, e := range l.entries {
		entries[i] = Entry[S]{Version: e.Version, Snapshot: e.Snapshot.clone()}
	}
	return Ledger[S]{entries: entries}
}

func (l *Ledger[S]) reserve(name string) Version {
	v := Version{Step: len(l.entries), Name: name}
	l.entries = append(l.entries, Entry[S]{Version: v})
	return v
}

func (l *Ledger[S]) store(v Version, snap Snapshot[S]) {
	l.entries[v.Step].Snapshot = snap
}

func (l *Ledger[S]) truncateAfter(step int) {
	l.entries = slices.Clip(l.entries[:step+1])
}

type entryJSON struct {
	Step  int    `json:"step"`
	Name  string `json:"name"`
	State any    `json:"state,omitempty"`
	Token string `json:"token,omitempty"`
}

// MarshalJSON encodes the history as an array of entries. Retained states are
// embedded; absent snapshots carry only step and name.
func (l Ledger[S]) MarshalJSON() ([]byte, error) {
	out := make([]entryJSON, len(l.entries))
	for i, e := range l.entries {
		out[i] = entryJSON{Step: e.Version.Step, Name: e.Version.Name, Token: e.Snapshot.token}
		if e.Snapshot.hasState {
			out[i].State = e.Snapshot.state
		}
	}
	return json.Marshal(out)
}
