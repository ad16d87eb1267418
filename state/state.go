package state

import (
	"maps"
	"slices"

	"github.com/huandu/go-clone"
)

// State is an immutable key-value record.
type State struct {
	Data    map[string]any `json:"data"`
	Secrets map[string]any `json:"-"`
}

// New creates a State holding a deep copy of data. A nil map yields an empty
// State.
func New(data map[string]any) State {
	s := State{
		Data:    make(map[string]any, len(data)),
		Secrets: make(map[string]any),
	}
	for k, v := range data {
		s.Data[k] = cloneValue(v)
	}
	return s
}

// Clone returns a deep copy. Values of any type are copied recursively,
// including typed maps, slices, arrays, pointers and struct fields, so the
// copy shares no mutable memory with s. Channels come back empty.
func (s State) Clone() State {
	out := State{
		Data:    make(map[string]any, len(s.Data)),
		Secrets: make(map[string]any, len(s.Secrets)),
	}
	for k, v := range s.Data {
		out.Data[k] = cloneValue(v)
	}
	for k, v := range s.Secrets {
		out.Secrets[k] = cloneValue(v)
	}
	return out
}

// Get returns the value stored under key.
func (s State) Get(key string) (any, bool) {
	val, exists := s.Data[key]
	return val, exists
}

// Float returns the value under key as a float64 when it holds any Go
// numeric type. JSON and protobuf round trips turn integers into float64, so
// numeric readers should prefer Float over a type assertion.
func (s State) Float(key string) (float64, bool) {
	switch v := s.Data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Set returns a copy of s with key set to value.
func (s State) Set(key string, value any) State {
	out := s.Clone()
	out.Data[key] = cloneValue(value)
	return out
}

// Delete returns a copy of s without key.
func (s State) Delete(key string) State {
	out := s.Clone()
	delete(out.Data, key)
	return out
}

// Merge returns a copy of s with every key of other written over it.
func (s State) Merge(other State) State {
	out := s.Clone()
	for k, v := range other.Data {
		out.Data[k] = cloneValue(v)
	}
	return out
}

// Keys returns the data keys in sorted order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s.Data))
}

// Len reports the number of data keys.
func (s State) Len() int {
	return len(s.Data)
}

// GetSecret returns the secret stored under key.
func (s State) GetSecret(key string) (any, bool) {
	val, exists := s.Secrets[key]
	return val, exists
}

// SetSecret returns a copy of s with the secret key set to value.
func (s State) SetSecret(key string, value any) State {
	out := s.Clone()
	out.Secrets[key] = cloneValue(value)
	return out
}

// DeleteSecret returns a copy of s without the secret key.
func (s State) DeleteSecret(key string) State {
	out := s.Clone()
	delete(out.Secrets, key)
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	case State:
		return val.Clone()
	default:
		return clone.Slowly(v)
	}
}
