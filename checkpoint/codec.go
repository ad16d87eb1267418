package checkpoint

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/bulldog/state"
)

// Codec converts states to stored bytes and back.
type Codec[S any] interface {
	Encode(data S) ([]byte, error)
	Decode(raw []byte) (S, error)
}

// JSONCodec encodes any JSON-marshalable state. For state.State only the
// public data is written; secrets never reach the store.
type JSONCodec[S any] struct{}

func (JSONCodec[S]) Encode(data S) ([]byte, error) {
	return json.Marshal(data)
}

func (JSONCodec[S]) Decode(raw []byte) (S, error) {
	var data S
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode checkpoint: %w", err)
	}
	return data, nil
}

// ProtoCodec encodes state.State data as a google.protobuf.Struct. Numbers
// come back as float64, as with JSON.
type ProtoCodec struct{}

func (ProtoCodec) Encode(data state.State) ([]byte, error) {
	st, err := StructFromState(data)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return proto.Marshal(st)
}

func (ProtoCodec) Decode(raw []byte) (state.State, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		return state.State{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return state.New(st.AsMap()), nil
}

// StructFromState converts the public data of s to a protobuf Struct.
// Values Struct cannot hold directly, such as typed slices, are converted
// through their JSON form.
func StructFromState(s state.State) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(s.Data)
	if err == nil {
		return st, nil
	}

	raw, jerr := json.Marshal(s.Data)
	if jerr != nil {
		return nil, err
	}
	var normalized map[string]any
	if jerr := json.Unmarshal(raw, &normalized); jerr != nil {
		return nil, err
	}
	return structpb.NewStruct(normalized)
}

// StateCodec returns the codec registered under name: "json" (the default
// for an empty name) or "proto".
func StateCodec(name string) (Codec[state.State], error) {
	switch name {
	case "", "json":
		return JSONCodec[state.State]{}, nil
	case "proto":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
}
