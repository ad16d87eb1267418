package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/bulldog/checkpoint"
	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

// ServiceName is the fully qualified RPC service name.
const ServiceName = "bulldog.v1.ModelService"

// Procedure paths.
const (
	DataProcedure     = "/" + ServiceName + "/Data"
	HistoryProcedure  = "/" + ServiceName + "/History"
	CommitProcedure   = "/" + ServiceName + "/Commit"
	DispatchProcedure = "/" + ServiceName + "/Dispatch"
	RollbackProcedure = "/" + ServiceName + "/Rollback"
)

type (
	request  = connect.Request[structpb.Struct]
	response = connect.Response[structpb.Struct]
)

// Server serves one model.
type Server struct {
	mu    sync.Mutex
	model *model.Model[state.State]
}

// New creates a Server for m. The caller must not use m directly while the
// server is running.
func New(m *model.Model[state.State]) *Server {
	return &Server{model: m}
}

// Handler returns the service path prefix and its handler, ready for
// http.ServeMux.Handle.
func (s *Server) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(DataProcedure, connect.NewUnaryHandler(DataProcedure, s.data, opts...))
	mux.Handle(HistoryProcedure, connect.NewUnaryHandler(HistoryProcedure, s.history, opts...))
	mux.Handle(CommitProcedure, connect.NewUnaryHandler(CommitProcedure, s.commit, opts...))
	mux.Handle(DispatchProcedure, connect.NewUnaryHandler(DispatchProcedure, s.dispatch, opts...))
	mux.Handle(RollbackProcedure, connect.NewUnaryHandler(RollbackProcedure, s.rollback, opts...))
	return "/" + ServiceName + "/", mux
}

func (s *Server) data(_ context.Context, _ *request) (*response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dataResponse(s.model.Current())
}

func (s *Server) history(_ context.Context, _ *request) (*response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.model.History()
	entries := make([]any, 0, h.Len())
	for _, e := range h.Entries() {
		entries = append(entries, map[string]any{
			"step":         e.Version.Step,
			"name":         e.Version.Name,
			"checkpointed": e.Snapshot.Present(),
		})
	}

	msg, err := structpb.NewStruct(map[string]any{
		"run_id":  s.model.RunID(),
		"entries": entries,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func (s *Server) commit(ctx context.Context, req *request) (*response, error) {
	name, args, err := stepRequest(req.Msg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.model.Commit(ctx, name, args...)
	if err != nil {
		return nil, toConnectError(err)
	}
	return dataResponse(next)
}

func (s *Server) dispatch(ctx context.Context, req *request) (*response, error) {
	name, args, err := stepRequest(req.Msg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	output, err := s.model.Dispatch(ctx, name, args...)
	if err != nil {
		return nil, toConnectError(err)
	}

	value, err := outputValue(output)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{
		Fields: map[string]*structpb.Value{"output": value},
	}), nil
}

func (s *Server) rollback(ctx context.Context, req *request) (*response, error) {
	fields := req.Msg.GetFields()

	var (
		n       int
		version model.Version
		byCount bool
		err     error
	)
	if raw, ok := fields["n"]; ok {
		byCount = true
		if n, err = intField("n", raw); err != nil {
			return nil, err
		}
	} else {
		step, hasStep := fields["step"]
		name, hasName := fields["name"]
		if !hasStep || !hasName {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				errors.New(`rollback needs "n" or both "step" and "name"`))
		}
		if version.Step, err = intField("step", step); err != nil {
			return nil, err
		}
		if version.Name, err = stringField("name", name); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if byCount {
		err = s.model.Rollback(ctx, n)
	} else {
		err = s.model.Revert(ctx, version)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return dataResponse(s.model.Current())
}

// intField reads a whole number. Any other kind, a fraction, or a value
// outside the int range fails with CodeInvalidArgument.
func intField(key string, v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%q must be a number, got %s", key, kindName(v)))
	}
	f := num.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%q must be a whole number, got %v", key, f))
	}
	return int(f), nil
}

func stringField(key string, v *structpb.Value) (string, error) {
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%q must be a string, got %s", key, kindName(v)))
	}
	return str.StringValue, nil
}

func kindName(v *structpb.Value) string {
	switch v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "null"
	case *structpb.Value_NumberValue:
		return "number"
	case *structpb.Value_StringValue:
		return "string"
	case *structpb.Value_BoolValue:
		return "bool"
	case *structpb.Value_StructValue:
		return "object"
	case *structpb.Value_ListValue:
		return "list"
	default:
		return "nothing"
	}
}

func stepRequest(msg *structpb.Struct) (string, []any, error) {
	fields := msg.GetFields()

	raw, ok := fields["name"]
	if !ok {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, errors.New(`"name" is required`))
	}
	name, err := stringField("name", raw)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, errors.New(`"name" is required`))
	}

	var args []any
	if rawArgs, ok := fields["args"]; ok {
		list, isList := rawArgs.GetKind().(*structpb.Value_ListValue)
		if !isList {
			return "", nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf(`"args" must be a list, got %s`, kindName(rawArgs)))
		}
		args = list.ListValue.AsSlice()
	}
	return name, args, nil
}

func dataResponse(data state.State) (*response, error) {
	st, err := checkpoint.StructFromState(data)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{
		Fields: map[string]*structpb.Value{"data": structpb.NewStructValue(st)},
	}), nil
}

// outputValue converts a business logic result for the wire. States travel
// as their data; other values must be Struct-compatible.
func outputValue(output any) (*structpb.Value, error) {
	if data, ok := output.(state.State); ok {
		st, err := checkpoint.StructFromState(data)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(st), nil
	}

	value, err := structpb.NewValue(output)
	if err != nil {
		return nil, fmt.Errorf("dispatch output of type %T: %w", output, err)
	}
	return value, nil
}

func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, model.ErrDataModifierNotFound), errors.Is(err, model.ErrBusinessLogicNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, model.ErrBusinessLogicAlreadyExecuted):
		code = connect.CodeAlreadyExists
	case errors.Is(err, model.ErrNoCheckpointAvailable):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, model.ErrRollbackOutOfRange):
		code = connect.CodeOutOfRange
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
