package server

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/state"
)

// Client calls a remote ModelService.
type Client struct {
	data     *connect.Client[structpb.Struct, structpb.Struct]
	history  *connect.Client[structpb.Struct, structpb.Struct]
	commit   *connect.Client[structpb.Struct, structpb.Struct]
	dispatch *connect.Client[structpb.Struct, structpb.Struct]
	rollback *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a Client for the service at baseURL, e.g.
// "http://localhost:8080".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	newClient := func(procedure string) *connect.Client[structpb.Struct, structpb.Struct] {
		return connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}
	return &Client{
		data:     newClient(DataProcedure),
		history:  newClient(HistoryProcedure),
		commit:   newClient(CommitProcedure),
		dispatch: newClient(DispatchProcedure),
		rollback: newClient(RollbackProcedure),
	}
}

// Entry is one history entry as reported by the server.
type Entry struct {
	model.Version
	Checkpointed bool
}

// Data returns the remote model's current state.
func (c *Client) Data(ctx context.Context) (state.State, error) {
	res, err := c.data.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return state.State{}, err
	}
	return stateFrom(res.Msg), nil
}

// History returns the remote run ID and history.
func (c *Client) History(ctx context.Context) (string, []Entry, error) {
	res, err := c.history.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return "", nil, err
	}

	fields := res.Msg.GetFields()
	var entries []Entry
	for _, v := range fields["entries"].GetListValue().GetValues() {
		e := v.GetStructValue().GetFields()
		entries = append(entries, Entry{
			Version: model.Version{
				Step: int(e["step"].GetNumberValue()),
				Name: e["name"].GetStringValue(),
			},
			Checkpointed: e["checkpointed"].GetBoolValue(),
		})
	}
	return fields["run_id"].GetStringValue(), entries, nil
}

// Commit commits the named data modifier remotely and returns the new state.
func (c *Client) Commit(ctx context.Context, name string, args ...any) (state.State, error) {
	msg, err := stepMessage(name, args)
	if err != nil {
		return state.State{}, err
	}
	res, err := c.commit.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return state.State{}, err
	}
	return stateFrom(res.Msg), nil
}

// Dispatch runs the named business logic remotely and returns its output
// as decoded from the wire.
func (c *Client) Dispatch(ctx context.Context, name string, args ...any) (any, error) {
	msg, err := stepMessage(name, args)
	if err != nil {
		return nil, err
	}
	res, err := c.dispatch.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return res.Msg.GetFields()["output"].AsInterface(), nil
}

// Rollback skips the n most recent remote history entries and returns the
// restored state.
func (c *Client) Rollback(ctx context.Context, n int) (state.State, error) {
	msg, err := structpb.NewStruct(map[string]any{"n": n})
	if err != nil {
		return state.State{}, err
	}
	return c.callRollback(ctx, msg)
}

// Revert restores the remote model to version.
func (c *Client) Revert(ctx context.Context, version model.Version) (state.State, error) {
	msg, err := structpb.NewStruct(map[string]any{"step": version.Step, "name": version.Name})
	if err != nil {
		return state.State{}, err
	}
	return c.callRollback(ctx, msg)
}

func (c *Client) callRollback(ctx context.Context, msg *structpb.Struct) (state.State, error) {
	res, err := c.rollback.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return state.State{}, err
	}
	return stateFrom(res.Msg), nil
}

func stepMessage(name string, args []any) (*structpb.Struct, error) {
	list, err := structpb.NewList(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name": structpb.NewStringValue(name),
		"args": structpb.NewListValue(list),
	}}, nil
}

func stateFrom(msg *structpb.Struct) state.State {
	return state.New(msg.GetFields()["data"].GetStructValue().AsMap())
}
