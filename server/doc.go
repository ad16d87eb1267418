// Package server exposes a model over connect RPC.
//
// ModelService has five unary procedures, each taking and returning a
// google.protobuf.Struct:
//
//	Data      {}                          -> {"data": {...}}
//	History   {}                          -> {"run_id": "...", "entries": [{"step", "name", "checkpointed"}]}
//	Commit    {"name": "...", "args": []} -> {"data": {...}}
//	Dispatch  {"name": "...", "args": []} -> {"output": ...}
//	Rollback  {"n": 1} or {"step": 1, "name": "..."} -> {"data": {...}}
//
// Calls are serialized; a Model is never entered by two requests at once.
// Model errors map to connect codes: unknown names are NotFound, repeated
// business logic is AlreadyExists, missing checkpoints are
// FailedPrecondition, and rollbacks past the history are OutOfRange.
package server
