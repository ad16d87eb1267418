package checkpoint

import "context"

// Entry is one stored checkpoint. Keys are /-separated paths and values are
// encoded states.
type Entry struct {
	Key   string
	Value []byte
}

// Store reads and writes encoded checkpoints. Implementations do not cache.
type Store interface {
	// List returns every key in the store, sorted.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for keys, failing with ErrKeyNotFound if any
	// key is missing.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or overwrites entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Close releases the backend.
	Close() error
}
