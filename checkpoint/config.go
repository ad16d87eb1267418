package checkpoint

import (
	"fmt"
	"log/slog"
)

// Store names accepted by Config.Store.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Config selects where checkpoints are kept.
type Config struct {
	// Store is one of none, memory, file, badger or sqlite. With none the
	// model keeps checkpoints in its history.
	Store string `json:"store,omitempty" yaml:"store" env:"STORE"`

	// Path is the directory (file, badger) or database file (sqlite).
	Path string `json:"path,omitempty" yaml:"path" env:"PATH"`

	// Codec is json or proto.
	Codec string `json:"codec,omitempty" yaml:"codec" env:"CODEC"`
}

// DefaultConfig returns the default checkpoint configuration (in history,
// JSON codec).
func DefaultConfig() Config {
	return Config{
		Store: StoreNone,
		Codec: "json",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Store != "" {
		c.Store = source.Store
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Codec != "" {
		c.Codec = source.Codec
	}
}

// Open creates the Store cfg names. It returns a nil Store for none,
// meaning checkpoints stay in the history. logger receives backend logs and
// may be nil.
func Open(cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.Store {
	case "", StoreNone:
		return nil, nil
	case StoreMemory:
		return NewMemoryStore(), nil
	case StoreFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file checkpoint store requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case StoreBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger checkpoint store requires a path")
		}
		store, err := OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreSQLite:
		store, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, cfg.Store)
	}
}
