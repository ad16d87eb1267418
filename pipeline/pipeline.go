// Package pipeline assembles a model over state.State from configuration:
// observers, worker pool, and checkpoint store are created from their config
// sections and wired into the model's hooks.
//
//	cfg, err := pipeline.LoadConfig("bulldog.yaml")
//	p, err := pipeline.New(cfg, initial)
//	defer p.Close()
//	p.Model().RegisterDataModifier("scale", scale)
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/bulldog/checkpoint"
	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/observability"
	"github.com/tailored-agentic-units/bulldog/state"
)

// Option configures a Pipeline before its model is built. Overrides replace
// what the config would create.
type Option func(*Pipeline)

// WithStore overrides the config-created checkpoint store. The caller keeps
// ownership: Close leaves it open.
func WithStore(s checkpoint.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the logger handed to storage backends and to the "slog"
// observer.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRegisterer sets the registry the "prometheus" observer counts on.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(p *Pipeline) { p.registerer = r }
}

// Pipeline owns a model and the checkpoint store behind it.
type Pipeline struct {
	model      *model.Model[state.State]
	store      checkpoint.Store
	ownsStore  bool
	observer   observability.Observer
	logger     *slog.Logger
	registerer prometheus.Registerer
	runID      string
}

// New creates a Pipeline holding a model over initial.
func New(cfg *Config, initial state.State, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{runID: cfg.RunID}
	for _, opt := range opts {
		opt(p)
	}

	if p.runID == "" {
		p.runID = uuid.Must(uuid.NewV7()).String()
	}

	if p.store == nil {
		store, err := checkpoint.Open(&cfg.Checkpoint, p.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
		}
		p.store = store
		p.ownsStore = store != nil
	}

	modelOpts := []model.Option[state.State]{
		model.WithRunID[state.State](p.runID),
		model.WithObserverDeps[state.State](observability.Deps{Logger: p.logger, Registerer: p.registerer}),
	}
	if p.observer != nil {
		modelOpts = append(modelOpts, model.WithObserver[state.State](p.observer))
	}

	if p.store != nil {
		codec, err := checkpoint.StateCodec(cfg.Checkpoint.Codec)
		if err != nil {
			p.Close()
			return nil, err
		}
		save, restore := checkpoint.Hooks(p.store, codec, p.runID)
		modelOpts = append(modelOpts,
			model.WithSaveHook(save),
			model.WithRestoreHook(restore),
		)
	}

	m, err := model.NewFromConfig(initial, &cfg.Model, modelOpts...)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	p.model = m

	return p, nil
}

// Model returns the pipeline's model.
func (p *Pipeline) Model() *model.Model[state.State] {
	return p.model
}

// Store returns the checkpoint store, or nil when checkpoints stay in the
// model's history.
func (p *Pipeline) Store() checkpoint.Store {
	return p.store
}

// RunID returns the run identifier checkpoints are written under.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Close releases the checkpoint store opened from the config. A store passed
// through WithStore is left open.
func (p *Pipeline) Close() error {
	if p.store == nil || !p.ownsStore {
		return nil
	}
	return p.store.Close()
}
