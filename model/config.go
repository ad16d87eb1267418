package model

// Config holds the construction parameters of a Model that can come from a
// configuration file. Hooks are code and are passed as options instead.
//
// Example JSON:
//
//	{
//	  "max_workers": 4,
//	  "unique_steps": false,
//	  "observer": "slog,prometheus"
//	}
type Config struct {
	// MaxWorkers sizes the analysis worker pool (0 = runtime.NumCPU()).
	MaxWorkers int `json:"max_workers" yaml:"max_workers" env:"MAX_WORKERS"`

	// UniqueStepsNil forbids dispatching a business logic name twice. Use
	// UniqueSteps to read it; nil means enabled.
	UniqueStepsNil *bool `json:"unique_steps" yaml:"unique_steps" env:"UNIQUE_STEPS"`

	// Observer is a comma-separated list of registered observer names, e.g.
	// "slog,prometheus,trace". See observability.Names.
	Observer string `json:"observer" yaml:"observer" env:"OBSERVER"`
}

// UniqueSteps reports whether unique business logic steps are enforced.
func (c *Config) UniqueSteps() bool {
	if c.UniqueStepsNil == nil {
		return true
	}
	return *c.UniqueStepsNil
}

// DefaultConfig returns an auto-sized pool, unique steps, and slog output.
func DefaultConfig() Config {
	unique := true
	return Config{
		MaxWorkers:     0,
		UniqueStepsNil: &unique,
		Observer:       "slog",
	}
}

// Merge applies the set fields of source onto c.
func (c *Config) Merge(source *Config) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.UniqueStepsNil != nil {
		c.UniqueStepsNil = source.UniqueStepsNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
