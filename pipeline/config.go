package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/bulldog/checkpoint"
	"github.com/tailored-agentic-units/bulldog/model"
)

// EnvPrefix prefixes every environment override, e.g.
// BULLDOG_MODEL_MAX_WORKERS or BULLDOG_CHECKPOINT_STORE.
const EnvPrefix = "BULLDOG_"

// Config holds initialization parameters for a pipeline. Each section
// delegates to its package's config.
type Config struct {
	Model      model.Config      `json:"model" yaml:"model" envPrefix:"MODEL_"`
	Checkpoint checkpoint.Config `json:"checkpoint" yaml:"checkpoint" envPrefix:"CHECKPOINT_"`

	// RunID names the run. Empty generates one; setting it resumes writing
	// under an earlier run's checkpoint keys.
	RunID string `json:"run_id,omitempty" yaml:"run_id" env:"RUN_ID"`
}

// DefaultConfig returns a Config with defaults for every section.
func DefaultConfig() Config {
	return Config{
		Model:      model.DefaultConfig(),
		Checkpoint: checkpoint.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Model.Merge(&source.Model)
	c.Checkpoint.Merge(&source.Checkpoint)

	if source.RunID != "" {
		c.RunID = source.RunID
	}
}

// LoadConfig builds a Config from defaults, then the file at filename (JSON
// or YAML by extension; empty skips the file), then BULLDOG_* environment
// variables.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		loaded, err := readConfigFile(filename)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &cfg, nil
}

func readConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	case ".json", "":
		err = json.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &loaded, nil
}
