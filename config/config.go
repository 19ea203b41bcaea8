// Package config provides configuration loading for the trainer.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/salvo/board"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all trainer configuration.
type Config struct {
	Rules    RulesConfig    `yaml:"rules"`
	Training TrainingConfig `yaml:"training"`
	Network  NetworkConfig  `yaml:"network"`
	Output   OutputConfig   `yaml:"output"`
}

// RulesConfig describes the board. It is read once at startup; the network
// topology depends on it.
type RulesConfig struct {
	Width  int              `yaml:"width"`
	Height int              `yaml:"height"`
	Ships  []board.ShipSpec `yaml:"ships"`
}

// TrainingConfig holds the genetic algorithm parameters. These are re-read
// at the top of every generation.
type TrainingConfig struct {
	TargetPoolSize  int     `yaml:"target_pool_size"`
	NetworkAttempts int     `yaml:"network_attempts"` // games averaged per fitness sample
	MutationEpsilon float64 `yaml:"mutation_epsilon"` // max absolute perturbation
	MutationRate    float64 `yaml:"mutation_rate"`    // per-weight probability
	SurvivalRate    float64 `yaml:"survival_rate"`    // fraction kept, in (0, 1]
}

// NetworkConfig holds the topology of freshly seeded networks.
type NetworkConfig struct {
	HiddenFractions []float64 `yaml:"hidden_fractions"` // hidden layer sizes as lerp between input and output
}

// OutputConfig holds file locations.
type OutputConfig struct {
	PopulationPath string `yaml:"population_path"`
	LogCSVPath     string `yaml:"log_csv_path"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. It does not prove the ships fit on the board.
func (c *Config) Validate() error {
	if err := c.RuleSet().Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Training.Validate(); err != nil {
		return err
	}
	for i, f := range c.Network.HiddenFractions {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: hidden_fractions[%d] = %v not in [0, 1]", ErrInvalid, i, f)
		}
	}
	if len(c.Network.HiddenFractions) == 0 {
		return fmt.Errorf("%w: at least one hidden layer required", ErrInvalid)
	}
	if c.Output.PopulationPath == "" {
		return fmt.Errorf("%w: output.population_path is empty", ErrInvalid)
	}
	return nil
}

// Validate checks the training parameters.
func (t TrainingConfig) Validate() error {
	switch {
	case t.TargetPoolSize <= 0:
		return fmt.Errorf("%w: target_pool_size = %d", ErrInvalid, t.TargetPoolSize)
	case t.NetworkAttempts <= 0:
		return fmt.Errorf("%w: network_attempts = %d", ErrInvalid, t.NetworkAttempts)
	case t.MutationEpsilon < 0:
		return fmt.Errorf("%w: mutation_epsilon = %v", ErrInvalid, t.MutationEpsilon)
	case t.MutationRate < 0 || t.MutationRate > 1:
		return fmt.Errorf("%w: mutation_rate = %v not in [0, 1]", ErrInvalid, t.MutationRate)
	case t.SurvivalRate <= 0 || t.SurvivalRate > 1:
		return fmt.Errorf("%w: survival_rate = %v not in (0, 1]", ErrInvalid, t.SurvivalRate)
	}
	return nil
}

// RuleSet converts the rules section.
func (c *Config) RuleSet() board.RuleSet {
	return board.RuleSet{
		Ships:  append([]board.ShipSpec(nil), c.Rules.Ships...),
		Width:  c.Rules.Width,
		Height: c.Rules.Height,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
