// Package config holds the knobs of a training run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fumin/dynrnn/toyseq"
)

const (
	OptimizerRMSProp = "rmsprop"
	OptimizerSGD     = "sgd"
)

var ErrInvalid = errors.New("invalid config")

// Config captures the runtime knobs for a training run.
type Config struct {
	TrainSize int `yaml:"train_size"`
	TestSize  int `yaml:"test_size"`
	MaxLen    int `yaml:"max_len"`
	MinLen    int `yaml:"min_len"`
	MaxValue  int `yaml:"max_value"`

	Hidden      int   `yaml:"hidden"`
	Steps       int   `yaml:"steps"`
	BatchSize   int   `yaml:"batch_size"`
	DisplayStep int   `yaml:"display_step"`
	Seed        int64 `yaml:"seed"`

	Optimizer Optimizer `yaml:"optimizer"`

	HTTPAddr string `yaml:"http_addr"`
}

type Optimizer struct {
	Name         string  `yaml:"name"` // rmsprop or sgd
	LearningRate float64 `yaml:"learning_rate"`
	Decay        float64 `yaml:"decay"`   // rmsprop only
	Momentum     float64 `yaml:"momentum"`
	Epsilon      float64 `yaml:"epsilon"` // rmsprop only
}

// Default returns the settings of the reference dynamic RNN experiment.
func Default() Config {
	return Config{
		TrainSize:   1000,
		TestSize:    500,
		MaxLen:      20,
		MinLen:      3,
		MaxValue:    1000,
		Hidden:      64,
		Steps:       10000,
		BatchSize:   128,
		DisplayStep: 200,
		Seed:        8,
		Optimizer: Optimizer{
			Name:         OptimizerRMSProp,
			LearningRate: 0.01,
			Decay:        0.95,
			Momentum:     0.5,
			Epsilon:      1e-3,
		},
		HTTPAddr: ":8089",
	}
}

// Load reads a YAML file on top of Default. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Steps     int
	BatchSize int
	Hidden    int
	Seed      *int64 // nil leaves the seed alone
	HTTPAddr  string
}

// ApplyOverrides updates c using any non-zero override, and Seed when set.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Steps > 0 {
		c.Steps = o.Steps
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Hidden > 0 {
		c.Hidden = o.Hidden
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.HTTPAddr != "" {
		c.HTTPAddr = o.HTTPAddr
	}
}

func (c Config) TrainParams() toyseq.Params {
	return toyseq.Params{N: c.TrainSize, MaxLen: c.MaxLen, MinLen: c.MinLen, MaxValue: c.MaxValue}
}

func (c Config) TestParams() toyseq.Params {
	return toyseq.Params{N: c.TestSize, MaxLen: c.MaxLen, MinLen: c.MinLen, MaxValue: c.MaxValue}
}

// Validate verifies the config is runnable.
func (c Config) Validate() error {
	if err := c.TrainParams().Validate(); err != nil {
		return fmt.Errorf("%w: train set: %w", ErrInvalid, err)
	}
	if err := c.TestParams().Validate(); err != nil {
		return fmt.Errorf("%w: test set: %w", ErrInvalid, err)
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("%w: hidden must be > 0 (got %d)", ErrInvalid, c.Hidden)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be > 0 (got %d)", ErrInvalid, c.Steps)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be > 0 (got %d)", ErrInvalid, c.BatchSize)
	}
	if c.DisplayStep <= 0 {
		return fmt.Errorf("%w: display_step must be > 0 (got %d)", ErrInvalid, c.DisplayStep)
	}
	switch c.Optimizer.Name {
	case OptimizerRMSProp, OptimizerSGD:
	default:
		return fmt.Errorf("%w: unknown optimizer %q", ErrInvalid, c.Optimizer.Name)
	}
	if c.Optimizer.LearningRate <= 0 {
		return fmt.Errorf("%w: optimizer.learning_rate must be > 0 (got %g)", ErrInvalid, c.Optimizer.LearningRate)
	}
	return nil
}
