// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package workload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antimetal/containers/pkg/errors"
)

// Kind selects the container a scenario exercises
type Kind string

const (
	KindArray Kind = "array"
	KindRing  Kind = "ring"
)

// Scenario describes one workload run against a freshly built container.
type Scenario struct {
	Name       string `yaml:"name"`
	Kind       Kind   `yaml:"kind"`
	Capacity   int    `yaml:"capacity"`
	Operations int    `yaml:"operations"`
	// DrainEvery drains a ring buffer after this many writes. Zero drains
	// only once, at the end of the run.
	DrainEvery int `yaml:"drainEvery"`
}

// Config is the workload file format.
type Config struct {
	Scenarios []Scenario `yaml:"scenarios"`
	// BatchSize is the number of operations between cancellation checks
	BatchSize int `yaml:"batchSize"`
}

func DefaultConfig() Config {
	return Config{
		Scenarios: []Scenario{
			{Name: "array-small", Kind: KindArray, Capacity: 64, Operations: 100_000},
			{Name: "array-large", Kind: KindArray, Capacity: 65_536, Operations: 1_000_000},
			{Name: "ring-drain-often", Kind: KindRing, Capacity: 128, Operations: 1_000_000, DrainEvery: 64},
			{Name: "ring-overwrite", Kind: KindRing, Capacity: 1024, Operations: 1_000_000},
		},
		BatchSize: 4096,
	}
}

// ApplyDefaults fills in zero values with defaults
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if len(c.Scenarios) == 0 {
		c.Scenarios = defaults.Scenarios
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	for i := range c.Scenarios {
		if c.Scenarios[i].Name == "" {
			c.Scenarios[i].Name = fmt.Sprintf("%s-%d", c.Scenarios[i].Kind, i)
		}
	}
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("scenario %q: duplicate name", s.Name))
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindArray:
			if s.Capacity < 1 {
				errs = append(errs, fmt.Errorf("scenario %q: capacity must be at least 1, got %d", s.Name, s.Capacity))
			}
		case KindRing:
			if s.Capacity < 2 {
				errs = append(errs, fmt.Errorf("scenario %q: ring capacity must be at least 2, got %d", s.Name, s.Capacity))
			}
		default:
			errs = append(errs, fmt.Errorf("scenario %q: unknown kind %q", s.Name, s.Kind))
		}
		if s.Operations < 0 {
			errs = append(errs, fmt.Errorf("scenario %q: operations must not be negative", s.Name))
		}
		if s.DrainEvery < 0 {
			errs = append(errs, fmt.Errorf("scenario %q: drainEvery must not be negative", s.Name))
		}
	}
	return errors.Join(errs...)
}

// ParseConfig decodes a YAML workload file and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse workload config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadConfig reads and parses the workload file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read workload config: %w", err)
	}
	return ParseConfig(data)
}
