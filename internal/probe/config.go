package probe

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultInstancesPerType = 5
	DefaultConcurrency      = 4
)

// Config configures a probe run.
type Config struct {
	// RunID names the run in the ledger. Required.
	RunID string `yaml:"run_id"`

	// InstancesPerType is how many instances batched workloads create and
	// touch per type.
	InstancesPerType int `yaml:"instances_per_type,omitempty"`

	// Concurrency bounds how many types are probed at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// EntityTypes and RelationshipTypes may name abstract types; the probe
	// exercises the most specific subtype the repository supports.
	EntityTypes       []string `yaml:"entity_types"`
	RelationshipTypes []string `yaml:"relationship_types,omitempty"`

	// Classification is attached by the classify workload. Empty skips it.
	Classification string `yaml:"classification,omitempty"`

	// Workloads to run, in order. Empty means all of them.
	Workloads []string `yaml:"workloads,omitempty"`

	// TUT identifies the repository under test.
	TUT TUTConfig `yaml:"tut"`
}

// TUTConfig is the identity the repository under test runs with.
type TUTConfig struct {
	CollectionID   string `yaml:"collection_id"`
	CollectionName string `yaml:"collection_name,omitempty"`
	ServerName     string `yaml:"server_name,omitempty"`
	Organization   string `yaml:"organization,omitempty"`
}

// LoadConfig reads and validates a probe configuration file.
// Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("probe config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a probe configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if len(c.EntityTypes) == 0 && len(c.RelationshipTypes) == 0 {
		return fmt.Errorf("at least one entity or relationship type is required")
	}
	if c.InstancesPerType < 0 {
		return fmt.Errorf("instances_per_type must not be negative")
	}
	if c.InstancesPerType == 0 {
		c.InstancesPerType = DefaultInstancesPerType
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.TUT.CollectionID == "" {
		return fmt.Errorf("tut.collection_id is required")
	}
	if _, err := c.ParsedWorkloads(); err != nil {
		return err
	}
	return nil
}

// ParsedWorkloads returns the configured workloads, or every workload when
// none are listed.
func (c *Config) ParsedWorkloads() ([]Workload, error) {
	if len(c.Workloads) == 0 {
		return append(append([]Workload(nil), EntityWorkloads...), WorkloadRelationshipCreate), nil
	}
	out := make([]Workload, 0, len(c.Workloads))
	for i, name := range c.Workloads {
		w, err := ParseWorkload(name)
		if err != nil {
			return nil, fmt.Errorf("workloads[%d]: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}
