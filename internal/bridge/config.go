package bridge

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cohort/internal/event"
)

// Config configures a bridge session.
type Config struct {
	// Originator is the identity stamped on every emitted event.
	Originator OriginatorConfig `yaml:"originator"`

	// SoftDelete is true when the foreign source keeps deleted entities
	// restorable. Without it a DELETE is emitted as a purge.
	SoftDelete bool `yaml:"soft_delete"`

	Types           []Mapping             `yaml:"types"`
	Relationships   []RelationshipMapping `yaml:"relationships,omitempty"`
	Classifications []Mapping             `yaml:"classifications,omitempty"`
}

// OriginatorConfig mirrors event.Originator.
type OriginatorConfig struct {
	SourceName       string `yaml:"source_name"`
	HomeCollectionID string `yaml:"home_collection_id"`
	ServerName       string `yaml:"server_name,omitempty"`
	ServerType       string `yaml:"server_type,omitempty"`
	Organization     string `yaml:"organization,omitempty"`
}

// Originator returns the event originator.
func (o OriginatorConfig) Originator() event.Originator {
	return event.Originator{
		SourceName:       o.SourceName,
		HomeCollectionID: o.HomeCollectionID,
		ServerName:       o.ServerName,
		ServerType:       o.ServerType,
		Organization:     o.Organization,
	}
}

// Mapping maps a foreign type name to a canonical one.
type Mapping struct {
	Foreign   string `yaml:"foreign"`
	Canonical string `yaml:"canonical"`
}

// RelationshipMapping maps a foreign relationship name. End roles default
// to the canonical type's own role names.
type RelationshipMapping struct {
	Foreign   string `yaml:"foreign"`
	Canonical string `yaml:"canonical"`
	End1Role  string `yaml:"end1_role,omitempty"`
	End2Role  string `yaml:"end2_role,omitempty"`
}

// LoadConfig reads and validates a bridge configuration file.
// Unknown fields are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("bridge config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a bridge configuration.
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

// Validate checks required fields. Canonical names are checked against the
// type lattice by New.
func (c *Config) Validate() error {
	if c.Originator.SourceName == "" {
		return fmt.Errorf("originator.source_name is required")
	}
	if c.Originator.HomeCollectionID == "" {
		return fmt.Errorf("originator.home_collection_id is required")
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("at least one type mapping is required")
	}
	for i, m := range c.Types {
		if m.Foreign == "" || m.Canonical == "" {
			return fmt.Errorf("types[%d]: foreign and canonical are required", i)
		}
	}
	for i, m := range c.Relationships {
		if m.Foreign == "" || m.Canonical == "" {
			return fmt.Errorf("relationships[%d]: foreign and canonical are required", i)
		}
	}
	for i, m := range c.Classifications {
		if m.Foreign == "" || m.Canonical == "" {
			return fmt.Errorf("classifications[%d]: foreign and canonical are required", i)
		}
	}
	return nil
}
