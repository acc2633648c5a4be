// Package config loads codec settings from YAML.
//
// Example:
//
//	quotas:
//	  max_buffer_size: 65536
//	  max_depth: 32
//	default_dialect: "1.0"
//	protocol_log: /var/log/epr/events.elog
//	route_cache_size: 1024
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/epr-protocol/epr-go/pkg/addressing"
	"github.com/epr-protocol/epr-go/pkg/routing"
	"github.com/epr-protocol/epr-go/pkg/xmlbuf"
)

// ErrInvalid is returned by Validate for an unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// Quotas bounds buffered section growth. Omitted keys keep the defaults; an
// explicit zero is unlimited.
type Quotas struct {
	MaxBufferSize int `yaml:"max_buffer_size"`
	MaxDepth      int `yaml:"max_depth"`
}

// Config holds codec and tooling settings.
type Config struct {
	Quotas Quotas `yaml:"quotas"`

	// DefaultDialect is used when a command names no dialect.
	DefaultDialect string `yaml:"default_dialect"`

	// ProtocolLog is the path of a CBOR event log. Empty disables it.
	ProtocolLog string `yaml:"protocol_log"`

	// RouteCacheSize bounds the number of routing table buckets.
	RouteCacheSize int `yaml:"route_cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	q := xmlbuf.DefaultQuotas()
	return &Config{
		Quotas:         Quotas{MaxBufferSize: q.MaxBufferSize, MaxDepth: q.MaxDepth},
		DefaultDialect: addressing.WSAddressing10.String(),
		RouteCacheSize: routing.DefaultSize,
	}
}

// Parse parses YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var err error
	if c.Quotas.MaxBufferSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: quotas.max_buffer_size %d is negative", ErrInvalid, c.Quotas.MaxBufferSize))
	}
	if c.Quotas.MaxDepth < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: quotas.max_depth %d is negative", ErrInvalid, c.Quotas.MaxDepth))
	}
	if _, derr := addressing.ParseVersion(c.DefaultDialect); derr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: default_dialect: %w", ErrInvalid, derr))
	}
	if c.RouteCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: route_cache_size %d is negative", ErrInvalid, c.RouteCacheSize))
	}
	return err
}

// XMLQuotas returns the quotas in the form the codec takes.
func (c *Config) XMLQuotas() xmlbuf.Quotas {
	return xmlbuf.Quotas{MaxBufferSize: c.Quotas.MaxBufferSize, MaxDepth: c.Quotas.MaxDepth}
}

// Dialect resolves DefaultDialect.
func (c *Config) Dialect() (*addressing.Version, error) {
	return addressing.ParseVersion(c.DefaultDialect)
}
