// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package params holds the configuration a host hands to an operator for one
// task invocation. Values form a tree of nested scopes; a scope can be merged
// on top of another so operator specific keys override task level defaults.
package params

import (
	"fmt"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

const delim = "."

// Config is an immutable-by-convention tree of task parameters.
type Config struct {
	k *koanf.Koanf
}

// New returns an empty configuration.
func New() *Config {
	return &Config{k: koanf.New(delim)}
}

// FromMap builds a configuration from a nested map. The map is copied.
func FromMap(values map[string]any) *Config {
	c := New()
	if len(values) == 0 {
		return c
	}
	// mapProvider never fails and the merge is not strict.
	_ = c.k.Load(mapProvider(values), nil)
	return c
}

// Load reads a YAML task definition into a configuration.
func Load(path string) (*Config, error) {
	c := New()
	if err := c.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, operrors.Configuration(fmt.Sprintf("load task definition %s", path), err).
			WithContext("path", path)
	}
	return c, nil
}

// Has reports whether key is set.
func (c *Config) Has(key string) bool {
	return c.k.Exists(key)
}

// Get returns the raw value stored under key, or nil.
func (c *Config) Get(key string) any {
	return c.k.Get(key)
}

// Set stores value under key. Nested maps are merged into existing scopes.
func (c *Config) Set(key string, value any) error {
	return c.k.Set(key, value)
}

// GetString returns the string stored under key.
func (c *Config) GetString(key string) (string, error) {
	if !c.k.Exists(key) {
		return "", operrors.Configurationf("parameter %q is required", key).WithContext("key", key)
	}
	s, ok := c.k.Get(key).(string)
	if !ok {
		return "", operrors.Configurationf("parameter %q must be a string, got %T", key, c.k.Get(key)).
			WithContext("key", key)
	}
	return s, nil
}

// GetStringOrDefault returns the string under key or def when the key is absent.
func (c *Config) GetStringOrDefault(key, def string) (string, error) {
	if !c.k.Exists(key) {
		return def, nil
	}
	return c.GetString(key)
}

// NestedOrEmpty returns a copy of the scope stored under key. A missing or
// null key yields an empty scope; a key holding any other non-mapping value
// is an error.
func (c *Config) NestedOrEmpty(key string) (*Config, error) {
	if !c.k.Exists(key) || c.k.Get(key) == nil {
		return New(), nil
	}
	if _, ok := c.k.Get(key).(map[string]interface{}); !ok {
		return nil, operrors.Configurationf("parameter %q must be a mapping, got %T", key, c.k.Get(key)).
			WithContext("key", key)
	}
	return &Config{k: c.k.Cut(key)}, nil
}

// MergeDefault returns a new configuration holding the receiver's values as
// defaults with over's values taking precedence. Nested scopes are merged
// recursively. Neither input is modified.
func (c *Config) MergeDefault(over *Config) *Config {
	out := c.Copy()
	if over != nil {
		// Merge only fails in strict mode, which is never enabled here.
		_ = out.k.Merge(over.k)
	}
	return out
}

// Copy returns a deep copy.
func (c *Config) Copy() *Config {
	return &Config{k: c.k.Copy()}
}

// Raw returns a deep copy of the tree as nested maps.
func (c *Config) Raw() map[string]any {
	return c.k.Raw()
}

// Keys returns the flattened, sorted key paths.
func (c *Config) Keys() []string {
	return c.k.Keys()
}

type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("params: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	return maps.Copy(map[string]interface{}(m)), nil
}
