// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the host settings used by the exampleop command:
// defaults, then an optional YAML file, then EXAMPLEOP_* environment
// variables, then --set overrides.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. EXAMPLEOP_LOG_LEVEL.
const EnvPrefix = "EXAMPLEOP_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Journal   JournalConfig   `koanf:"journal"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Template  TemplateConfig  `koanf:"template"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter           string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint       string `koanf:"otlp_endpoint"`
	OTLPInsecure       bool   `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int    `koanf:"otlp_timeout_seconds"`
}

type JournalConfig struct {
	// Path of the SQLite run journal. Empty disables journaling.
	Path string `koanf:"path"`
}

type WorkspaceConfig struct {
	Root string `koanf:"root"`
}

type TemplateConfig struct {
	// IncludesDir is exposed to {% include %}; empty disables includes.
	IncludesDir string `koanf:"includes_dir"`
}

func defaults(k *koanf.Koanf) {
	_ = k.Set("log.level", "info")
	_ = k.Set("log.format", "text")
	_ = k.Set("telemetry.exporter", "none")
	_ = k.Set("journal.path", "")
	_ = k.Set("workspace.root", ".")
	_ = k.Set("template.includes_dir", "")
}

// Load reads settings from defaults, the YAML file at path (optional) and
// the environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithCLI is Load driven by command line arguments: --config selects the
// file and each --set key=value is applied last. Values are parsed as JSON
// when possible so --set telemetry.otlp_insecure=true yields a bool.
func LoadWithCLI(args []string) (*Config, error) {
	path, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, overrides)
}

func load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// EXAMPLEOP_TELEMETRY_OTLP_ENDPOINT -> telemetry.otlp_endpoint
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

func parseCLIOverrides(args []string) (string, map[string]any, error) {
	var path string
	overrides := make(map[string]any)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--config", "-config":
			if !hasValue {
				if i+1 >= len(args) {
					return "", nil, fmt.Errorf("config: --config requires a value")
				}
				i++
				value = args[i]
			}
			path = value
		case "--set", "-set":
			if !hasValue {
				if i+1 >= len(args) {
					return "", nil, fmt.Errorf("config: --set requires key=value")
				}
				i++
				value = args[i]
			}
			key, raw, ok := strings.Cut(value, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return "", nil, fmt.Errorf("config: invalid --set %q, want key=value", value)
			}
			overrides[key] = parseValue(raw)
		default:
			return "", nil, fmt.Errorf("config: unknown argument %q", arg)
		}
	}
	return path, overrides, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
