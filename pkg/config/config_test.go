// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{Exporter: "none"},
		Workspace: WorkspaceConfig{Root: "."},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exampleop.yaml")
	content := `
log:
  level: debug
telemetry:
  exporter: otlp
  otlp_endpoint: collector:4317
journal:
  path: /var/lib/exampleop/journal.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EXAMPLEOP_LOG_FORMAT", "json")
	t.Setenv("EXAMPLEOP_TELEMETRY_OTLP_ENDPOINT", "otel:4317")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected file level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected env format json, got %s", cfg.Log.Format)
	}
	if cfg.Telemetry.OTLPEndpoint != "otel:4317" {
		t.Errorf("expected env to override endpoint, got %s", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Journal.Path != "/var/lib/exampleop/journal.db" {
		t.Errorf("unexpected journal path %s", cfg.Journal.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
