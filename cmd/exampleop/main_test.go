// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/example"
	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/template/pongo"
)

const taskYAML = `
example>:
path: out.txt
message: "hi ${name}"
example:
  name: world
`

func writeTask(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "greet.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write task: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunTaskAndHistory(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	task := writeTask(t, dir, taskYAML)
	journalFlag := "journal.path=" + filepath.Join(dir, "journal.db")

	out, stderr, err := runCLI(t, "--set", journalFlag, "run", "-workspace", ws, task)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "+greet example succeeded") {
		t.Fatalf("unexpected output %q", out)
	}
	got, err := os.ReadFile(filepath.Join(ws, "out.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "hi world" {
		t.Fatalf("unexpected file content %q", got)
	}

	out, _, err = runCLI(t, "--set", journalFlag, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "+greet") || !strings.Contains(out, "succeeded") {
		t.Fatalf("unexpected history %q", out)
	}
}

func TestRunTaskParamsOverride(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	task := writeTask(t, dir, taskYAML)

	_, stderr, err := runCLI(t, "run", "-workspace", ws, "-param", "example.name=cli", "-param", "path=cli.txt", task)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}
	got, err := os.ReadFile(filepath.Join(ws, "cli.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "hi cli" {
		t.Fatalf("unexpected file content %q", got)
	}
}

func TestRunTaskDryRun(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	task := writeTask(t, dir, taskYAML)

	out, _, err := runCLI(t, "run", "-workspace", ws, "-dry-run", task)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	var doc struct {
		Task   string         `yaml:"task"`
		Type   string         `yaml:"type"`
		Config map[string]any `yaml:"config"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode dry run output: %v\n%s", err, out)
	}
	if doc.Type != "example" || doc.Task != "+greet" {
		t.Fatalf("unexpected dry run header %+v", doc)
	}
	if doc.Config["name"] != "world" {
		t.Fatalf("expected merged name, got %v", doc.Config["name"])
	}
	if _, err := os.Stat(filepath.Join(ws, "out.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run must not write, stat returned %v", err)
	}
}

func TestRunTaskConfigurationError(t *testing.T) {
	dir := t.TempDir()
	task := writeTask(t, dir, "example>:\nmessage: hello\n")

	_, _, err := runCLI(t, "run", "-workspace", t.TempDir(), task)
	if !operrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("expected exit code 2, got %d", exitCode(err))
	}
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.Hint == "" {
		t.Fatalf("expected hinted CLI error, got %T", err)
	}
}

func TestRunTaskUsageErrors(t *testing.T) {
	if _, _, err := runCLI(t, "run"); err == nil {
		t.Fatalf("expected error without task file")
	}
	if _, _, err := runCLI(t, "bogus"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if _, _, err := runCLI(t, "--nope", "types"); err == nil {
		t.Fatalf("expected error for unknown global flag")
	}
	if _, _, err := runCLI(t, "history"); err == nil {
		t.Fatalf("expected error when journal is disabled")
	}
}

func TestTypesHelpVersion(t *testing.T) {
	out, _, err := runCLI(t, "types")
	if err != nil || strings.TrimSpace(out) != "example" {
		t.Fatalf("unexpected types output %q (%v)", out, err)
	}
	out, _, err = runCLI(t, "help")
	if err != nil || !strings.Contains(out, "Usage:") {
		t.Fatalf("unexpected help output %q (%v)", out, err)
	}
	out, _, err = runCLI(t, "version")
	if err != nil || strings.TrimSpace(out) != version {
		t.Fatalf("unexpected version output %q (%v)", out, err)
	}
}

// plainFactory takes no command.
type plainFactory struct{}

func (plainFactory) Type() string { return "plain" }

func (plainFactory) NewOperator(operator.Context) operator.Operator { return nil }

func TestResolveOperator(t *testing.T) {
	engine, err := pongo.New()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	registry, err := operator.NewRegistry(example.NewFactory(engine), plainFactory{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	tests := []struct {
		name        string
		cfg         map[string]any
		explicit    string
		wantType    string
		wantMessage string
		wantCode    operrors.ErrorCode
	}{
		{name: "marker", cfg: map[string]any{"example>": nil, "path": "a", "message": "m"}, wantType: "example", wantMessage: "m"},
		{name: "marker with command", cfg: map[string]any{"example>": "body.txt"}, wantType: "example", wantMessage: "body.txt"},
		{name: "empty command", cfg: map[string]any{"example>": "", "message": "m"}, wantType: "example", wantMessage: "m"},
		{name: "explicit", cfg: map[string]any{"path": "a"}, explicit: "example", wantType: "example"},
		{name: "plain marker", cfg: map[string]any{"plain>": nil}, wantType: "plain"},
		{name: "command and message", cfg: map[string]any{"example>": "one", "message": "two"}, wantCode: operrors.CodeConfiguration},
		{name: "command for plain operator", cfg: map[string]any{"plain>": "x"}, wantCode: operrors.CodeConfiguration},
		{name: "command for unknown operator", cfg: map[string]any{"nope>": "x"}, wantCode: operrors.CodeNotFound},
		{name: "none", cfg: map[string]any{"path": "a"}, wantCode: operrors.CodeConfiguration},
		{name: "two markers", cfg: map[string]any{"a>": nil, "b>": nil}, wantCode: operrors.CodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, cfg, err := resolveOperator(registry, params.FromMap(tt.cfg), tt.explicit)
			if tt.wantCode != "" {
				if got := operrors.CodeOf(err); got != tt.wantCode {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if typ != tt.wantType {
				t.Fatalf("expected type %q, got %q", tt.wantType, typ)
			}
			if cfg.Has(typ + ">") {
				t.Fatalf("expected marker key to be removed")
			}
			got, _ := cfg.GetStringOrDefault("message", "")
			if got != tt.wantMessage {
				t.Fatalf("expected message %q, got %q", tt.wantMessage, got)
			}
		})
	}
}

func TestRunTaskCommandShorthand(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	task := writeTask(t, dir, "example>: \"hello ${who}\"\npath: out.txt\nwho: you\n")

	if _, stderr, err := runCLI(t, "run", "-workspace", ws, task); err != nil {
		t.Fatalf("run failed: %v\n%s", err, stderr)
	}
	got, err := os.ReadFile(filepath.Join(ws, "out.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "hello you" {
		t.Fatalf("unexpected file content %q", got)
	}

	task = writeTask(t, dir, "example>: one\nmessage: two\npath: out2.txt\n")
	if _, _, err := runCLI(t, "run", "-workspace", ws, task); !operrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, "out2.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no file, stat returned %v", err)
	}
}

func TestApplyParam(t *testing.T) {
	cfg := params.New()
	if err := applyParam(cfg, "count=3"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := cfg.Get("count"); got != 3 {
		t.Fatalf("expected int 3, got %#v", got)
	}
	if err := applyParam(cfg, "greeting=hello world"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := cfg.Get("greeting"); got != "hello world" {
		t.Fatalf("expected string, got %#v", got)
	}
	if err := applyParam(cfg, "novalue"); !operrors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
