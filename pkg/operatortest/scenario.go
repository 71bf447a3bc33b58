// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package operatortest runs operators against throwaway workspaces and checks
// what they leave behind.
//
// Example usage:
//
//	scenario := operatortest.NewScenario("greeting").
//	    WithConfig(map[string]any{"path": "out.txt", "message": "hi"}).
//	    ExpectNoError().
//	    ExpectFile("out.txt", operatortest.Equals("hi"))
//
//	result := scenario.Run(t, example.NewFactory(engine))
//	result.Assert(t, scenario)
package operatortest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/workspace"
)

// Scenario describes one operator invocation and what it should produce.
type Scenario struct {
	name         string
	config       map[string]any
	files        map[string]string
	timeout      time.Duration
	expectations []Expectation
}

// Expectation is a condition verified after a scenario ran.
type Expectation interface {
	Check(result *ScenarioResult) error
	Description() string
}

// ScenarioResult holds the outcome of running a scenario.
type ScenarioResult struct {
	Result    *operator.TaskResult
	Error     error
	Workspace *workspace.Workspace
	Duration  time.Duration
}

// NewScenario creates a scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:    name,
		timeout: 10 * time.Second,
		files:   make(map[string]string),
	}
}

// Name returns the scenario name.
func (s *Scenario) Name() string {
	return s.name
}

// WithConfig sets the task configuration handed to the operator.
func (s *Scenario) WithConfig(cfg map[string]any) *Scenario {
	s.config = cfg
	return s
}

// WithFile seeds the workspace with a file before the operator runs.
func (s *Scenario) WithFile(rel, content string) *Scenario {
	s.files[rel] = content
	return s
}

// WithTimeout bounds the operator run.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// Expect adds an expectation.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectNoError expects the operator to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectErrorCode expects the operator to fail with the given code.
func (s *Scenario) ExpectErrorCode(code operrors.ErrorCode) *Scenario {
	return s.Expect(&errorCodeExpectation{code: code})
}

// ExpectFile expects a workspace file whose content matches.
func (s *Scenario) ExpectFile(rel string, matcher StringMatcher) *Scenario {
	return s.Expect(&fileExpectation{rel: rel, matcher: matcher})
}

// ExpectNoFile expects rel to be absent from the workspace.
func (s *Scenario) ExpectNoFile(rel string) *Scenario {
	return s.Expect(&noFileExpectation{rel: rel})
}

// Run builds a fresh workspace, seeds it and runs one operator from factory.
func (s *Scenario) Run(t *testing.T, factory operator.Factory) *ScenarioResult {
	t.Helper()

	root := t.TempDir()
	for rel, content := range s.files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}
	ws, err := workspace.New(root)
	if err != nil {
		t.Fatalf("scenario %q workspace: %v", s.name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req := operator.NewTaskRequest("+"+s.name, params.FromMap(s.config))
	op := factory.NewOperator(operator.Context{
		Request:   req,
		Workspace: ws,
		Logger:    slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	start := time.Now()
	res, err := op.Run(ctx)
	return &ScenarioResult{
		Result:    res,
		Error:     err,
		Workspace: ws,
		Duration:  time.Since(start),
	}
}

// Assert checks every expectation and reports failures to t.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()

	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("expectation %q failed: %v", exp.Description(), err)
		}
	}
}

// testWriter routes operator logs to the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// StringMatcher matches file contents.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains matches strings containing substr.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals matches exactly.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex matches against a regular expression.
func Regex(pattern string) StringMatcher {
	return &regexMatcher{pattern: pattern}
}

type containsMatcher struct {
	substr string
}

func (m *containsMatcher) Match(s string) bool {
	return strings.Contains(s, m.substr)
}

func (m *containsMatcher) Description() string {
	return fmt.Sprintf("contains %q", m.substr)
}

type equalsMatcher struct {
	expected string
}

func (m *equalsMatcher) Match(s string) bool {
	return s == m.expected
}

func (m *equalsMatcher) Description() string {
	return fmt.Sprintf("equals %q", m.expected)
}

type regexMatcher struct {
	pattern string
}

func (m *regexMatcher) Match(s string) bool {
	re, err := regexp.Compile(m.pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (m *regexMatcher) Description() string {
	return fmt.Sprintf("matches regex %q", m.pattern)
}

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *ScenarioResult) error {
	if r.Error != nil {
		return fmt.Errorf("expected no error, got: %v", r.Error)
	}
	if r.Result == nil {
		return errors.New("expected a result, got nil")
	}
	return nil
}

func (e *noErrorExpectation) Description() string {
	return "no error"
}

type errorCodeExpectation struct {
	code operrors.ErrorCode
}

func (e *errorCodeExpectation) Check(r *ScenarioResult) error {
	if r.Error == nil {
		return fmt.Errorf("expected %s, got nil", e.code)
	}
	if got := operrors.CodeOf(r.Error); got != e.code {
		return fmt.Errorf("expected %s, got %s (%v)", e.code, got, r.Error)
	}
	return nil
}

func (e *errorCodeExpectation) Description() string {
	return fmt.Sprintf("error code %s", e.code)
}

type fileExpectation struct {
	rel     string
	matcher StringMatcher
}

func (e *fileExpectation) Check(r *ScenarioResult) error {
	data, err := r.Workspace.ReadFile(e.rel)
	if err != nil {
		return err
	}
	if !e.matcher.Match(string(data)) {
		return fmt.Errorf("file %s content %q does not match: %s", e.rel, data, e.matcher.Description())
	}
	return nil
}

func (e *fileExpectation) Description() string {
	return fmt.Sprintf("file %s %s", e.rel, e.matcher.Description())
}

type noFileExpectation struct {
	rel string
}

func (e *noFileExpectation) Check(r *ScenarioResult) error {
	path := filepath.Join(r.Workspace.Root(), filepath.FromSlash(e.rel))
	if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("expected %s to be absent, stat returned %v", e.rel, err)
	}
	return nil
}

func (e *noFileExpectation) Description() string {
	return fmt.Sprintf("no file %s", e.rel)
}
