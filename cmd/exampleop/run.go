// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/runner"
	"github.com/jllopis/exampleop/pkg/telemetry"
)

// operatorSuffix marks the operator key in a task definition, as in
// `example>: body.txt`.
const operatorSuffix = ">"

func (a *app) runTask(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("run", flag.ContinueOnError)
	cmd.SetOutput(a.stderr)
	wsDir := cmd.String("workspace", a.cfg.Workspace.Root, "Workspace directory")
	name := cmd.String("name", "", "Task name (default: +<file name>)")
	opType := cmd.String("type", "", "Operator type (default: the key ending in '>')")
	dryRun := cmd.Bool("dry-run", false, "Print the effective configuration without running")
	var paramArgs multiFlag
	cmd.Var(&paramArgs, "param", "Set a task parameter key=value (repeatable)")
	if err := cmd.Parse(args); err != nil {
		return usageError(err)
	}
	if cmd.NArg() != 1 {
		return usageError(fmt.Errorf("run expects exactly one task definition, got %d", cmd.NArg()))
	}
	path := cmd.Arg(0)

	cfg, err := params.Load(path)
	if err != nil {
		return explain(err)
	}
	for _, p := range paramArgs {
		if err := applyParam(cfg, p); err != nil {
			return explain(err)
		}
	}
	typ, cfg, err := resolveOperator(a.registry, cfg, *opType)
	if err != nil {
		return explain(err)
	}
	if *name == "" {
		*name = "+" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	metrics, err := telemetry.NewOperatorMetrics(nil)
	if err != nil {
		return err
	}
	opts := []runner.Option{runner.WithLogger(a.logger), runner.WithMetrics(metrics)}
	if a.journal != nil {
		opts = append(opts, runner.WithRecorder(a.journal))
	}
	r := runner.New(a.registry, opts...)

	spec := runner.TaskSpec{Name: *name, Type: typ, Config: cfg, WorkspaceDir: *wsDir}
	if *dryRun {
		return a.printEffective(r, spec)
	}

	res, err := r.Run(ctx, spec)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(a.stdout, "%s %s succeeded (request %s)\n", spec.Name, spec.Type, res.RequestID)
	return nil
}

func (a *app) printEffective(r *runner.Runner, spec runner.TaskSpec) error {
	_, opctx, err := r.Prepare(spec)
	if err != nil {
		return explain(err)
	}
	nested, err := spec.Config.NestedOrEmpty(spec.Type)
	if err != nil {
		return explain(err)
	}
	out, err := yaml.Marshal(map[string]any{
		"task":      spec.Name,
		"type":      spec.Type,
		"workspace": opctx.Workspace.Root(),
		"config":    spec.Config.MergeDefault(nested).Raw(),
	})
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

// applyParam sets key=value on cfg. The value is decoded as a YAML scalar
// or flow collection, so -param count=3 stores an int.
func applyParam(cfg *params.Config, raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return operrors.Configurationf("invalid -param %q, want key=value", raw)
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil || decoded == nil {
		decoded = value
	}
	if err := cfg.Set(key, decoded); err != nil {
		return operrors.Configuration("set parameter "+key, err)
	}
	return nil
}

// resolveOperator finds the operator type. An explicit type wins; otherwise
// the single top-level key ending in ">" names it. A value on that key is the
// operator command and is stored under the factory's command key.
func resolveOperator(registry *operator.Registry, cfg *params.Config, explicit string) (string, *params.Config, error) {
	raw := cfg.Raw()
	var marker string
	for key := range raw {
		if !strings.HasSuffix(key, operatorSuffix) {
			continue
		}
		if marker != "" {
			return "", nil, operrors.Configurationf("task defines more than one operator: %q and %q", marker, key)
		}
		marker = key
	}

	typ := strings.TrimSpace(explicit)
	var command any
	if marker != "" {
		if typ == "" {
			typ = strings.TrimSuffix(marker, operatorSuffix)
		}
		command = raw[marker]
		delete(raw, marker)
	}
	if typ == "" {
		return "", nil, operrors.Configurationf("task does not name an operator; add `<type>>:` or pass -type")
	}
	if s, ok := command.(string); command == nil || (ok && s == "") {
		return typ, params.FromMap(raw), nil
	}

	factory, err := registry.Lookup(typ)
	if err != nil {
		return "", nil, err
	}
	commander, ok := factory.(operator.Commander)
	if !ok {
		return "", nil, operrors.Configurationf("operator %q does not take a command; use `%s%s:` with no value", typ, typ, operatorSuffix)
	}
	key := commander.CommandKey()
	if _, exists := raw[key]; exists {
		return "", nil, operrors.Configurationf("task sets both %q and %q; use one", marker, key).
			WithContext("key", key)
	}
	raw[key] = command
	return typ, params.FromMap(raw), nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("history", flag.ContinueOnError)
	cmd.SetOutput(a.stderr)
	limit := cmd.Int("limit", 20, "Maximum entries")
	asJSON := cmd.Bool("json", false, "JSON output")
	if err := cmd.Parse(args); err != nil {
		return usageError(err)
	}
	if a.journal == nil {
		return usageError(fmt.Errorf("journal disabled; set journal.path"))
	}

	entries, err := a.journal.List(ctx, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(a.stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTASK\tTYPE\tSTATUS\tCODE\tREQUEST")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Format(time.RFC3339), cell(e.TaskName), cell(e.OperatorType),
			e.Status, cell(e.ErrorCode), cell(e.RequestID))
	}
	return w.Flush()
}

func (a *app) runTypes(args []string) error {
	if len(args) > 0 {
		return usageError(fmt.Errorf("unexpected args: %v", args))
	}
	for _, typ := range a.registry.Types() {
		fmt.Fprintln(a.stdout, typ)
	}
	return nil
}

func cell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}
