// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Command exampleop runs operator tasks from YAML task definitions against a
// local workspace.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jllopis/exampleop/pkg/config"
	"github.com/jllopis/exampleop/pkg/example"
	"github.com/jllopis/exampleop/pkg/journal"
	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/telemetry"
	"github.com/jllopis/exampleop/pkg/template/pongo"
)

const serviceName = "exampleop"

var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	Help       bool
}

// app bundles what every command needs.
type app struct {
	cfg      *config.Config
	registry *operator.Registry
	journal  *journal.Journal
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	global, args, err := parseGlobalFlags(argv)
	if err != nil {
		return usageError(err)
	}
	if global.Help || len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case "help":
		printUsage(stdout)
		return nil
	case "version":
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		return usageError(err)
	}
	a, cleanup, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	switch args[0] {
	case "run":
		return a.runTask(ctx, args[1:])
	case "history":
		return a.runHistory(ctx, args[1:])
	case "types":
		return a.runTypes(args[1:])
	default:
		return usageError(fmt.Errorf("unknown command %q", args[0]))
	}
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, func(), error) {
	logger := telemetry.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig(serviceName, version, telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		Writer:             stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}

	var engineOpts []pongo.Option
	if dir := strings.TrimSpace(cfg.Template.IncludesDir); dir != "" {
		engineOpts = append(engineOpts, pongo.WithFS(os.DirFS(dir)))
	}
	engine, err := pongo.New(engineOpts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	registry, err := operator.NewRegistry(example.NewFactory(engine))
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}

	a := &app{cfg: cfg, registry: registry, logger: logger, stdout: stdout, stderr: stderr}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, err
		}
		a.journal = j
	}

	cleanup := func() {
		if a.journal != nil {
			if err := a.journal.Close(); err != nil {
				logger.Warn("close journal", "error", err)
			}
		}
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}
	return a, cleanup, nil
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--config" || arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="), strings.HasPrefix(arg, "--set="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `exampleop runs operator tasks in a local workspace.

Usage:
  exampleop [global flags] <command> [args]

Global flags:
  --config <path>      Path to settings YAML
  --set key=value      Override a setting (repeatable)

Commands:
  run [-workspace dir] [-name task] [-type op] [-param k=v]... [-dry-run] <task.yaml>
  history [-limit N] [-json]
  types
  version`)
}

func fatal(err error) {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cliErr.Print(os.Stderr)
		os.Exit(cliErr.ExitCode())
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
