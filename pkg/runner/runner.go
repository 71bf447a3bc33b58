// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner is a small local host for operators. It resolves the
// operator type, prepares the workspace, runs the operator synchronously and
// records the outcome. It never retries: failures are returned unchanged.
package runner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/journal"
	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/telemetry"
	"github.com/jllopis/exampleop/pkg/workspace"
)

const tracerName = "exampleop/runner"

// TaskSpec describes one task to run.
type TaskSpec struct {
	Name         string
	Type         string
	Config       *params.Config
	WorkspaceDir string
}

// Recorder stores run outcomes. *journal.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (string, error)
}

// Runner runs tasks against a registry of operator factories.
type Runner struct {
	registry *operator.Registry
	logger   *slog.Logger
	recorder Recorder
	metrics  *telemetry.OperatorMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger handed to operators.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder records every run, e.g. in a journal.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithMetrics records run counts and durations.
func WithMetrics(m *telemetry.OperatorMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// New returns a Runner.
func New(registry *operator.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare resolves the factory and workspace for spec and returns the
// operator context without running anything.
func (r *Runner) Prepare(spec TaskSpec) (operator.Factory, operator.Context, error) {
	factory, err := r.registry.Lookup(spec.Type)
	if err != nil {
		return nil, operator.Context{}, err
	}
	ws, err := workspace.New(spec.WorkspaceDir)
	if err != nil {
		return nil, operator.Context{}, err
	}
	req := operator.NewTaskRequest(spec.Name, spec.Config)
	return factory, operator.Context{
		Request:   req,
		Workspace: ws,
		Logger:    r.logger,
	}, nil
}

// Run executes spec and returns the operator's result or error.
func (r *Runner) Run(ctx context.Context, spec TaskSpec) (*operator.TaskResult, error) {
	started := r.now()

	factory, opctx, err := r.Prepare(spec)
	if err != nil {
		r.finish(ctx, spec, "", started, err)
		return nil, err
	}
	req := opctx.Request

	ctx = telemetry.WithTask(ctx, req.ID, spec.Name, spec.Type)
	ctx, span := r.tracer.Start(ctx, "operator.run",
		trace.WithAttributes(telemetry.RunAttributes(spec.Type, spec.Name, req.ID, opctx.Workspace.Root())...))
	defer span.End()

	r.logger.InfoContext(ctx, "running task")
	result, err := factory.NewOperator(opctx).Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(err)...)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	r.finish(ctx, spec, req.ID, started, err)
	return result, err
}

func (r *Runner) finish(ctx context.Context, spec TaskSpec, requestID string, started time.Time, runErr error) {
	finished := r.now()
	r.metrics.RecordRun(ctx, spec.Type, finished.Sub(started), runErr)

	if runErr != nil {
		r.logger.ErrorContext(ctx, "task failed", slog.Any("error", runErr))
	} else {
		r.logger.InfoContext(ctx, "task succeeded", slog.Duration("elapsed", finished.Sub(started)))
	}

	if r.recorder == nil {
		return
	}
	entry := journal.Entry{
		RequestID:    requestID,
		TaskName:     spec.Name,
		OperatorType: spec.Type,
		Status:       telemetry.StatusOf(runErr),
		StartedAt:    started,
		FinishedAt:   finished,
	}
	if runErr != nil {
		entry.ErrorCode = string(operrors.CodeOf(runErr))
		entry.Error = runErr.Error()
	}
	if _, err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "journal record failed", slog.Any("error", err))
	}
}
