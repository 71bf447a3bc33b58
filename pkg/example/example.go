// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package example implements the "example" operator: it renders the task's
// message template and writes the result to a file in the workspace.
//
// Workflow usage:
//
//	+write:
//	  example>:
//	  path: out.txt
//	  message: "hi ${name}"
//	  example:
//	    name: world
//
// Keys under the "example" scope override task level keys of the same name.
package example

import (
	"context"
	"log/slog"

	"github.com/jllopis/exampleop/pkg/operator"
	"github.com/jllopis/exampleop/pkg/template"
	"github.com/jllopis/exampleop/pkg/workspace"
)

// Type is the operator type name hosts register this factory under.
const Type = "example"

const (
	messageKey = "message"
	pathKey    = "path"
)

// Factory builds example operators sharing one template engine.
type Factory struct {
	engine template.Engine
}

var (
	_ operator.Factory   = (*Factory)(nil)
	_ operator.Commander = (*Factory)(nil)
)

// NewFactory returns a factory rendering with engine.
func NewFactory(engine template.Engine) *Factory {
	return &Factory{engine: engine}
}

// Type returns "example".
func (f *Factory) Type() string {
	return Type
}

// CommandKey maps `example>: <message>` onto the message parameter.
func (f *Factory) CommandKey() string {
	return messageKey
}

// NewOperator returns an operator bound to one task invocation.
func (f *Factory) NewOperator(opctx operator.Context) operator.Operator {
	logger := opctx.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &fileWriter{
		engine:    f.engine,
		request:   opctx.Request,
		workspace: opctx.Workspace,
		logger:    logger,
	}
}

type fileWriter struct {
	engine    template.Engine
	request   *operator.TaskRequest
	workspace *workspace.Workspace
	logger    *slog.Logger
}

// Run renders the message and writes it to path. Every failure is returned
// as is; retries are the host's business.
func (o *fileWriter) Run(ctx context.Context) (*operator.TaskResult, error) {
	nested, err := o.request.Config.NestedOrEmpty(Type)
	if err != nil {
		return nil, err
	}
	params := o.request.Config.MergeDefault(nested)

	message, err := o.workspace.RenderTemplate(o.engine, params, messageKey, workspace.UTF8)
	if err != nil {
		return nil, err
	}
	path, err := params.GetString(pathKey)
	if err != nil {
		return nil, err
	}

	if err := o.workspace.WriteFile(path, []byte(message)); err != nil {
		return nil, err
	}

	o.logger.DebugContext(ctx, "example operator wrote file",
		slog.String("request_id", o.request.ID),
		slog.String("task", o.request.TaskName),
		slog.String("path", path),
		slog.Int("bytes", len(message)),
	)
	return operator.EmptyResult(o.request), nil
}
