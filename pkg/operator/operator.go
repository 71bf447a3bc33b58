// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package operator defines the contract between the host and the operators
// it runs. The host registers one Factory per operator type and asks it for
// a fresh Operator for every task invocation.
package operator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/workspace"
)

// TaskRequest carries the configuration of one task invocation. It must not
// be modified while an operator runs.
type TaskRequest struct {
	ID        string
	TaskName  string
	Config    *params.Config
	CreatedAt time.Time
}

// NewTaskRequest creates a request with a generated ID.
func NewTaskRequest(taskName string, cfg *params.Config) *TaskRequest {
	if cfg == nil {
		cfg = params.New()
	}
	return &TaskRequest{
		ID:        uuid.NewString(),
		TaskName:  taskName,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
}

// TaskResult reports a successful run. It carries no payload of its own.
type TaskResult struct {
	RequestID string
}

// EmptyResult returns the success marker for req.
func EmptyResult(req *TaskRequest) *TaskResult {
	return &TaskResult{RequestID: req.ID}
}

// Context is what the host hands a factory to build an operator.
type Context struct {
	Request   *TaskRequest
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Operator runs a single task invocation.
type Operator interface {
	Run(ctx context.Context) (*TaskResult, error)
}

// Factory creates operators of one type.
type Factory interface {
	Type() string
	NewOperator(opctx Context) Operator
}

// Commander is implemented by factories whose operators accept a command,
// the value written after the type in a task definition (`example>: body`).
// CommandKey names the parameter the command is stored under.
type Commander interface {
	CommandKey() string
}
