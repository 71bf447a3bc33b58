// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires logging, tracing and metrics for operator runs.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

// Attribute keys shared by spans and metrics.
const (
	AttrOperatorType = "exampleop.operator.type"
	AttrTaskName     = "exampleop.task.name"
	AttrRequestID    = "exampleop.task.request_id"
	AttrWorkspace    = "exampleop.workspace.root"
	AttrRunStatus    = "exampleop.run.status"

	AttrErrorCode        = "error.code"
	AttrErrorRecoverable = "error.recoverable"
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// StatusOf maps a run error to its status value.
func StatusOf(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}

// RunAttributes returns the attributes describing an operator run.
func RunAttributes(opType, taskName, requestID, workspaceRoot string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperatorType, opType),
		attribute.String(AttrRequestID, requestID),
	}
	if taskName != "" {
		attrs = append(attrs, attribute.String(AttrTaskName, taskName))
	}
	if workspaceRoot != "" {
		attrs = append(attrs, attribute.String(AttrWorkspace, workspaceRoot))
	}
	return attrs
}

// ErrorAttributes describes a failed run. Attributes attached to an
// OperatorError are included.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	oe := operrors.AsOperatorError(err)
	attrs := []attribute.KeyValue{
		attribute.String(AttrErrorCode, string(oe.Code)),
		attribute.Bool(AttrErrorRecoverable, oe.Recoverable),
	}
	for key, value := range oe.Attributes {
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}
