// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

// CLIError adds a hint to an operator error for terminal output.
type CLIError struct {
	*operrors.OperatorError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(oe *operrors.OperatorError, hint string) *CLIError {
	return &CLIError{OperatorError: oe, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.OperatorError == nil {
		return "unknown error"
	}
	msg := e.OperatorError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the operator error.
func (e *CLIError) Unwrap() error {
	return e.OperatorError
}

// ExitCode returns the process exit code for the error.
func (e *CLIError) ExitCode() int {
	if e.OperatorError == nil {
		return 1
	}
	return e.OperatorError.ExitCode
}

// Print writes the error and its hint.
func (e *CLIError) Print(w io.Writer) {
	if e.OperatorError == nil {
		fmt.Fprintln(w, "Error: unknown error")
		return
	}
	fmt.Fprintf(w, "Error: %s\n", e.OperatorError.Error())
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// usageError reports bad command line input.
func usageError(err error) error {
	return NewCLIError(operrors.Configuration("invalid arguments", err), "run 'exampleop help' for usage")
}

// explain attaches a hint matching the operator error code.
func explain(err error) error {
	if err == nil {
		return nil
	}
	var oe *operrors.OperatorError
	if !errors.As(err, &oe) {
		return err
	}
	switch oe.Code {
	case operrors.CodeConfiguration:
		return NewCLIError(oe, "check the task definition; 'path' and 'message' are required")
	case operrors.CodeExecution:
		return NewCLIError(oe, "check workspace permissions and free space")
	case operrors.CodeNotFound:
		return NewCLIError(oe, "run 'exampleop types' to list registered operators")
	default:
		return NewCLIError(oe, "")
	}
}

func exitCode(err error) int {
	var oe *operrors.OperatorError
	if errors.As(err, &oe) {
		return oe.ExitCode
	}
	return 1
}
