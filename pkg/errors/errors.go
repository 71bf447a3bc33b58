// SPDX-License-Identifier: Apache-2.0
// Package errors provides the typed errors operators surface to the host.
// Operators never recover locally: every failure carries a code so the host
// can decide whether to retry, alert or abort the task.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies operator failures for the host and for monitoring.
type ErrorCode string

const (
	// CodeInternal indicates an unclassified failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeConfiguration indicates a required parameter is missing or has the
	// wrong type. Raised before any side effect happens.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// CodeExecution indicates an I/O failure while the operator was running.
	CodeExecution ErrorCode = "EXECUTION_ERROR"

	// CodeNotFound indicates an unknown operator type or missing resource.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// OperatorError is a typed error with context for the host and observability.
// It implements the error interface and can be unwrapped with errors.As().
type OperatorError struct {
	Code       ErrorCode
	Message    string
	Err        error
	Context    map[string]interface{}
	Attributes map[string]string
	// Recoverable hints the host that a retry may succeed.
	Recoverable bool
	ExitCode    int
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *OperatorError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *OperatorError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Attributes  map[string]string      `json:"attributes,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		ExitCode    int                    `json:"exit_code"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         cause,
		Context:     e.Context,
		Attributes:  e.Attributes,
		Recoverable: e.Recoverable,
		ExitCode:    e.ExitCode,
	})
}

// New creates a new OperatorError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *OperatorError {
	return &OperatorError{
		Code:        code,
		Message:     msg,
		Err:         cause,
		Context:     make(map[string]interface{}),
		Attributes:  make(map[string]string),
		Recoverable: code == CodeExecution,
		ExitCode:    codeToExitCode(code),
	}
}

// Configuration creates a CONFIGURATION_ERROR.
func Configuration(msg string, cause error) *OperatorError {
	return New(CodeConfiguration, msg, cause)
}

// Configurationf creates a CONFIGURATION_ERROR with a formatted message and no cause.
func Configurationf(format string, args ...any) *OperatorError {
	return New(CodeConfiguration, fmt.Sprintf(format, args...), nil)
}

// Execution creates an EXECUTION_ERROR wrapping the underlying cause.
func Execution(msg string, cause error) *OperatorError {
	return New(CodeExecution, msg, cause)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *OperatorError) WithContext(key string, value interface{}) *OperatorError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *OperatorError) WithAttribute(key, value string) *OperatorError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// AsOperatorError finds the first OperatorError in the chain.
// Errors without one are wrapped as INTERNAL_ERROR.
func AsOperatorError(err error) *OperatorError {
	if err == nil {
		return nil
	}
	var oe *OperatorError
	if stderrors.As(err, &oe) {
		return oe
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first OperatorError in the chain, or
// CodeInternal. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsOperatorError(err).Code
}

// IsConfiguration reports whether err carries a CONFIGURATION_ERROR.
func IsConfiguration(err error) bool {
	return CodeOf(err) == CodeConfiguration
}

// IsExecution reports whether err carries an EXECUTION_ERROR.
func IsExecution(err error) bool {
	return CodeOf(err) == CodeExecution
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *OperatorError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeToExitCode maps error codes to process exit codes for the CLI.
func codeToExitCode(code ErrorCode) int {
	switch code {
	case CodeConfiguration, CodeNotFound:
		return 2
	default:
		return 1
	}
}
