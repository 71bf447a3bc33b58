// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

func TestRunAttributes(t *testing.T) {
	attrs := RunAttributes("example", "+write", "req-1", "/tmp/ws")

	expected := map[string]any{
		AttrOperatorType: "example",
		AttrTaskName:     "+write",
		AttrRequestID:    "req-1",
		AttrWorkspace:    "/tmp/ws",
	}

	assertAttributes(t, attrs, expected)
}

func TestRunAttributesOmitsEmpty(t *testing.T) {
	attrs := RunAttributes("example", "", "req-1", "")
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestErrorAttributes(t *testing.T) {
	if attrs := ErrorAttributes(nil); attrs != nil {
		t.Fatalf("expected no attributes for nil error")
	}

	err := operrors.Execution("write out.txt", errors.New("disk full")).
		WithAttribute("exampleop.path", "out.txt")
	attrs := ErrorAttributes(err)

	expected := map[string]any{
		AttrErrorCode:        "EXECUTION_ERROR",
		AttrErrorRecoverable: true,
		"exampleop.path":     "out.txt",
	}

	assertAttributes(t, attrs, expected)

	assertAttributes(t, ErrorAttributes(errors.New("plain")), map[string]any{
		AttrErrorCode: "INTERNAL_ERROR",
	})
}

func TestStatusOf(t *testing.T) {
	if StatusOf(nil) != StatusSucceeded {
		t.Errorf("expected succeeded for nil error")
	}
	if StatusOf(errors.New("x")) != StatusFailed {
		t.Errorf("expected failed for error")
	}
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()

	found := make(map[string]attribute.KeyValue)
	for _, attr := range attrs {
		found[string(attr.Key)] = attr
	}

	for key, expectedVal := range expected {
		attr, ok := found[key]
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}

		var actualVal any
		switch attr.Value.Type() {
		case attribute.STRING:
			actualVal = attr.Value.AsString()
		case attribute.INT64:
			actualVal = int(attr.Value.AsInt64())
		case attribute.FLOAT64:
			actualVal = attr.Value.AsFloat64()
		case attribute.BOOL:
			actualVal = attr.Value.AsBool()
		}

		if actualVal != expectedVal {
			t.Errorf("attribute %s: got %v, want %v", key, actualVal, expectedVal)
		}
	}
}
