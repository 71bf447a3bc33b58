// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package template defines the rendering capability hosts inject into
// operators. Operators treat it as an opaque function from a template body
// and a data context to text.
package template

// Engine renders template content against a data context.
type Engine interface {
	RenderString(content string, data any) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(content string, data any) (string, error)

// RenderString calls f.
func (f EngineFunc) RenderString(content string, data any) (string, error) {
	return f(content, data)
}
