// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package pongo implements template.Engine on top of pongo2.
//
// Besides the Django style syntax ({{ name }}, {% if %}), the engine accepts
// ${expr} placeholders as used in workflow definitions. They are rewritten to
// {{ expr }} before parsing; $${ produces a literal ${.
//
// Output is plain text: values are never HTML escaped.
package pongo

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"

	"github.com/jllopis/exampleop/pkg/template"
)

// FilterFunc transforms a value inside a template, e.g. {{ name|shout }}.
type FilterFunc func(input any, param any) (any, error)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	globalData map[string]any
	filters    map[string]FilterFunc
	includes   fs.FS
}

// WithFS makes files in fsys available to {% include %}. Without it
// templates cannot load other templates.
func WithFS(fsys fs.FS) Option {
	return func(cfg *config) {
		cfg.includes = fsys
	}
}

// WithGlobalData seeds values visible to every render. Render data wins on
// key conflicts.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithFilter registers a filter. pongo2 filters are process wide, so a name
// that is already registered is rejected by New.
func WithFilter(name string, fn FilterFunc) Option {
	return func(cfg *config) {
		if cfg.filters == nil {
			cfg.filters = make(map[string]FilterFunc)
		}
		cfg.filters[strings.TrimSpace(name)] = fn
	}
}

// Engine is a pongo2 backed template.Engine. It is safe for concurrent use.
type Engine struct {
	mu  sync.RWMutex
	set *pongo2.TemplateSet
}

var _ template.Engine = (*Engine)(nil)

// New constructs an Engine.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	registerDefaultFilters()

	includes := cfg.includes
	if includes == nil {
		includes = noFS{}
	}
	set := pongo2.NewSet("exampleop", pongo2.NewFSLoader(includes))
	set.Globals = make(pongo2.Context)
	for key, value := range cfg.globalData {
		if key == "" {
			continue
		}
		set.Globals[key] = value
	}

	for name, fn := range cfg.filters {
		if err := registerFilter(name, fn); err != nil {
			return nil, err
		}
	}

	return &Engine{set: set}, nil
}

// RenderString parses content and executes it with data as context.
func (e *Engine) RenderString(content string, data any) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("pongo: engine is nil")
	}

	tmpl, err := e.set.FromString(plainText(Rewrite(content)))
	if err != nil {
		return "", fmt.Errorf("pongo: parse template: %w", err)
	}

	viewContext, err := toContext(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("pongo: execute template: %w", err)
	}
	return buf.String(), nil
}

// Rewrite converts ${expr} placeholders to pongo2 variable tags. $${ is
// emitted as a literal ${ through a string expression.
func Rewrite(content string) string {
	if !strings.Contains(content, "${") {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) + 16)
	for i := 0; i < len(content); {
		if strings.HasPrefix(content[i:], "$${") {
			b.WriteString(`{{ "${" }}`)
			i += 3
			continue
		}
		if strings.HasPrefix(content[i:], "${") {
			end := strings.IndexByte(content[i+2:], '}')
			if end < 0 {
				b.WriteString(content[i:])
				break
			}
			b.WriteString("{{ ")
			b.WriteString(strings.TrimSpace(content[i+2 : i+2+end]))
			b.WriteString(" }}")
			i += end + 3
			continue
		}
		b.WriteByte(content[i])
		i++
	}
	return b.String()
}

// plainText turns pongo2's HTML autoescaping off for the whole body.
func plainText(body string) string {
	return "{% autoescape off %}" + body + "{% endautoescape %}"
}

func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		out := make(pongo2.Context, len(v))
		for key, value := range v {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pongo: unsupported render data %T", data)
	}
}

type noFS struct{}

func (noFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

var defaultFilters sync.Once

func registerDefaultFilters() {
	defaultFilters.Do(func() {
		if !pongo2.FilterExists("trim") {
			_ = pongo2.RegisterFilter("trim", filterTrim)
		}
		if !pongo2.FilterExists("lowerfirst") {
			_ = pongo2.RegisterFilter("lowerfirst", filterLowerFirst)
		}
	})
}

func registerFilter(name string, fn FilterFunc) error {
	if name == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()
	for i, r := range t {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		return pongo2.AsValue(t[:i] + strings.ToLower(string(r)) + t[i+utf8.RuneLen(r):]), nil
	}
	return pongo2.AsValue(t), nil
}
