// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package operator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	operrors "github.com/jllopis/exampleop/pkg/errors"
)

// Registry maps operator type names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the given factories.
func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory)}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds f under f.Type().
func (r *Registry) Register(f Factory) error {
	if f == nil {
		return fmt.Errorf("operator: factory is nil")
	}
	name := strings.TrimSpace(f.Type())
	if name == "" {
		return fmt.Errorf("operator: factory type is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("operator: type %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered for typ.
func (r *Registry) Lookup(typ string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[typ]
	if !ok {
		return nil, operrors.New(operrors.CodeNotFound, fmt.Sprintf("unknown operator type %q", typ), nil).
			WithContext("type", typ)
	}
	return f, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
