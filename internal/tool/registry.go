// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tool keeps the mapping between tool names and their invocable
// capabilities. The registry is populated once at process start and is
// read-only afterwards, so concurrent runs can share it without locking.
package tool

import (
	"context"
	"fmt"
	"sync"
)

// Spec declares an invocable capability: a unique name, a natural-language
// description presented to the reasoner, an input schema (parameter name to
// expected type), and the synchronous call itself.
type Spec struct {
	// Name uniquely identifies the tool within a registry.
	Name string

	// Description tells the reasoner when and how to use the tool.
	Description string

	// InputSchema maps parameter names to expected JSON types
	// (e.g. "query" -> "string").
	InputSchema map[string]string

	// Invoke runs the tool. It returns plain text on success. On failure it
	// may return an error or a descriptive error string; either way the loop
	// converts the outcome into an observation, never a crash.
	Invoke func(ctx context.Context, args map[string]any) (string, error)
}

// DuplicateError reports a second registration under an existing name.
// Duplicate registration is rejected rather than overwritten so that the
// catalog the reasoner sees cannot change identity mid-process.
type DuplicateError struct {
	Name string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownError reports a lookup for a name with no registration.
type UnknownError struct {
	Name string
}

func (e UnknownError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// Registry maps tool names to specs and preserves registration order so the
// catalog presented to the reasoner is deterministic across runs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a spec. It fails on an empty name, a nil Invoke, or a name
// already in use.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if spec.Invoke == nil {
		return fmt.Errorf("tool %q has no invoke function", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return DuplicateError{Name: spec.Name}
	}

	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Resolve returns the spec registered under name.
func (r *Registry) Resolve(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, exists := r.specs[name]
	if !exists {
		return Spec{}, UnknownError{Name: name}
	}
	return spec, nil
}

// Catalog returns all specs in registration order.
func (r *Registry) Catalog() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}
	return specs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
