// Package module implements the Module Registry, the per-workflow Instance
// Pool, and the Dispatcher described in spec.md §4.C.
package module

import (
	"context"
)

// Module is the duck-typed contract every context module satisfies: a single
// invoke(method, args) entry point. Concrete modules (engine/builtin and any
// external plugin) implement this directly.
type Module interface {
	Invoke(ctx context.Context, method string, args map[string]any) (any, error)
}

// Factory constructs a Module instance from its static config, as declared
// for one entry of a workflow's context_modules.
type Factory func(config map[string]any) (Module, error)

// Closer is implemented by modules holding resources (file handles, network
// connections) that must be released when a workflow terminates.
type Closer interface {
	Close() error
}
