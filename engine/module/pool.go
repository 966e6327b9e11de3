package module

import (
	"fmt"
	"sync"

	"dario.cat/mergo"
	"github.com/weaveflow/weaveflow/engine/manifest"
)

// instanceEntry pairs an instantiated Module with the manifest it was built
// from, so the dispatcher can validate invocations without a second lookup.
type instanceEntry struct {
	instance Module
	manifest manifest.Manifest
}

// Pool is the per-workflow-run Instance Pool: one Module per context_modules
// entry, reused across every step in the run and disposed when the run
// terminates (spec.md §4.C, "Instances are reused ... disposed when the
// workflow terminates").
type Pool struct {
	mu      sync.RWMutex
	entries map[string]instanceEntry
}

// InstanceSpec is one context_modules entry: the instance id a workflow
// document addresses it by maps to a manifest-registered module name plus
// that instance's static config. The two are kept distinct because a single
// module (e.g. "api") is commonly bound under several instance ids with
// different configs in the same document.
type InstanceSpec struct {
	ModuleName string
	Config     map[string]any
}

// NewPool builds a Pool by instantiating every entry in instances (instance
// id → module name + static config) against registry. Returns on the first
// instantiation failure, since spec.md requires the whole workflow to abort
// before step 1 rather than run with a partially built pool.
func NewPool(registry *Registry, instances map[string]InstanceSpec, defaults map[string]map[string]any) (*Pool, error) {
	p := &Pool{entries: make(map[string]instanceEntry, len(instances))}
	for instanceID, spec := range instances {
		merged, err := mergeConfig(defaults[spec.ModuleName], spec.Config)
		if err != nil {
			return nil, fmt.Errorf("module pool: failed to merge config for %q: %w", instanceID, err)
		}
		instance, m, err := registry.New(spec.ModuleName, merged)
		if err != nil {
			return nil, fmt.Errorf("module pool: failed to instantiate %q: %w", instanceID, err)
		}
		p.entries[instanceID] = instanceEntry{instance: instance, manifest: m}
	}
	return p, nil
}

func mergeConfig(defaults, override map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(defaults))
	for k, v := range defaults {
		result[k] = v
	}
	if len(override) > 0 {
		if err := mergo.Merge(&result, override, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Get returns the instance and manifest registered under name.
func (p *Pool) Get(name string) (Module, manifest.Manifest, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[name]
	return entry.instance, entry.manifest, ok
}

// Dispose releases every instance implementing Closer. Errors are collected
// rather than aborting early so every instance gets a chance to clean up.
func (p *Pool) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for name, entry := range p.entries {
		closer, ok := entry.instance.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("module pool: failed to close %q: %w", name, err)
		}
	}
	return firstErr
}
