package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
)

const manifestFileName = "manifest.yaml"

// Registry discovers modules under a modules_dir at startup and resolves a
// manifest's declared Class to a compile-time Factory. Go has no safe
// equivalent of a dynamic "import this .so/.py file" plugin mechanism, so
// class references are resolved through a registered-factory table — the
// same pattern database/sql uses for drivers — rather than reflection-based
// dynamic loading.
type Registry struct {
	mu        sync.RWMutex
	manifests map[string]manifest.Manifest
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		manifests: make(map[string]manifest.Manifest),
		factories: make(map[string]Factory),
	}
}

// RegisterFactory associates a manifest's "class" value with a constructor.
// Builtin modules register themselves at init time; external modules compiled
// into this binary register the same way.
func (r *Registry) RegisterFactory(class string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[class] = factory
}

// Discover scans modulesDir for immediate subdirectories containing a
// manifest.yaml, validates each manifest, and records it under its declared
// name. Returns an error immediately on the first invalid manifest rather
// than partially populating the registry.
func (r *Registry) Discover(modulesDir string) error {
	entries, err := os.ReadDir(modulesDir)
	if err != nil {
		return fmt.Errorf("module registry: failed to read modules_dir %q: %w", modulesDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(modulesDir, entry.Name(), manifestFileName)
		if _, statErr := os.Stat(manifestPath); statErr != nil {
			continue
		}
		m, err := core.LoadYAML[manifest.Manifest](manifestPath)
		if err != nil {
			return fmt.Errorf("module registry: failed to load %s: %w", manifestPath, err)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("module registry: invalid manifest at %s: %w", manifestPath, err)
		}
		r.mu.Lock()
		r.manifests[m.Name] = m
		r.mu.Unlock()
	}
	return nil
}

// RegisterManifest adds a manifest directly, bypassing filesystem discovery —
// used by builtin modules, which ship their manifest as a Go literal rather
// than a file on disk.
func (r *Registry) RegisterManifest(m manifest.Manifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("module registry: invalid manifest %q: %w", m.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[m.Name] = m
	return nil
}

// Manifest returns the manifest registered under name.
func (r *Registry) Manifest(name string) (manifest.Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[name]
	return m, ok
}

// New constructs a Module instance for the named manifest entry using its
// registered Factory and the supplied static config.
func (r *Registry) New(name string, config map[string]any) (Module, manifest.Manifest, error) {
	r.mu.RLock()
	m, ok := r.manifests[name]
	factory, hasFactory := r.factories[m.Class]
	r.mu.RUnlock()
	if !ok {
		return nil, manifest.Manifest{}, fmt.Errorf("module registry: no manifest registered for %q", name)
	}
	if !hasFactory {
		return nil, manifest.Manifest{}, fmt.Errorf("module registry: no factory registered for class %q", m.Class)
	}
	instance, err := factory(config)
	if err != nil {
		return nil, manifest.Manifest{}, fmt.Errorf("module registry: failed to instantiate %q: %w", name, err)
	}
	return instance, m, nil
}
