// Package contextstore implements the per-run Context: a mutable key/value
// store with reserved namespaces, snapshot semantics for template rendering,
// and a non-exported namespace for binding non-serializable module handles.
package contextstore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/weaveflow/weaveflow/engine/core"
)

const (
	// NamespacePayload holds the trigger input, read-only by convention.
	NamespacePayload = "payload"
	// NamespaceSteps holds per-step results; only the engine may write here.
	NamespaceSteps = "steps"
	// NamespaceEnv holds selected environment variables exposed to templates.
	NamespaceEnv = "env"
	// KeyWorkflowUID is the top-level key holding the run's workflow_uid.
	KeyWorkflowUID = "workflow_uid"
)

// Store is the per-run Context. The engine is its sole writer; concurrent
// writes within a single workflow run are not supported (spec.md §4.B).
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	bound  map[string]any
}

// New returns an empty Store seeded with a workflow_uid and optional payload.
func New(workflowUID core.ID, payload map[string]any) *Store {
	s := &Store{
		values: make(map[string]any),
		bound:  make(map[string]any),
	}
	s.values[KeyWorkflowUID] = workflowUID.String()
	if payload != nil {
		s.values[NamespacePayload] = core.CloneMap(payload)
	} else {
		s.values[NamespacePayload] = make(map[string]any)
	}
	s.values[NamespaceSteps] = make(map[string]any)
	return s
}

// Set writes a caller-injected top-level key. Writing directly to the
// reserved "steps" namespace is rejected; use SetStep instead so the
// single-writer contract for step results is enforced in one place.
func (s *Store) Set(key string, value any) error {
	if key == NamespaceSteps {
		return fmt.Errorf("contextstore: %q is reserved for step results, use SetStep", NamespaceSteps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// SetStep writes a step's result under steps.<key>, where key is the
// register_as value (or the step id when register_as is unset).
func (s *Store) SetStep(key string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps, _ := s.values[NamespaceSteps].(map[string]any)
	if steps == nil {
		steps = make(map[string]any)
	}
	steps[key] = data
	s.values[NamespaceSteps] = steps
}

// SetEnv installs the env namespace exposed to templates.
func (s *Store) SetEnv(env map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asAny := make(map[string]any, len(env))
	for k, v := range env {
		asAny[k] = v
	}
	s.values[NamespaceEnv] = asAny
}

// Get resolves a single dotted path from the live store (not a snapshot).
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.values, path)
}

// GetAll returns a deep snapshot of the store suitable for template
// rendering. Mutating the returned map never affects the live store.
func (s *Store) GetAll() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied, err := core.DeepCopy(s.values)
	if err != nil {
		return nil, fmt.Errorf("contextstore: snapshot failed: %w", err)
	}
	return copied, nil
}

// Bind attaches a non-serializable module handle (a live client, connection,
// etc.) under an internal namespace that never appears in GetAll snapshots
// or template resolution.
func (s *Store) Bind(name string, handle any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[name] = handle
}

// Bound retrieves a previously bound handle.
func (s *Store) Bound(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.bound[name]
	return v, ok
}

func lookup(values map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = values
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
