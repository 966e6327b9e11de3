package workflow

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed schema.json
var defaultSchemaJSON []byte

var (
	defaultSchemaOnce sync.Once
	defaultSchema     *Schema
	defaultSchemaErr  error
)

// DefaultSchema compiles and caches the engine's built-in workflow document
// schema. cmd/engined uses this unless an operator supplies their own
// schema file.
func DefaultSchema() (*Schema, error) {
	defaultSchemaOnce.Do(func() {
		defaultSchema, defaultSchemaErr = CompileSchema(defaultSchemaJSON)
	})
	if defaultSchemaErr != nil {
		return nil, fmt.Errorf("workflow: default schema: %w", defaultSchemaErr)
	}
	return defaultSchema, nil
}
