package workflow

import (
	"fmt"
	"os"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/weaveflow/weaveflow/engine/core"
)

// Schema compiles the workflow document JSON schema once at process
// startup; CompileSchema is exposed separately so cmd/engined can load a
// schema file rather than an embedded default.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema parses a JSON schema document and returns a reusable Schema.
func CompileSchema(schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("workflow: failed to compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks the raw YAML bytes behind a workflow document against the
// schema, independent of whether they also decode cleanly into Document —
// schema validation catches things the Go struct's zero values would
// silently accept (e.g. an approval step missing `form`).
func (s *Schema) Validate(data []byte) error {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("workflow: failed to parse document for schema validation: %w", err)
	}
	result := s.compiled.Validate(normalizeForSchema(generic))
	if !result.IsValid() {
		return fmt.Errorf("workflow: document failed schema validation: %v", result.Errors)
	}
	return nil
}

// normalizeForSchema converts yaml.v3's decoded map[string]any (which uses
// map[any]any is not produced by yaml.v3, but numeric/bool scalars can
// differ from encoding/json's float64-only numbers) into the plain
// map[string]any/[]any/scalar shape jsonschema expects.
func normalizeForSchema(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = normalizeForSchema(item)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = normalizeForSchema(item)
		}
		return out
	default:
		return value
	}
}

// Load reads, optionally schema-validates, and structurally validates the
// workflow document at path. schema may be nil to skip schema validation
// (used in tests exercising structural invariants in isolation).
func Load(path string, schema *Schema) (*Document, error) {
	if schema != nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("workflow: failed to read %s: %w", path, err)
		}
		if err := schema.Validate(raw); err != nil {
			return nil, err
		}
	}

	doc, err := core.LoadYAML[Document](path)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
