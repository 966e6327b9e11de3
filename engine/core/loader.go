package core

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolvePath resolves path against cwd (when relative and cwd is set), or
// against the process working directory otherwise.
func ResolvePath(cwd *CWD, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return filepath.Abs(path)
	}
	if cwd != nil {
		if err := cwd.Validate(); err != nil {
			return "", fmt.Errorf("invalid current working directory: %w", err)
		}
		return cwd.JoinAndCheck(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return absPath, nil
}

// LoadYAML reads filePath, rejects deprecated `$`-directive keys, and
// decodes it into a fresh T.
func LoadYAML[T any](filePath string) (T, error) {
	var zero T
	data, err := os.ReadFile(filePath)
	if err != nil {
		return zero, fmt.Errorf("failed to open config file: %w", err)
	}
	if err := rejectDollarKeys(data, filePath); err != nil {
		return zero, err
	}
	var doc T
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return zero, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	return doc, nil
}

// MapFromFilePath reads a YAML file into a generic map, used for manifests
// and other loosely-typed documents that don't warrant a dedicated struct.
func MapFromFilePath(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var itemMap map[string]any
	if err := yaml.Unmarshal(data, &itemMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal local scope: %w", err)
	}
	return itemMap, nil
}

// rejectDollarKeys scans YAML documents and returns an error when encountering
// any mapping key that starts with '$' (e.g., $ref, $use, $merge, $ptr).
// It preserves precise line/column information for actionable messages.
func rejectDollarKeys(data []byte, filePath string) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
		}
		if err := walkAndReject(&doc, filePath); err != nil {
			return err
		}
	}
	return nil
}

func walkAndReject(n *yaml.Node, filePath string) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := walkAndReject(c, filePath); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i < len(n.Content); i += 2 {
			key := n.Content[i]
			val := n.Content[i+1]
			if key != nil && key.Kind == yaml.ScalarNode && strings.HasPrefix(key.Value, "$") {
				return fmt.Errorf(
					"%s:%d:%d: unsupported directive key '%s' detected; "+
						"directives like $ref/$use/$merge are not supported by this loader",
					filePath, key.Line, key.Column, key.Value,
				)
			}
			if err := walkAndReject(val, filePath); err != nil {
				return err
			}
		}
	}
	return nil
}
