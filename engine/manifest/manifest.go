// Package manifest defines the Module Manifest: the declared name, class
// reference, and method signatures a context module exposes, used by the
// registry to validate instantiation and by the dispatcher to validate
// invocations before a method is ever called.
package manifest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ArgumentDescriptor describes one named parameter a method accepts.
type ArgumentDescriptor struct {
	Name     string `yaml:"name" validate:"required"`
	Required bool   `yaml:"required"`
	Type     string `yaml:"type" validate:"omitempty,oneof=string number boolean object array any"`
}

// MethodDescriptor describes one invocable method on a module.
type MethodDescriptor struct {
	Name      string               `yaml:"name" validate:"required"`
	Arguments []ArgumentDescriptor `yaml:"arguments" validate:"dive"`
	Returns   string               `yaml:"returns" validate:"omitempty,oneof=string number boolean object array any step_result"`
}

// Manifest is the declared shape of one context module.
type Manifest struct {
	Name    string             `yaml:"name" validate:"required"`
	Class   string             `yaml:"class" validate:"required"`
	Version string             `yaml:"version" validate:"required"`
	Author  string             `yaml:"author"`
	Methods []MethodDescriptor `yaml:"methods" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the manifest's struct tags and cross-field invariants
// (method names and argument names must be unique within their scope).
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("manifest %q: %w", m.Name, err)
	}
	seen := make(map[string]bool, len(m.Methods))
	for _, method := range m.Methods {
		if seen[method.Name] {
			return fmt.Errorf("manifest %q: duplicate method %q", m.Name, method.Name)
		}
		seen[method.Name] = true
		argSeen := make(map[string]bool, len(method.Arguments))
		for _, arg := range method.Arguments {
			if argSeen[arg.Name] {
				return fmt.Errorf("manifest %q: method %q has duplicate argument %q", m.Name, method.Name, arg.Name)
			}
			argSeen[arg.Name] = true
		}
	}
	return nil
}

// Method returns the descriptor for name, or false if the manifest declares
// no such method.
func (m *Manifest) Method(name string) (MethodDescriptor, bool) {
	for _, method := range m.Methods {
		if method.Name == name {
			return method, true
		}
	}
	return MethodDescriptor{}, false
}

// MissingRequired returns the names of required arguments for method that are
// absent from args.
func (m MethodDescriptor) MissingRequired(args map[string]any) []string {
	var missing []string
	for _, arg := range m.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := args[arg.Name]; !ok {
			missing = append(missing, arg.Name)
		}
	}
	return missing
}
