// Package workflow defines the Workflow Document data model: the parsed,
// schema-validated tree the runtime step loop walks.
package workflow

import "fmt"

// TriggerKind is the tagged variant selector for Trigger.
type TriggerKind string

const (
	TriggerAPI       TriggerKind = "api"
	TriggerGit       TriggerKind = "git"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerAdHoc     TriggerKind = "ad-hoc"
)

// Trigger is the tagged variant describing how a workflow is started.
// Only the fields relevant to Kind are populated.
type Trigger struct {
	Kind TriggerKind `yaml:"type" json:"type"`

	// api
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// git
	Repo   string `yaml:"repo,omitempty" json:"repo,omitempty"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Event  string `yaml:"event,omitempty" json:"event,omitempty"`

	// scheduled
	Cron string `yaml:"cron,omitempty" json:"cron,omitempty"`
}

// ContextModuleRef is one entry of `context_modules`: an instance id bound
// to a module class and its static config.
type ContextModuleRef struct {
	Module string         `yaml:"module" json:"module"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Branch is an ordered step list run after the main step list completes,
// for on_success/on_failure. Branches may not themselves declare branches.
type Branch struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// Document is the immutable, parsed Workflow Document.
type Document struct {
	Name                string                      `yaml:"name" json:"name"`
	Trigger             Trigger                     `yaml:"trigger" json:"trigger"`
	ContextModules      map[string]ContextModuleRef `yaml:"context_modules,omitempty" json:"context_modules,omitempty"`
	Steps               []Step                      `yaml:"steps" json:"steps"`
	GlobalFailureHandler *Step                      `yaml:"global_failure_handler,omitempty" json:"global_failure_handler,omitempty"`
	OnSuccess           *Branch                     `yaml:"on_success,omitempty" json:"on_success,omitempty"`
	OnFailure           *Branch                     `yaml:"on_failure,omitempty" json:"on_failure,omitempty"`
}

// StepByID returns the step with the given id from the main step list, or
// false when absent.
func (d *Document) StepByID(id string) (Step, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Validate checks the structural invariants a schema cannot express: unique
// step ids and that every on_failure_step jump target exists and is
// forward-only.
func (d *Document) Validate() error {
	seen := make(map[string]int, len(d.Steps))
	for i, s := range d.Steps {
		if s.ID == "" {
			return fmt.Errorf("workflow %q: step at index %d has no id", d.Name, i)
		}
		if prev, ok := seen[s.ID]; ok {
			return fmt.Errorf("workflow %q: duplicate step id %q at indices %d and %d", d.Name, s.ID, prev, i)
		}
		seen[s.ID] = i
	}
	for i, s := range d.Steps {
		if s.Action == nil || s.Action.OnFailureStep == "" {
			continue
		}
		target, ok := seen[s.Action.OnFailureStep]
		if !ok {
			return fmt.Errorf("workflow %q: step %q on_failure_step references unknown step %q", d.Name, s.ID, s.Action.OnFailureStep)
		}
		if target <= i {
			return fmt.Errorf("workflow %q: step %q on_failure_step %q is not a forward jump", d.Name, s.ID, s.Action.OnFailureStep)
		}
	}
	return nil
}
