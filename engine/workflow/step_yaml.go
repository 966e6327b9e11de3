package workflow

import (
	"fmt"

	"github.com/weaveflow/weaveflow/engine/match"
	"gopkg.in/yaml.v3"
)

// rawStep mirrors every field a Step can carry, flattened, so yaml.v3 can
// decode the document's flat mapping before it gets sorted into the
// type-specific block Step.Type selects.
type rawStep struct {
	ID   string                   `yaml:"id"`
	Type StepType                 `yaml:"type"`
	When *match.CompoundCondition `yaml:"when,omitempty"`

	Action        string         `yaml:"action,omitempty"`
	Input         map[string]any `yaml:"input,omitempty"`
	Retry         *RetryPolicy   `yaml:"retry,omitempty"`
	OnFailureStep string         `yaml:"on_failure_step,omitempty"`
	RegisterAs    string         `yaml:"register_as,omitempty"`

	Form           map[string]any `yaml:"form,omitempty"`
	Assignees      []string       `yaml:"assignees,omitempty"`
	TimeoutMinutes float64        `yaml:"timeout_minutes,omitempty"`

	Repo           string            `yaml:"repo,omitempty"`
	Branch         string            `yaml:"branch,omitempty"`
	Path           string            `yaml:"path,omitempty"`
	Token          string            `yaml:"token,omitempty"`
	RunConditions  []match.Condition `yaml:"run_conditions,omitempty"`
	ConditionLogic string            `yaml:"condition_logic,omitempty"`
}

// UnmarshalYAML sorts a flat step mapping into the block matching Type.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Type = raw.Type
	s.When = raw.When
	s.Action = nil
	s.Approval = nil
	s.Delegate = nil

	switch raw.Type {
	case StepAction:
		s.Action = &ActionStep{
			Action:        raw.Action,
			Input:         raw.Input,
			Retry:         raw.Retry,
			OnFailureStep: raw.OnFailureStep,
			RegisterAs:    raw.RegisterAs,
		}
	case StepApproval:
		s.Approval = &ApprovalStep{
			Form:           raw.Form,
			Assignees:      raw.Assignees,
			TimeoutMinutes: raw.TimeoutMinutes,
		}
	case StepDelegate:
		s.Delegate = &DelegateStep{
			Repo:           raw.Repo,
			Branch:         raw.Branch,
			Path:           raw.Path,
			Token:          raw.Token,
			RunConditions:  raw.RunConditions,
			ConditionLogic: raw.ConditionLogic,
		}
	case StepBranch:
		// A branch step carries only `when`; it exists purely to gate flow.
	default:
		return fmt.Errorf("step %q: unknown step type %q", raw.ID, raw.Type)
	}
	return nil
}

// MarshalYAML flattens Step back into the shape UnmarshalYAML expects,
// used by engine/delegate's child document round-trips and by tests.
func (s Step) MarshalYAML() (any, error) {
	raw := rawStep{ID: s.ID, Type: s.Type, When: s.When}
	switch {
	case s.Action != nil:
		raw.Action = s.Action.Action
		raw.Input = s.Action.Input
		raw.Retry = s.Action.Retry
		raw.OnFailureStep = s.Action.OnFailureStep
		raw.RegisterAs = s.Action.RegisterAs
	case s.Approval != nil:
		raw.Form = s.Approval.Form
		raw.Assignees = s.Approval.Assignees
		raw.TimeoutMinutes = s.Approval.TimeoutMinutes
	case s.Delegate != nil:
		raw.Repo = s.Delegate.Repo
		raw.Branch = s.Delegate.Branch
		raw.Path = s.Delegate.Path
		raw.Token = s.Delegate.Token
		raw.RunConditions = s.Delegate.RunConditions
		raw.ConditionLogic = s.Delegate.ConditionLogic
	}
	return raw, nil
}
