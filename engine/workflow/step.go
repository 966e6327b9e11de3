package workflow

import (
	"github.com/weaveflow/weaveflow/engine/match"
)

// StepType is the Step discriminant.
type StepType string

const (
	StepAction   StepType = "action"
	StepApproval StepType = "approval"
	StepBranch   StepType = "branch"
	StepDelegate StepType = "delegate"
)

// Step is one entry of a workflow's step list. Only the block matching Type
// is populated; the engine never reads a field belonging to another type.
type Step struct {
	ID   string   `yaml:"id" json:"id"`
	Type StepType `yaml:"type" json:"type"`

	// Shared across any step type: gates whether the step dispatches at all.
	When *match.CompoundCondition `yaml:"when,omitempty" json:"when,omitempty"`

	Action   *ActionStep   `yaml:"-" json:"action,omitempty"`
	Approval *ApprovalStep `yaml:"-" json:"approval,omitempty"`
	Delegate *DelegateStep `yaml:"-" json:"delegate,omitempty"`
}

// ActionStep invokes a module method.
type ActionStep struct {
	Action        string         `yaml:"action" json:"action"`
	Input         map[string]any `yaml:"input,omitempty" json:"input,omitempty"`
	Retry         *RetryPolicy   `yaml:"retry,omitempty" json:"retry,omitempty"`
	OnFailureStep string         `yaml:"on_failure_step,omitempty" json:"on_failure_step,omitempty"`
	RegisterAs    string         `yaml:"register_as,omitempty" json:"register_as,omitempty"`
}

// RetryPolicy bounds retry attempts for a `fail` Step Result.
type RetryPolicy struct {
	MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts"`
	BackoffSeconds int    `yaml:"backoff_seconds,omitempty" json:"backoff_seconds,omitempty"`
	Strategy       string `yaml:"strategy,omitempty" json:"strategy,omitempty"` // "linear" (default) or "exponential"
}

// ApprovalStep suspends the workflow pending an external form submission.
type ApprovalStep struct {
	Form           map[string]any `yaml:"form" json:"form"`
	Assignees      []string       `yaml:"assignees,omitempty" json:"assignees,omitempty"`
	TimeoutMinutes float64        `yaml:"timeout_minutes" json:"timeout_minutes"`
}

// DelegateStep hands the step to the Remote Delegator.
type DelegateStep struct {
	Repo           string             `yaml:"repo" json:"repo"`
	Branch         string             `yaml:"branch" json:"branch"`
	Path           string             `yaml:"path" json:"path"`
	Token          string             `yaml:"token,omitempty" json:"token,omitempty"`
	RunConditions  []match.Condition  `yaml:"run_conditions,omitempty" json:"run_conditions,omitempty"`
	ConditionLogic string             `yaml:"condition_logic,omitempty" json:"condition_logic,omitempty"`
}
