// Package delegate implements the Remote Delegator: it clones a workflow
// repository into scratch storage and hands the nested workflow document to
// a child engine, injecting the parent's context under a reserved key.
package delegate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/match"
)

// ChildRunnerKey is the reserved context namespace the parent's context
// snapshot is injected under when the child engine runs.
const ChildRunnerKey = "parent"

// RunCondition is one entry of run_conditions: {path, operator, value},
// evaluated against the parent workflow's context.
type RunCondition = match.Condition

// ChildRunner executes a cloned workflow document as a nested engine run.
// Implemented by engine/runtime and injected here rather than imported
// directly, so engine/delegate never depends on the step-loop package that
// in turn depends on engine/delegate for the `delegate` step type.
type ChildRunner func(ctx context.Context, req ChildRunRequest) (core.StepResult, error)

// ChildRunRequest carries everything a ChildRunner needs to execute the
// cloned workflow document as an independent child engine.
type ChildRunRequest struct {
	WorkflowPath    string
	Payload         map[string]any
	InjectedContext map[string]any
}

// Params is the `type: delegate` step's configuration, spec.md §4.F.
type Params struct {
	Repo           string
	Branch         string
	Path           string
	Token          string
	RunConditions  []RunCondition
	ConditionLogic string
}

// Delegator runs the Remote Delegator flow: evaluate run_conditions, clone,
// hand off to the child runner, and clean up the scratch directory.
type Delegator struct {
	cloner        Cloner
	branchChecker BranchChecker
	childRunner   ChildRunner
	scratchRoot   string
}

// New builds a Delegator. branchChecker may be nil to skip the GitHub
// preflight. scratchRoot empty uses the OS default temp directory.
func New(cloner Cloner, branchChecker BranchChecker, childRunner ChildRunner, scratchRoot string) *Delegator {
	return &Delegator{
		cloner:        cloner,
		branchChecker: branchChecker,
		childRunner:   childRunner,
		scratchRoot:   scratchRoot,
	}
}

// Run executes the full delegation flow for one `type: delegate` step.
func (d *Delegator) Run(ctx context.Context, params Params, env map[string]any, payload map[string]any, injectedContext map[string]any) core.StepResult {
	shouldRun, err := d.evaluateRunConditions(params, env)
	if err != nil {
		return core.Fail(fmt.Sprintf("delegate: invalid run_conditions: %s", err))
	}
	if !shouldRun {
		return core.Skipped()
	}

	if d.branchChecker != nil {
		if ok, err := d.branchChecker.BranchExists(ctx, params.Repo, params.Branch, params.Token); err != nil {
			return core.Fail(fmt.Sprintf("delegate: %s", err))
		} else if !ok {
			return core.Fail(fmt.Sprintf("delegate: branch %q not found on %s", params.Branch, params.Repo))
		}
	}

	scratchDir, err := os.MkdirTemp(d.scratchRoot, "weaveflow-delegate-*")
	if err != nil {
		return core.Fail(fmt.Sprintf("delegate: failed to allocate scratch directory: %s", err))
	}
	defer d.cleanup(scratchDir)

	if err := d.cloner.Clone(ctx, params.Repo, params.Branch, scratchDir, params.Token); err != nil {
		return core.Fail(err.Error())
	}

	workflowPath, err := resolveWorkflowPath(scratchDir, params.Path)
	if err != nil {
		return core.Fail(err.Error())
	}

	if d.childRunner == nil {
		return core.Fail("delegate: no child runner configured")
	}

	result, err := d.childRunner(ctx, ChildRunRequest{
		WorkflowPath:    workflowPath,
		Payload:         payload,
		InjectedContext: injectedContext,
	})
	if err != nil {
		return core.Fail(fmt.Sprintf("delegate: child workflow failed: %s", err))
	}
	return result
}

func (d *Delegator) cleanup(dir string) {
	_ = os.RemoveAll(dir)
}

func resolveWorkflowPath(scratchDir, path string) (string, error) {
	full := filepath.Join(scratchDir, path)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("delegate: workflow not found at %s: %w", path, err)
	}
	return full, nil
}

func (d *Delegator) evaluateRunConditions(params Params, env map[string]any) (bool, error) {
	if len(params.RunConditions) == 0 {
		return true, nil
	}

	results := make([]bool, len(params.RunConditions))
	for i, cond := range params.RunConditions {
		value, ok := match.ExtractPath(env, cond.Path)
		result, err := match.EvalOperator(cond.Operator, value, ok, cond.Value)
		if err != nil {
			return false, fmt.Errorf("run_conditions[%d]: %w", i, err)
		}
		results[i] = result
	}

	var logic *ConditionLogic
	var err error
	if params.ConditionLogic == "" {
		logic = DefaultConditionLogic(len(results))
	} else {
		logic, err = ParseConditionLogic(params.ConditionLogic, len(results))
		if err != nil {
			return false, err
		}
	}
	return logic.Eval(results)
}
