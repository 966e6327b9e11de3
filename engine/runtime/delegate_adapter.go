package runtime

import (
	"context"
	"fmt"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/delegate"
	"github.com/weaveflow/weaveflow/engine/workflow"
)

// childRunner builds the delegate.ChildRunner this engine hands to its
// Delegator for `type: delegate` steps: it loads the cloned document, runs
// it to completion as an independent child Engine sharing this run's
// registry and approval manager, and folds the child's RunResult into the
// Step Result the parent step resolves to.
func (e *Engine) childRunner() delegate.ChildRunner {
	return func(ctx context.Context, req delegate.ChildRunRequest) (core.StepResult, error) {
		schema, err := workflow.DefaultSchema()
		if err != nil {
			return core.StepResult{}, fmt.Errorf("runtime: failed to load workflow schema for child run: %w", err)
		}
		childDoc, err := workflow.Load(req.WorkflowPath, schema)
		if err != nil {
			return core.StepResult{}, err
		}

		child, err := New(childDoc, req.Payload, Options{
			Registry:        e.registry,
			Approvals:       e.approvals,
			Logger:          e.log,
			ModuleDefaults:  e.moduleDefaults,
			Interpolator:    e.interp,
			Cloner:          e.cloner,
			BranchChecker:   e.branchChecker,
			ScratchRoot:     e.scratchRoot,
			InjectedContext: req.InjectedContext,
		})
		if err != nil {
			return core.StepResult{}, err
		}

		run, err := child.Run(ctx)
		if err != nil {
			return core.StepResult{}, err
		}
		if run.Status == StatusSuspended {
			return core.Fail(fmt.Sprintf("delegated workflow %q suspended on approval step %q; nested suspension is unsupported", childDoc.Name, run.SuspendedAt)), nil
		}
		return run.Result, nil
	}
}
