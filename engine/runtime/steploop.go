package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/weaveflow/weaveflow/engine/contextstore"
	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/delegate"
	"github.com/weaveflow/weaveflow/engine/match"
	"github.com/weaveflow/weaveflow/engine/workflow"
)

// stepStatus is the step loop's internal verdict for one step, distinct from
// core.StepStatus: it also has to distinguish "skipped by when" (never
// dispatched) from "skipped by the delegate step itself" and "suspended"
// from any other terminal outcome.
type stepStatus int

const (
	stepOK stepStatus = iota
	stepSkipped
	stepSuspended
	stepFailedTerminal
)

type stepOutcome struct {
	status stepStatus
	result core.StepResult
}

// runFrom is the step loop: it walks e.doc.Steps starting at startIndex,
// dispatching each, until the list is exhausted, a step suspends, or a step
// fails terminally and failure handling routes to a stop.
func (e *Engine) runFrom(ctx context.Context, startIndex int) (RunResult, error) {
	for index := startIndex; index < len(e.doc.Steps); {
		step := e.doc.Steps[index]

		if !e.deadline.IsZero() && time.Now().After(e.deadline) {
			result := core.Timeout(fmt.Sprintf("workflow deadline exceeded before step %q", step.ID))
			e.writeStepResult(step, result)
			e.ranOK = false
			return e.handleFailure(ctx, step, index, result)
		}

		outcome, err := e.executeStep(ctx, step)
		if err != nil {
			return RunResult{}, err
		}

		switch outcome.status {
		case stepSkipped:
			e.writeStepResult(step, core.Skipped())
			index++
		case stepSuspended:
			return e.suspend(step, index, outcome.result)
		case stepFailedTerminal:
			e.writeStepResult(step, outcome.result)
			e.ranOK = false
			return e.handleFailure(ctx, step, index, outcome.result)
		case stepOK:
			e.writeStepResult(step, outcome.result)
			index++
		}
	}
	return e.complete(ctx), nil
}

// executeStep evaluates the step's `when` gate and, if it passes, dispatches
// it according to its type. It never mutates e.store directly; the caller
// decides how the outcome is recorded.
func (e *Engine) executeStep(ctx context.Context, step workflow.Step) (stepOutcome, error) {
	if step.When != nil {
		snapshot, err := e.store.GetAll()
		if err != nil {
			return stepOutcome{}, err
		}
		if !match.Eval(e.log, *step.When, snapshot) {
			return stepOutcome{status: stepSkipped}, nil
		}
	}

	switch step.Type {
	case workflow.StepBranch:
		return stepOutcome{status: stepOK, result: core.OK(nil)}, nil
	case workflow.StepAction:
		return e.executeAction(ctx, step)
	case workflow.StepApproval:
		return e.executeApproval(step)
	case workflow.StepDelegate:
		return e.executeDelegate(ctx, step)
	default:
		return stepOutcome{}, fmt.Errorf("runtime: step %q has unknown type %q", step.ID, step.Type)
	}
}

func (e *Engine) executeAction(ctx context.Context, step workflow.Step) (stepOutcome, error) {
	action := step.Action
	snapshot, err := e.store.GetAll()
	if err != nil {
		return stepOutcome{}, err
	}

	rendered, err := e.interp.Render(action.Input, snapshot)
	if err != nil {
		return stepOutcome{
			status: stepFailedTerminal,
			result: core.Fail(fmt.Sprintf("step %q: failed to interpolate input: %s", step.ID, err)),
		}, nil
	}
	args, _ := rendered.(map[string]any)
	if args == nil {
		args = map[string]any{}
	}

	instanceID, method, err := resolveActionTarget(action.Action)
	if err != nil {
		return stepOutcome{status: stepFailedTerminal, result: core.Fail(err.Error())}, nil
	}
	instance, m, ok := e.pool.Get(instanceID)
	if !ok {
		return stepOutcome{
			status: stepFailedTerminal,
			result: core.Fail(fmt.Sprintf("step %q: unknown context module instance %q", step.ID, instanceID)),
		}, nil
	}

	start := time.Now()
	result, attempts := dispatchWithRetry(ctx, instance, m, method, args, action.Retry)
	e.metrics.RecordDispatch(ctx, instanceID, method, string(result.Status), time.Since(start).Seconds())
	e.log.Debug("step dispatched", "step", step.ID, "action", action.Action, "attempts", attempts, "status", string(result.Status))

	switch {
	case result.Status == core.StatusWaitingForInput:
		return stepOutcome{status: stepSuspended, result: result}, nil
	case result.IsTerminalFailure(), result.Status == core.StatusFail:
		return stepOutcome{status: stepFailedTerminal, result: result}, nil
	default:
		return stepOutcome{status: stepOK, result: result}, nil
	}
}

func (e *Engine) executeApproval(step workflow.Step) (stepOutcome, error) {
	approval := step.Approval
	timeout := time.Duration(approval.TimeoutMinutes * float64(time.Minute))
	formURL, err := e.approvals.Create(e.workflowUID.String(), step.ID, approval.Form, approval.Assignees, timeout)
	if err != nil {
		return stepOutcome{status: stepFailedTerminal, result: core.Fail(err.Error())}, nil
	}
	e.metrics.ApprovalOpened()
	return stepOutcome{status: stepSuspended, result: core.WaitingForInput(map[string]any{"form_url": formURL})}, nil
}

func (e *Engine) executeDelegate(ctx context.Context, step workflow.Step) (stepOutcome, error) {
	d := step.Delegate
	snapshot, err := e.store.GetAll()
	if err != nil {
		return stepOutcome{}, err
	}
	payload, _ := snapshot[contextstore.NamespacePayload].(map[string]any)

	delegator := delegate.New(e.cloner, e.branchChecker, e.childRunner(), e.scratchRoot)
	params := delegate.Params{
		Repo:           d.Repo,
		Branch:         d.Branch,
		Path:           d.Path,
		Token:          d.Token,
		RunConditions:  d.RunConditions,
		ConditionLogic: d.ConditionLogic,
	}
	result := delegator.Run(ctx, params, snapshot, payload, snapshot)

	switch {
	case result.Status == core.StatusSkipped:
		return stepOutcome{status: stepSkipped}, nil
	case result.IsTerminalFailure(), result.Status == core.StatusFail:
		return stepOutcome{status: stepFailedTerminal, result: result}, nil
	default:
		return stepOutcome{status: stepOK, result: result}, nil
	}
}

// suspend registers a one-shot resume callback for the paused step and
// returns a Suspended RunResult to the caller that invoked Run/runFrom.
func (e *Engine) suspend(step workflow.Step, index int, pending core.StepResult) (RunResult, error) {
	formURL, _ := pending.Data["form_url"].(string)
	e.approvals.RegisterResumeCallback(e.workflowUID.String(), func(result core.StepResult) {
		e.onResume(step, index, formURL, result)
	})
	return RunResult{Status: StatusSuspended, SuspendedAt: step.ID, Result: pending}, nil
}

// onResume fires from the approval manager, possibly on a goroutine far
// removed from the one that called Run. A timeout routes through the same
// failure handling as any other terminal step failure; a submission writes
// the form data under the step's own result and resumes the loop.
func (e *Engine) onResume(step workflow.Step, index int, formURL string, result core.StepResult) {
	ctx := context.Background()
	e.metrics.ApprovalResolved()

	if result.IsTerminalFailure() {
		e.writeStepResult(step, result)
		e.ranOK = false
		if _, err := e.handleFailure(ctx, step, index, result); err != nil {
			e.log.Error("approval timeout failure handling errored", "step", step.ID, "error", err)
		}
		return
	}

	resumed := core.OK(map[string]any{"form_url": formURL, "form_data": result.Data})
	e.writeStepResult(step, resumed)

	if _, err := e.runFrom(ctx, index+1); err != nil {
		e.log.Error("resuming after approval submission errored", "step", step.ID, "error", err)
	}
}

// handleFailure implements spec.md §4.D step 5: jump to on_failure_step if
// the failed step names one, else run global_failure_handler once, else the
// workflow is simply marked failed. Either branch ends in complete().
func (e *Engine) handleFailure(ctx context.Context, step workflow.Step, index int, reason core.StepResult) (RunResult, error) {
	if step.Type == workflow.StepAction && step.Action != nil && step.Action.OnFailureStep != "" {
		target, ok := e.doc.StepByID(step.Action.OnFailureStep)
		if !ok {
			return RunResult{}, fmt.Errorf("runtime: step %q on_failure_step %q not found", step.ID, step.Action.OnFailureStep)
		}
		return e.runFrom(ctx, e.indexOf(target.ID))
	}

	if e.doc.GlobalFailureHandler != nil {
		handler := *e.doc.GlobalFailureHandler
		outcome, err := e.executeStep(ctx, handler)
		if err != nil {
			e.log.Error("global failure handler errored", "error", err)
		} else {
			e.writeStepResult(handler, outcome.result)
		}
	}

	_ = reason
	return e.complete(ctx), nil
}

// complete runs the on_success or on_failure branch (whichever applies) and
// disposes the run's module pool, since the workflow has reached a terminal
// state.
func (e *Engine) complete(ctx context.Context) RunResult {
	branch := e.doc.OnSuccess
	if !e.ranOK {
		branch = e.doc.OnFailure
	}
	if branch != nil {
		for _, step := range branch.Steps {
			outcome, err := e.executeStep(ctx, step)
			if err != nil {
				e.log.Error("branch step errored", "step", step.ID, "error", err)
				e.ranOK = false
				break
			}
			if outcome.status == stepSuspended {
				e.log.Error("approval steps are not supported inside on_success/on_failure branches", "step", step.ID)
				e.ranOK = false
				break
			}
			e.writeStepResult(step, outcome.result)
			if outcome.status == stepFailedTerminal {
				e.ranOK = false
				break
			}
		}
	}

	final := core.OK(nil)
	if !e.ranOK {
		final = core.Fail("workflow failed")
	}
	return e.finish(final)
}

// finish disposes the module pool, invokes OnComplete, and shapes the
// caller-facing RunResult.
func (e *Engine) finish(result core.StepResult) RunResult {
	if err := e.pool.Dispose(); err != nil {
		e.log.Error("failed to dispose module pool", "error", err)
	}
	if e.onComplete != nil {
		e.onComplete(result)
	}
	status := StatusCompleted
	if result.Status == core.StatusFail || result.IsTerminalFailure() {
		status = StatusFailed
	}
	return RunResult{Status: status, Result: result}
}

// writeStepResult records a step's result under register_as (action steps
// only) or the step's own id, warning on an overwrite so a document that
// reuses a register_as key doesn't silently lose a prior result.
func (e *Engine) writeStepResult(step workflow.Step, result core.StepResult) {
	key := step.ID
	if step.Type == workflow.StepAction && step.Action != nil && step.Action.RegisterAs != "" {
		key = step.Action.RegisterAs
	}
	if _, exists := e.store.Get(contextstore.NamespaceSteps + "." + key); exists {
		e.log.Warn("step result key already written by an earlier step, overwriting", "key", key, "step", step.ID)
	}
	e.store.SetStep(key, result)
}

func (e *Engine) indexOf(stepID string) int {
	for i, s := range e.doc.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return len(e.doc.Steps)
}
