package runtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveflow/weaveflow/engine/approval"
	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
	"github.com/weaveflow/weaveflow/engine/match"
	"github.com/weaveflow/weaveflow/engine/module"
	"github.com/weaveflow/weaveflow/engine/workflow"
	"github.com/weaveflow/weaveflow/pkg/logger"
)

// recorderModule counts invocations and replies with a scripted sequence of
// results, repeating the last entry once the script is exhausted.
type recorderModule struct {
	calls   int
	results []any
	errs    []error
}

func (m *recorderModule) Invoke(_ context.Context, method string, args map[string]any) (any, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.results) {
		return m.results[i], nil
	}
	if len(m.results) == 0 {
		return map[string]any{"method": method, "args": args}, nil
	}
	return m.results[len(m.results)-1], nil
}

func echoManifest(name string) manifest.Manifest {
	return manifest.Manifest{
		Name:    name,
		Class:   "test." + name,
		Version: "1.0.0",
		Methods: []manifest.MethodDescriptor{
			{Name: "run", Arguments: []manifest.ArgumentDescriptor{{Name: "message"}}},
		},
	}
}

func newTestRegistry(t *testing.T, name string, mod *recorderModule) *module.Registry {
	t.Helper()
	reg := module.NewRegistry()
	require.NoError(t, reg.RegisterManifest(echoManifest(name)))
	reg.RegisterFactory("test."+name, func(map[string]any) (module.Module, error) {
		return mod, nil
	})
	return reg
}

func testDoc(steps ...workflow.Step) *workflow.Document {
	return &workflow.Document{
		Name: "test-workflow",
		ContextModules: map[string]workflow.ContextModuleRef{
			"worker": {Module: "worker"},
		},
		Steps: steps,
	}
}

func baseOptions(reg *module.Registry) Options {
	return Options{
		Registry:  reg,
		Approvals: approval.NewManager(approval.NewMemoryStore()),
		Logger:    logger.NewLogger(logger.TestConfig()),
	}
}

func actionStep(id, onFailureStep, registerAs string) workflow.Step {
	return workflow.Step{
		ID:   id,
		Type: workflow.StepAction,
		Action: &workflow.ActionStep{
			Action:        "worker.run",
			Input:         map[string]any{"message": "hello"},
			OnFailureStep: onFailureStep,
			RegisterAs:    registerAs,
		},
	}
}

func Test_Engine_Run_LinearSuccess(t *testing.T) {
	t.Run("Should run every step in order and complete", func(t *testing.T) {
		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		doc := testDoc(actionStep("step-1", "", ""), actionStep("step-2", "", ""))

		engine, err := New(doc, map[string]any{"trigger": "manual"}, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, 2, mod.calls)
	})
}

func Test_Engine_Run_WhenSkip(t *testing.T) {
	t.Run("Should skip a step whose when clause evaluates false and still complete", func(t *testing.T) {
		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		step := actionStep("step-1", "", "")
		step.When = &match.CompoundCondition{
			Condition: match.Condition{Path: "payload.go", Operator: match.OpEquals, Value: true},
		}
		doc := testDoc(step)

		engine, err := New(doc, map[string]any{"go": false}, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, 0, mod.calls)
	})
}

func Test_Engine_Run_RetryExactAttempts(t *testing.T) {
	t.Run("Should invoke a deterministically failing step exactly max_attempts times", func(t *testing.T) {
		mod := &recorderModule{errs: []error{
			fmt.Errorf("boom"), fmt.Errorf("boom"), fmt.Errorf("boom"),
		}}
		reg := newTestRegistry(t, "worker", mod)
		step := actionStep("step-1", "", "")
		step.Action.Retry = &workflow.RetryPolicy{MaxAttempts: 3, BackoffSeconds: 0}
		doc := testDoc(step)

		engine, err := New(doc, nil, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, 3, mod.calls)
	})
}

func Test_Engine_Run_OnFailureStepJump(t *testing.T) {
	t.Run("Should jump to on_failure_step, running onward from there, but still end the run failed", func(t *testing.T) {
		mod := &recorderModule{errs: []error{fmt.Errorf("boom")}}
		reg := newTestRegistry(t, "worker", mod)
		failing := actionStep("step-1", "recovery", "")
		skippedMiddle := actionStep("step-2", "", "")
		recovery := actionStep("recovery", "", "")
		doc := testDoc(failing, skippedMiddle, recovery)

		engine, err := New(doc, nil, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		// A terminal failure anywhere marks the overall run failed even when
		// on_failure_step routes around it and the rest of the document runs
		// cleanly — spec.md §4.D step 7 gates on_success/on_failure on whether
		// *any* step terminally failed, not on where execution ended up.
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, 2, mod.calls) // step-1 (fails) + recovery; step-2 never dispatched
	})
}

func Test_Engine_Run_GlobalFailureHandler(t *testing.T) {
	t.Run("Should run the global failure handler once then mark the workflow failed", func(t *testing.T) {
		mod := &recorderModule{errs: []error{fmt.Errorf("boom")}}
		handlerMod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		require.NoError(t, reg.RegisterManifest(echoManifest("cleanup")))
		reg.RegisterFactory("test.cleanup", func(map[string]any) (module.Module, error) { return handlerMod, nil })

		doc := testDoc(actionStep("step-1", "", ""))
		doc.ContextModules["cleanup"] = workflow.ContextModuleRef{Module: "cleanup"}
		doc.GlobalFailureHandler = &workflow.Step{
			ID:   "cleanup",
			Type: workflow.StepAction,
			Action: &workflow.ActionStep{
				Action: "cleanup.run",
				Input:  map[string]any{"message": "roll back"},
			},
		}

		engine, err := New(doc, nil, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, 1, handlerMod.calls)
	})
}

func Test_Engine_Run_RegisterAsLastWriterWins(t *testing.T) {
	t.Run("Should overwrite an earlier step's register_as key with a warning", func(t *testing.T) {
		mod := &recorderModule{results: []any{
			map[string]any{"value": "first"},
			map[string]any{"value": "second"},
		}}
		reg := newTestRegistry(t, "worker", mod)
		first := actionStep("step-1", "", "shared")
		second := actionStep("step-2", "", "shared")
		doc := testDoc(first, second)

		engine, err := New(doc, nil, baseOptions(reg))
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, result.Status)

		snapshot, err := engine.store.GetAll()
		require.NoError(t, err)
		shared := snapshot["steps"].(map[string]any)["shared"].(core.StepResult)
		assert.Equal(t, "second", shared.Data["value"])
	})
}

func Test_Engine_Run_ApprovalSuspendAndSubmit(t *testing.T) {
	t.Run("Should suspend on an approval step and resume when the ticket is submitted", func(t *testing.T) {
		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		doc := testDoc(
			workflow.Step{
				ID:   "approve",
				Type: workflow.StepApproval,
				Approval: &workflow.ApprovalStep{
					Form:           map[string]any{"type": "object"},
					TimeoutMinutes: 60,
				},
			},
			actionStep("after", "", ""),
		)

		manager := approval.NewManager(approval.NewMemoryStore())
		var finalStatus core.StepStatus
		options := Options{
			Registry:  reg,
			Approvals: manager,
			Logger:    logger.NewLogger(logger.TestConfig()),
			OnComplete: func(r core.StepResult) {
				finalStatus = r.Status
			},
		}

		engine, err := New(doc, nil, options)
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSuspended, result.Status)
		assert.Equal(t, "approve", result.SuspendedAt)
		assert.Equal(t, 0, mod.calls)

		accepted, err := manager.Submit(engine.WorkflowUID().String(), map[string]any{"decision": "approve"})
		require.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, 1, mod.calls)
		assert.Equal(t, core.StatusOK, finalStatus)
	})
}

func Test_Engine_New_EnvAllowlist(t *testing.T) {
	t.Run("Should expose only allowlisted environment variables under the env root", func(t *testing.T) {
		t.Setenv("WEAVEFLOW_TEST_REGION", "us-east-1")
		t.Setenv("WEAVEFLOW_TEST_SECRET", "should-not-appear")

		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		doc := testDoc(actionStep("step-1", "", ""))

		opts := baseOptions(reg)
		opts.EnvAllowlist = []string{"WEAVEFLOW_TEST_REGION", "WEAVEFLOW_TEST_UNSET"}

		engine, err := New(doc, nil, opts)
		require.NoError(t, err)

		snapshot, err := engine.store.GetAll()
		require.NoError(t, err)
		env := snapshot["env"].(map[string]any)
		assert.Equal(t, "us-east-1", env["WEAVEFLOW_TEST_REGION"])
		_, hasSecret := env["WEAVEFLOW_TEST_SECRET"]
		assert.False(t, hasSecret)
		_, hasUnset := env["WEAVEFLOW_TEST_UNSET"]
		assert.False(t, hasUnset)
	})

	t.Run("Should leave the env root empty with no allowlist configured", func(t *testing.T) {
		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		doc := testDoc(actionStep("step-1", "", ""))

		engine, err := New(doc, nil, baseOptions(reg))
		require.NoError(t, err)

		snapshot, err := engine.store.GetAll()
		require.NoError(t, err)
		_, hasEnv := snapshot["env"]
		assert.False(t, hasEnv)
	})
}

func Test_Engine_Run_ApprovalTimeout(t *testing.T) {
	t.Run("Should fail the workflow when the approval ticket expires before submission", func(t *testing.T) {
		mod := &recorderModule{}
		reg := newTestRegistry(t, "worker", mod)
		doc := testDoc(
			workflow.Step{
				ID:   "approve",
				Type: workflow.StepApproval,
				Approval: &workflow.ApprovalStep{
					Form:           map[string]any{"type": "object"},
					TimeoutMinutes: 0,
				},
			},
			actionStep("after", "", ""),
		)

		manager := approval.NewManager(approval.NewMemoryStore())
		var finalStatus core.StepStatus
		options := Options{
			Registry:  reg,
			Approvals: manager,
			Logger:    logger.NewLogger(logger.TestConfig()),
			OnComplete: func(r core.StepResult) {
				finalStatus = r.Status
			},
		}

		engine, err := New(doc, nil, options)
		require.NoError(t, err)

		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSuspended, result.Status)

		expired, err := manager.ExpireDue(time.Now().Add(time.Millisecond))
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, 0, mod.calls)
		assert.Equal(t, core.StatusFail, finalStatus)
	})
}
