// Package runtime implements the Workflow Engine: the single-threaded
// cooperative step loop over a workflow document (spec.md §4.D).
package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/weaveflow/weaveflow/engine/approval"
	"github.com/weaveflow/weaveflow/engine/contextstore"
	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/delegate"
	"github.com/weaveflow/weaveflow/engine/match"
	"github.com/weaveflow/weaveflow/engine/module"
	"github.com/weaveflow/weaveflow/engine/obs"
	"github.com/weaveflow/weaveflow/engine/workflow"
	"github.com/weaveflow/weaveflow/pkg/logger"
)

// InjectedContextKey is the reserved namespace a delegating parent's context
// snapshot is written to in a child engine, per spec.md §4.F step 6. It must
// match delegate.ChildRunnerKey; kept as its own constant here so this
// package's Context wiring doesn't need to import engine/delegate just for
// the key name.
const InjectedContextKey = delegate.ChildRunnerKey

// Options configures a new Engine. Registry, Approvals are required;
// everything else has a usable zero value.
type Options struct {
	Registry       *module.Registry
	Approvals      *approval.Manager
	Logger         logger.Logger
	ModuleDefaults map[string]map[string]any
	Deadline       time.Time
	Interpolator   *match.Interpolator

	// EnvAllowlist names the process environment variables exposed to
	// templates under the reserved `env` Context root (spec.md §3). Only
	// names in this list are read from the process environment; anything
	// else stays invisible to a workflow document.
	EnvAllowlist []string

	// Remote delegation collaborators; only needed when the document
	// contains a `type: delegate` step.
	Cloner        delegate.Cloner
	BranchChecker delegate.BranchChecker
	ScratchRoot   string

	// InjectedContext is the parent's context snapshot for a child engine
	// spawned by the Remote Delegator; nil for a top-level run.
	InjectedContext map[string]any

	// OnComplete is invoked once, from whichever goroutine drives the
	// engine to a terminal state (Run itself, or an approval resume
	// callback firing later), with the workflow's terminal Step Result.
	OnComplete func(core.StepResult)

	// Metrics records step dispatch and approval-pending instrumentation.
	// Nil uses a no-op Metrics so callers that don't care about
	// observability never need to construct one.
	Metrics *obs.Metrics
}

// Status is the coarse outcome of a workflow run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunResult is what Run (and a resumed run) report back to the caller.
type RunResult struct {
	Status      Status
	Result      core.StepResult
	SuspendedAt string // step id, only set when Status == StatusSuspended
}

// Engine runs one workflow instance: one logical thread of execution,
// cooperative with respect to approval suspension (spec.md §5).
type Engine struct {
	doc       *workflow.Document
	registry  *module.Registry
	pool      *module.Pool
	store     *contextstore.Store
	approvals *approval.Manager
	log       logger.Logger
	interp    *match.Interpolator
	deadline  time.Time

	cloner        delegate.Cloner
	branchChecker delegate.BranchChecker
	scratchRoot   string

	moduleDefaults map[string]map[string]any
	onComplete     func(core.StepResult)
	workflowUID    core.ID
	metrics        *obs.Metrics

	ranOK bool // whether every main-list step completed ok, for on_success/on_failure routing
}

// New constructs an Engine bound to doc, seeding its Context with payload
// and, for a delegated child run, the parent's injected context snapshot.
func New(doc *workflow.Document, payload map[string]any, opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("runtime: Options.Registry is required")
	}
	if opts.Approvals == nil {
		return nil, fmt.Errorf("runtime: Options.Approvals is required")
	}

	workflowUID := core.MustNewID()
	store := contextstore.New(workflowUID, payload)
	if len(opts.EnvAllowlist) > 0 {
		env := make(map[string]string, len(opts.EnvAllowlist))
		for _, name := range opts.EnvAllowlist {
			if v, ok := os.LookupEnv(name); ok {
				env[name] = v
			}
		}
		store.SetEnv(env)
	}
	if opts.InjectedContext != nil {
		if err := store.Set(InjectedContextKey, opts.InjectedContext); err != nil {
			return nil, fmt.Errorf("runtime: failed to inject parent context: %w", err)
		}
	}

	instances := make(map[string]module.InstanceSpec, len(doc.ContextModules))
	for instanceID, ref := range doc.ContextModules {
		instances[instanceID] = module.InstanceSpec{
			ModuleName: moduleNameFromRef(ref.Module),
			Config:     ref.Config,
		}
	}
	pool, err := module.NewPool(opts.Registry, instances, opts.ModuleDefaults)
	if err != nil {
		return nil, fmt.Errorf("runtime: failed to build module pool: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.FromContext(context.Background())
	}
	interp := opts.Interpolator
	if interp == nil {
		interp = match.NewInterpolator(false)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = obs.NewDisabled()
	}

	return &Engine{
		doc:            doc,
		registry:       opts.Registry,
		pool:           pool,
		store:          store,
		approvals:      opts.Approvals,
		log:            log.With("workflow", doc.Name, "workflow_uid", workflowUID.String()),
		interp:         interp,
		deadline:       opts.Deadline,
		cloner:         opts.Cloner,
		branchChecker:  opts.BranchChecker,
		scratchRoot:    opts.ScratchRoot,
		moduleDefaults: opts.ModuleDefaults,
		onComplete:     opts.OnComplete,
		workflowUID:    workflowUID,
		metrics:        metrics,
		ranOK:          true,
	}, nil
}

// WorkflowUID returns the run's generated identifier.
func (e *Engine) WorkflowUID() core.ID { return e.workflowUID }

// moduleNameFromRef extracts the registry module name from a
// context_modules `module` field, which the document spells "<name>.<class>".
func moduleNameFromRef(ref string) string {
	if idx := strings.Index(ref, "."); idx != -1 {
		return ref[:idx]
	}
	return ref
}

// Run executes the workflow from its first step. It returns once the run
// reaches a terminal state or suspends on an approval step.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	return e.runFrom(ctx, 0)
}
