package runtime

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
	"github.com/weaveflow/weaveflow/engine/module"
	"github.com/weaveflow/weaveflow/engine/workflow"
)

// backoffFor builds the inter-attempt backoff for a RetryPolicy. "linear" (or
// an unset strategy) waits a constant backoff_seconds between attempts;
// "exponential" doubles it each attempt. The engine's own loop counts
// attempts, since backoff.Retry's internal loop can't be made to stop at an
// exact n without an extra attempt counter wrapping it anyway.
func backoffFor(policy *workflow.RetryPolicy) backoff.BackOff {
	var wait time.Duration
	if policy != nil && policy.BackoffSeconds > 0 {
		wait = time.Duration(policy.BackoffSeconds) * time.Second
	}
	if policy == nil || policy.Strategy != "exponential" {
		return backoff.NewConstantBackOff(wait)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = wait
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	return eb
}

// sleepContext waits d, returning early with ctx.Err() if ctx is canceled
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispatchWithRetry invokes method on instance up to policy's max_attempts
// times, retrying only on a `fail` Step Result. `timeout` is immediately
// terminal and short-circuits the loop, per spec.md §4.D step 4.
func dispatchWithRetry(
	ctx context.Context,
	instance module.Module,
	m manifest.Manifest,
	method string,
	args map[string]any,
	policy *workflow.RetryPolicy,
) (core.StepResult, int) {
	maxAttempts := 1
	if policy != nil && policy.MaxAttempts > 0 {
		maxAttempts = policy.MaxAttempts
	}
	b := backoffFor(policy)

	var result core.StepResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = module.Dispatch(ctx, instance, m, method, args)
		if result.Status != core.StatusFail {
			return result, attempt
		}
		if attempt == maxAttempts {
			return result, attempt
		}
		if err := sleepContext(ctx, b.NextBackOff()); err != nil {
			return result, attempt
		}
	}
	return result, maxAttempts
}
