package module

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
)

// Dispatch implements the invocation contract from spec.md §4.C:
//  1. look up method on the manifest; absent → fail "unknown method"
//  2. check required arguments are present; missing → fail with the missing set
//  3. call the method with args
//  4. forward a Step-Result-shaped return value; wrap anything else as ok;
//     wrap an error as fail
func Dispatch(ctx context.Context, instance Module, m manifest.Manifest, method string, args map[string]any) core.StepResult {
	descriptor, ok := m.Method(method)
	if !ok {
		return core.Fail(fmt.Sprintf("unknown method %q on module %q", method, m.Name))
	}
	if missing := descriptor.MissingRequired(args); len(missing) > 0 {
		sort.Strings(missing)
		return core.Fail(fmt.Sprintf("missing required arguments for %s.%s: %s", m.Name, method, strings.Join(missing, ", ")))
	}

	result, err := instance.Invoke(ctx, method, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.Timeout(err.Error())
		}
		return core.Fail(err.Error())
	}
	return normalize(result)
}

func normalize(result any) core.StepResult {
	switch v := result.(type) {
	case core.StepResult:
		return v
	case *core.StepResult:
		if v == nil {
			return core.OK(nil)
		}
		return *v
	case map[string]any:
		return core.OK(v)
	case nil:
		return core.OK(nil)
	default:
		return core.OK(map[string]any{"value": v})
	}
}
