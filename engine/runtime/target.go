package runtime

import (
	"fmt"
	"strings"
)

// resolveActionTarget splits an action string ("<instance>.<method>" or
// "context.<ctxid>.<method>") into the context_modules instance id and the
// method to invoke on it. Both forms address the same instance namespace;
// the "context." prefix is purely a readability convention in the document.
func resolveActionTarget(action string) (instanceID, method string, err error) {
	trimmed := strings.TrimPrefix(action, "context.")
	idx := strings.LastIndex(trimmed, ".")
	if idx <= 0 || idx == len(trimmed)-1 {
		return "", "", fmt.Errorf("runtime: malformed action target %q, expected \"<instance>.<method>\"", action)
	}
	return trimmed[:idx], trimmed[idx+1:], nil
}
