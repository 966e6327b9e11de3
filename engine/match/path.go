// Package match implements the reference and match engine: JSON-path lookups
// against a context snapshot, operator evaluation, `${...}` template
// interpolation, and `when`-clause condition evaluation.
package match

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ExtractPath resolves a dotted/indexed gjson path (e.g. "steps.A.data.value",
// "payload.items.0.id") against ctx. ok is false when the path does not
// resolve to any value.
func ExtractPath(ctx map[string]any, path string) (value any, ok bool) {
	if path == "" {
		return nil, false
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}
