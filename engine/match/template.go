package match

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches a single `${...}` token; the captured group is the
// gjson path.
var placeholderRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolator substitutes `${path}` placeholders against a context snapshot.
// It deliberately does not reuse Go's text/template: the spec's placeholder
// grammar is a single-token path reference, not a general template language,
// so a small regex-driven substitution is the right-sized tool and keeps
// missing-path/strict-mode behavior under direct control.
type Interpolator struct {
	// StrictTemplating, when true, turns a missing path into an error instead
	// of substituting an empty string / null.
	StrictTemplating bool
}

// NewInterpolator returns an Interpolator with the given strictness.
func NewInterpolator(strict bool) *Interpolator {
	return &Interpolator{StrictTemplating: strict}
}

// Render walks v recursively, interpolating any string value found along the
// way and descending into maps and slices.
func (it *Interpolator) Render(v any, ctx map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return it.renderString(val, ctx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			rendered, err := it.Render(child, ctx)
			if err != nil {
				return nil, fmt.Errorf("rendering key %q: %w", k, err)
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			rendered, err := it.Render(child, ctx)
			if err != nil {
				return nil, fmt.Errorf("rendering index %d: %w", i, err)
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

// renderString implements the spec's whole-string-vs-embedded rule: a string
// that is exactly one `${path}` token substitutes the raw typed value
// (preserving numbers, booleans, objects); a string with embedded
// placeholders stringifies each substitution in place.
func (it *Interpolator) renderString(s string, ctx map[string]any) (any, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		path := strings.TrimSpace(s[matches[0][2]:matches[0][3]])
		value, ok := ExtractPath(ctx, path)
		if !ok {
			if it.StrictTemplating {
				return nil, fmt.Errorf("template path %q did not resolve", path)
			}
			return nil, nil
		}
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end, pathStart, pathEnd := m[0], m[1], m[2], m[3]
		b.WriteString(s[last:start])
		path := strings.TrimSpace(s[pathStart:pathEnd])
		value, ok := ExtractPath(ctx, path)
		if !ok {
			if it.StrictTemplating {
				return nil, fmt.Errorf("template path %q did not resolve", path)
			}
			last = end
			continue
		}
		b.WriteString(stringifyForEmbedding(value))
		last = end
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func stringifyForEmbedding(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64, int, int64, bool:
		return fmt.Sprintf("%v", s)
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(data)
	}
}
