package match

import (
	"fmt"
)

// Condition is a single `when` leaf: {path, operator, value}.
type Condition struct {
	Path     string   `yaml:"path" json:"path"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value" json:"value"`
}

// CompoundCondition is a `when` node: either a leaf Condition or an
// any/all compound nesting further Conditions/Compounds.
type CompoundCondition struct {
	Condition
	Any []CompoundCondition `yaml:"any,omitempty" json:"any,omitempty"`
	All []CompoundCondition `yaml:"all,omitempty" json:"all,omitempty"`
}

// IsLeaf reports whether this node is a plain {path, operator, value} clause.
func (c CompoundCondition) IsLeaf() bool {
	return len(c.Any) == 0 && len(c.All) == 0
}

// Eval evaluates the condition tree against ctx. Evaluation short-circuits
// within any/all branches. An error inside a branch degrades that branch to
// false and is logged, rather than aborting the whole evaluation — a
// malformed nested clause should skip a step, not crash the workflow.
func Eval(ctx context, cond CompoundCondition, env map[string]any) bool {
	if cond.IsLeaf() {
		ok, err := evalLeaf(cond.Condition, env)
		if err != nil {
			ctx.Warnw("when clause degraded to false", "path", cond.Path, "operator", cond.Operator, "error", err)
			return false
		}
		return ok
	}
	if len(cond.Any) > 0 {
		for _, child := range cond.Any {
			if Eval(ctx, child, env) {
				return true
			}
		}
		return false
	}
	for _, child := range cond.All {
		if !Eval(ctx, child, env) {
			return false
		}
	}
	return true
}

// context is the minimal logging surface Eval needs. Any logger exposing a
// Warnw method (charmbracelet/log's sugared wrapper included) satisfies it,
// so this package doesn't need to import the logging stack directly.
type context interface {
	Warnw(msg string, keysAndValues ...any)
}

// NopLogger satisfies context for callers (and tests) that don't care about
// degraded-branch diagnostics.
type NopLogger struct{}

func (NopLogger) Warnw(string, ...any) {}

var _ context = NopLogger{}

func evalLeaf(c Condition, env map[string]any) (bool, error) {
	value, ok := ExtractPath(env, c.Path)
	if c.Operator == "" {
		return false, fmt.Errorf("condition on path %q has no operator", c.Path)
	}
	return EvalOperator(c.Operator, value, ok, c.Value)
}
