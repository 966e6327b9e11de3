package core

import (
	"fmt"
	"maps"

	"dario.cat/mergo"
	"github.com/mohae/deepcopy"
)

// Merge combines two maps, with source values overriding destination values.
// Slice values are appended rather than replaced.
func Merge[D, S ~map[string]any](dst D, src S, kind string) (D, error) {
	var zero D
	dstClone := CloneMap(dst)
	srcClone := CloneMap(src)
	if len(srcClone) > 0 {
		if err := mergo.Merge(&dstClone, srcClone, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return zero, fmt.Errorf("failed to merge %s: %w", kind, err)
		}
	}
	return dstClone, nil
}

// CloneMap creates a shallow copy of any map type with comparable keys.
// Returns an empty initialized map when src is nil to prevent nil map panics.
func CloneMap[K comparable, V any](src map[K]V) map[K]V {
	if src == nil {
		return make(map[K]V)
	}
	return maps.Clone(src)
}

// CopyMaps merges multiple maps into a new map, later maps overriding earlier ones.
func CopyMaps[K comparable, V any](srcs ...map[K]V) map[K]V {
	result := make(map[K]V)
	for _, src := range srcs {
		if src != nil {
			maps.Copy(result, src)
		}
	}
	return result
}

func deepCopyMap(m map[string]any) (map[string]any, error) {
	copiedInterface := deepcopy.Copy(m)
	copied, ok := copiedInterface.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to copy map")
	}
	return copied, nil
}

// DeepCopy returns a deep copy of v. Input and Output (and their pointer
// forms) are special-cased so the copy keeps its concrete type instead of
// collapsing into a plain map — every other type falls back to a generic
// reflect-based copy.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	switch src := any(v).(type) {
	case Input:
		return deepCopyKeyed[T](map[string]any(src), zero, func(m map[string]any) any { return Input(m) })
	case Output:
		return deepCopyKeyed[T](map[string]any(src), zero, func(m map[string]any) any { return Output(m) })
	case *Input:
		if src == nil || *src == nil {
			return zero, nil
		}
		return deepCopyKeyed[T](map[string]any(*src), zero, func(m map[string]any) any { i := Input(m); return &i })
	case *Output:
		if src == nil || *src == nil {
			return zero, nil
		}
		return deepCopyKeyed[T](map[string]any(*src), zero, func(m map[string]any) any { o := Output(m); return &o })
	default:
		copied := deepcopy.Copy(v)
		result, ok := copied.(T)
		if !ok {
			return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
		}
		return result, nil
	}
}

// deepCopyKeyed copies a map[string]any-backed value and reconstructs it via wrap.
func deepCopyKeyed[T any](m map[string]any, zero T, wrap func(map[string]any) any) (T, error) {
	if m == nil {
		return zero, nil
	}
	copied, err := deepCopyMap(m)
	if err != nil {
		return zero, fmt.Errorf("failed to deep copy value: %w", err)
	}
	result, ok := wrap(copied).(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}
