package desk

import "maps"

// MergeFunc combines an item's current data with an update patch and
// returns the data to store. The current value is never mutated.
type MergeFunc[T any] func(current, patch T) T

// MergeReplace discards the current value and stores the patch
// wholesale. Default for non-map payloads, where partial patches are
// not expressible.
func MergeReplace[T any](_, patch T) T {
	return patch
}

// MergeMaps shallow-merges patch keys over current keys into a fresh
// map. Untouched keys are retained; nested values are shared, not
// cloned.
func MergeMaps(current, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(patch))
	maps.Copy(merged, current)
	maps.Copy(merged, patch)
	return merged
}

// defaultMerge picks the merge strategy for T: shallow map merging for
// map[string]any payloads, wholesale replacement otherwise.
func defaultMerge[T any]() MergeFunc[T] {
	var zero T
	if _, ok := any(zero).(map[string]any); ok {
		return func(current, patch T) T {
			merged := MergeMaps(any(current).(map[string]any), any(patch).(map[string]any))
			return any(merged).(T)
		}
	}
	return MergeReplace[T]
}
