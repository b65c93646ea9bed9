package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/scigo-studio/dataset"
)

// TargetClasses returns the distinct non-missing target values in a stable
// order: numerically when every value parses as a number, otherwise
// lexicographically. In a binary problem the second class is positive.
func TargetClasses(values []string) []string {
	seen := make(map[string]struct{})
	var classes []string
	numeric := true
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
		if _, ok := dataset.ParseNumber(v); !ok {
			numeric = false
		}
	}

	sort.SliceStable(classes, func(i, j int) bool {
		if numeric {
			a, _ := dataset.ParseNumber(classes[i])
			b, _ := dataset.ParseNumber(classes[j])
			if a != b {
				return a < b
			}
		}
		return classes[i] < classes[j]
	})
	return classes
}

// EncodeLabels maps each value to its index in classes, or -1 when the
// value is missing or not a known class.
func EncodeLabels(classes, values []string) []int {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	out := make([]int, len(values))
	for i, v := range values {
		if k, ok := index[v]; ok {
			out[i] = k
		} else {
			out[i] = -1
		}
	}
	return out
}
