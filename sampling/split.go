// Package sampling partitions dataset rows into reproducible train and test
// sets.
package sampling

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

const (
	// DefaultMinPartition is the row count a partition must exceed.
	DefaultMinPartition = 5
	// DefaultMaxStrata is the largest number of target classes for which a
	// stratified split is performed.
	DefaultMaxStrata = 10
)

// Options controls Split.
type Options struct {
	Ratio        float64 // share of rows assigned to training, in (0, 1)
	Stratify     bool
	Seed         int64
	MinPartition int
	MaxStrata    int
}

// DefaultOptions returns an 80/20 stratified split with seed 42.
func DefaultOptions() Options {
	return Options{
		Ratio:        0.8,
		Stratify:     true,
		Seed:         42,
		MinPartition: DefaultMinPartition,
		MaxStrata:    DefaultMaxStrata,
	}
}

// Result is a partition of row indices. Train and Test are disjoint and
// together cover every row.
type Result struct {
	Train             []int   `json:"train"`
	Test              []int   `json:"test"`
	Ratio             float64 `json:"ratio"`
	Stratified        bool    `json:"stratified"`
	StratifyRequested bool    `json:"stratifyRequested"`
	Seed              int64   `json:"seed"`
	Note              string  `json:"note,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Train = append([]int(nil), r.Train...)
	c.Test = append([]int(nil), r.Test...)
	return &c
}

// Size returns the number of rows covered by the split.
func (r *Result) Size() int { return len(r.Train) + len(r.Test) }

// Split shuffles row indices with a generator seeded by opt.Seed and
// assigns floor(n*ratio) rows to training. With stratification each class
// contributes floor(size*ratio) of its rows to training. Stratification is
// skipped, with a note, when the target has one class or more than
// opt.MaxStrata classes. The same labels and options always give the same
// partition.
func Split(labels []string, opt Options) (*Result, error) {
	if opt.Ratio <= 0 || opt.Ratio >= 1 {
		return nil, errors.NewValidationError("ratio", "must be in (0, 1)", opt.Ratio)
	}
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "split")
	}
	if opt.MinPartition <= 0 {
		opt.MinPartition = DefaultMinPartition
	}
	if opt.MaxStrata <= 0 {
		opt.MaxStrata = DefaultMaxStrata
	}

	n := len(labels)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(opt.Seed), uint64(opt.Seed)))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	res := &Result{Ratio: opt.Ratio, StratifyRequested: opt.Stratify, Seed: opt.Seed}

	if opt.Stratify {
		groups, order := groupByLabel(labels, indices)
		switch {
		case len(order) <= 1:
			res.Note = "stratification skipped: target has a single class; used a random split"
		case len(order) > opt.MaxStrata:
			res.Note = fmt.Sprintf("stratification skipped: target has %d classes (max %d); used a random split", len(order), opt.MaxStrata)
		default:
			res.Stratified = true
			for _, label := range order {
				g := groups[label]
				cut := int(float64(len(g)) * opt.Ratio)
				res.Train = append(res.Train, g[:cut]...)
				res.Test = append(res.Test, g[cut:]...)
			}
		}
	}

	if !res.Stratified {
		cut := int(float64(n) * opt.Ratio)
		res.Train = append([]int(nil), indices[:cut]...)
		res.Test = append([]int(nil), indices[cut:]...)
	}

	if len(res.Train) <= opt.MinPartition {
		return nil, errors.NewInsufficientDataError("train", len(res.Train), opt.MinPartition)
	}
	if len(res.Test) <= opt.MinPartition {
		return nil, errors.NewInsufficientDataError("test", len(res.Test), opt.MinPartition)
	}
	return res, nil
}

// groupByLabel buckets shuffled indices by label, keeping the shuffled
// order within each bucket and ordering buckets by first appearance.
func groupByLabel(labels []string, shuffled []int) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for _, i := range shuffled {
		l := labels[i]
		if _, ok := groups[l]; !ok {
			order = append(order, l)
		}
		groups[l] = append(groups[l], i)
	}
	return groups, order
}
