// Package stats implements the descriptive statistics and correlation
// diagnostics of the analysis pipeline on top of gonum.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-studio/core/parallel"
	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

const (
	// DefaultHighCorrelation is the |r| above which a pair is flagged.
	DefaultHighCorrelation = 0.7

	minPearsonPairs = 3
	// pairs computed sequentially below this count
	parallelPairThreshold = 64
)

// Pearson returns the Pearson correlation of xs and ys over the positions
// where both values are finite. It returns 0 when fewer than three such
// pairs exist or when either variable is constant over them.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	fx := make([]float64, 0, n)
	fy := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if errors.IsFinite(xs[i]) && errors.IsFinite(ys[i]) {
			fx = append(fx, xs[i])
			fy = append(fy, ys[i])
		}
	}
	if len(fx) < minPearsonPairs || isConstant(fx) || isConstant(fy) {
		return 0
	}

	r := stat.Correlation(fx, fy, nil)
	if !errors.IsFinite(r) {
		return 0
	}
	return errors.ClipValue(r, -1, 1)
}

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// Pair is a correlation between two columns.
type Pair struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// CorrelationMatrix is a symmetric Pearson matrix over numeric columns.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
	// Excluded lists input columns that failed the numeric threshold.
	Excluded []string `json:"excluded,omitempty"`
	// HighlyCorrelated holds the off-diagonal pairs with |r| above the
	// threshold, sorted by descending |r|.
	HighlyCorrelated []Pair `json:"highlyCorrelated"`
}

// At returns the correlation between two named columns.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// Clone returns a deep copy of m.
func (m *CorrelationMatrix) Clone() *CorrelationMatrix {
	if m == nil {
		return nil
	}
	out := &CorrelationMatrix{
		Columns:          append([]string(nil), m.Columns...),
		Values:           make([][]float64, len(m.Values)),
		Excluded:         append([]string(nil), m.Excluded...),
		HighlyCorrelated: append([]Pair(nil), m.HighlyCorrelated...),
	}
	for i, row := range m.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return out
}

// CorrelationOptions controls ComputeCorrelationMatrix.
type CorrelationOptions struct {
	// SampleSize and NumericThreshold decide which columns are numeric,
	// as in dataset.IsNumericSample.
	SampleSize       int
	NumericThreshold float64
	// HighThreshold is the |r| above which a pair is flagged.
	HighThreshold float64
}

// DefaultCorrelationOptions returns the standard thresholds.
func DefaultCorrelationOptions() CorrelationOptions {
	return CorrelationOptions{
		SampleSize:       dataset.DefaultSampleSize,
		NumericThreshold: dataset.DefaultNumericThreshold,
		HighThreshold:    DefaultHighCorrelation,
	}
}

// ComputeCorrelationMatrix correlates every pair of numeric columns.
// names and columns are parallel; each column holds raw cell values for
// the same rows.
func ComputeCorrelationMatrix(names []string, columns [][]string, opt CorrelationOptions) (*CorrelationMatrix, error) {
	if len(names) != len(columns) {
		return nil, errors.NewDimensionError("ComputeCorrelationMatrix", len(names), len(columns), 1)
	}

	m := &CorrelationMatrix{HighlyCorrelated: []Pair{}}
	var parsed [][]float64
	for i, name := range names {
		if !dataset.IsNumericSample(columns[i], opt.SampleSize, opt.NumericThreshold) {
			m.Excluded = append(m.Excluded, name)
			continue
		}
		m.Columns = append(m.Columns, name)
		parsed = append(parsed, dataset.ParseNumbers(columns[i]))
	}

	n := len(m.Columns)
	m.Values = make([][]float64, n)
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}

	type cell struct{ i, j int }
	cells := make([]cell, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cells = append(cells, cell{i, j})
		}
	}
	parallel.ParallelizeWithThreshold(len(cells), parallelPairThreshold, func(start, end int) {
		for _, c := range cells[start:end] {
			r := Pearson(parsed[c.i], parsed[c.j])
			m.Values[c.i][c.j] = r
			m.Values[c.j][c.i] = r
		}
	})

	for _, c := range cells {
		r := m.Values[c.i][c.j]
		if math.Abs(r) > opt.HighThreshold {
			m.HighlyCorrelated = append(m.HighlyCorrelated, Pair{A: m.Columns[c.i], B: m.Columns[c.j], R: r})
		}
	}
	sort.SliceStable(m.HighlyCorrelated, func(a, b int) bool {
		return math.Abs(m.HighlyCorrelated[a].R) > math.Abs(m.HighlyCorrelated[b].R)
	})
	return m, nil
}
