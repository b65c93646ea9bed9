package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-studio/dataset"
)

const (
	// TopCategories is the number of categories kept for display.
	TopCategories = 10
	// DefaultImbalanceRatio is the max/min class proportion above which a
	// target is imbalanced.
	DefaultImbalanceRatio = 3.0
)

// NumericSummary describes a numeric column. Std is the population
// standard deviation.
type NumericSummary struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
}

// Range returns Max-Min.
func (s NumericSummary) Range() float64 { return s.Max - s.Min }

// DescribeNumeric summarises the finite values of a column. Non-finite
// entries count as missing. An all-missing column yields a zero summary.
func DescribeNumeric(values []float64) NumericSummary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	s := NumericSummary{Count: len(finite), Missing: len(values) - len(finite)}
	if len(finite) == 0 {
		return s
	}
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	s.Mean, s.Std = stat.PopMeanStdDev(finite, nil)
	if len(finite) == 1 {
		s.Std = 0
	}
	return s
}

// DescribeColumn parses raw cells and summarises them.
func DescribeColumn(raw []string) NumericSummary {
	return DescribeNumeric(dataset.ParseNumbers(raw))
}

// Frequency is the count of one category.
type Frequency struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// FrequencyTable holds category counts sorted by descending count, ties
// broken by first appearance.
type FrequencyTable struct {
	Total   int         `json:"total"`
	Missing int         `json:"missing"`
	Full    []Frequency `json:"full"`
	Top     []Frequency `json:"top"`
}

// Mode returns the most frequent category, or "" for an empty table.
func (t FrequencyTable) Mode() string {
	if len(t.Full) == 0 {
		return ""
	}
	return t.Full[0].Value
}

// DescribeCategorical counts the non-missing values of a column.
func DescribeCategorical(values []string) FrequencyTable {
	counts := make(map[string]int)
	var order []string
	t := FrequencyTable{}
	for _, v := range values {
		if dataset.IsMissing(v) {
			t.Missing++
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
		t.Total++
	}

	t.Full = make([]Frequency, len(order))
	for i, v := range order {
		t.Full[i] = Frequency{Value: v, Count: counts[v]}
		if t.Total > 0 {
			t.Full[i].Proportion = float64(counts[v]) / float64(t.Total)
		}
	}
	sort.SliceStable(t.Full, func(a, b int) bool { return t.Full[a].Count > t.Full[b].Count })

	top := len(t.Full)
	if top > TopCategories {
		top = TopCategories
	}
	t.Top = append([]Frequency(nil), t.Full[:top]...)
	return t
}

// ImbalanceReport describes the class distribution of a target.
type ImbalanceReport struct {
	Classes           []Frequency `json:"classes"`
	Ratio             float64     `json:"ratio"`
	Imbalanced        bool        `json:"imbalanced"`
	RecommendStratify bool        `json:"recommendStratify"`
}

// ClassImbalance computes the max/min class proportion ratio of target.
// A ratio above threshold marks the target imbalanced and recommends a
// stratified split. Fewer than two classes give a ratio of 1.
func ClassImbalance(target []string, threshold float64) ImbalanceReport {
	table := DescribeCategorical(target)
	r := ImbalanceReport{Classes: table.Full, Ratio: 1}
	if len(table.Full) < 2 {
		return r
	}
	maxP := table.Full[0].Proportion
	minP := table.Full[len(table.Full)-1].Proportion
	r.Ratio = maxP / minP
	r.Imbalanced = r.Ratio > threshold
	r.RecommendStratify = r.Imbalanced
	return r
}
