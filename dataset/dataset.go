// Package dataset holds the tabular input of an analysis session: the
// immutable Dataset, delimited-text ingestion and per-column profiling.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Dataset is an ordered set of named columns over rows of raw string
// values. It is immutable once constructed; accessors return copies.
type Dataset struct {
	name    string
	columns []string
	rows    [][]string
	index   map[string]int
}

// New builds a Dataset from a header and rows. Column names must be unique
// and non-empty, and every row must have one value per column. The inputs
// are copied.
func New(name string, columns []string, rows [][]string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset has no columns")
	}

	index := make(map[string]int, len(columns))
	cols := make([]string, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, errors.NewValidationError("columns", "column name must not be empty", i)
		}
		if _, dup := index[c]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", c)
		}
		index[c] = i
		cols[i] = c
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, errors.NewDimensionError("dataset.New", len(cols), len(r), 1)
		}
		data[i] = append([]string(nil), r...)
	}

	return &Dataset{name: name, columns: cols, rows: data, index: index}, nil
}

// Name returns the source name the dataset was loaded from.
func (d *Dataset) Name() string { return d.name }

// Columns returns the column names in file order.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.columns) }

// HasColumn reports whether name is a column of d.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns a copy of the values of the named column.
func (d *Dataset) Column(name string) ([]string, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, errors.NewMissingColumnsError([]string{name})
	}
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[j]
	}
	return out, nil
}

// ColumnAt returns the values of the named column restricted to rows, in
// the given order.
func (d *Dataset) ColumnAt(name string, rows []int) ([]string, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, errors.NewMissingColumnsError([]string{name})
	}
	out := make([]string, len(rows))
	for k, i := range rows {
		if i < 0 || i >= len(d.rows) {
			return nil, errors.NewValueError("dataset.ColumnAt", "row index out of range: "+strconv.Itoa(i))
		}
		out[k] = d.rows[i][j]
	}
	return out, nil
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []string {
	return append([]string(nil), d.rows[i]...)
}

// MissingColumns returns the names in required that d does not have, in
// the order given.
func (d *Dataset) MissingColumns(required []string) []string {
	var missing []string
	for _, c := range required {
		if !d.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(v string) bool {
	return strings.TrimSpace(v) == ""
}

// ParseNumber parses a raw cell as a finite float.
func ParseNumber(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseNumbers parses every cell, using NaN for missing or non-numeric
// values so that positions stay aligned with the rows.
func ParseNumbers(values []string) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if f, ok := ParseNumber(v); ok {
			out[i] = f
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
