package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/dataset"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

// Transform builds the feature matrix for the given rows of ds, one column
// per entry of p.Features. A nil rows slice selects every row. Missing
// values take the planned fill, unseen categories take the encoding's
// fallback code, and scaled columns use the fitted parameters.
func (p *Plan) Transform(ds *dataset.Dataset, rows []int) (*mat.Dense, error) {
	if missing := ds.MissingColumns(p.Features); len(missing) > 0 {
		return nil, errors.NewMissingColumnsError(missing)
	}
	if rows == nil {
		rows = make([]int, ds.NumRows())
		for i := range rows {
			rows[i] = i
		}
	}
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "plan transform")
	}

	X := mat.NewDense(len(rows), len(p.Features), nil)
	for j, name := range p.Features {
		raw, err := ds.ColumnAt(name, rows)
		if err != nil {
			return nil, err
		}
		col, err := p.encodeColumn(name, raw)
		if err != nil {
			return nil, err
		}
		X.SetCol(j, col)
	}

	if err := p.applyScaling(X); err != nil {
		return nil, err
	}
	return X, nil
}

func (p *Plan) encodeColumn(name string, raw []string) ([]float64, error) {
	out := make([]float64, len(raw))
	switch p.Types[name] {
	case dataset.Numeric:
		fill := p.Means[name]
		for i, v := range raw {
			if f, ok := dataset.ParseNumber(v); ok {
				out[i] = f
			} else {
				out[i] = fill
			}
		}
	case dataset.Categorical:
		enc, ok := p.EncodingFor(name)
		if !ok {
			return nil, errors.NewValueError("Plan.Transform", "no encoding for categorical feature "+name)
		}
		for i, v := range raw {
			out[i] = float64(enc.Lookup(v))
		}
	default:
		return nil, errors.NewValueError("Plan.Transform", "unknown type for feature "+name)
	}
	return out, nil
}

// applyScaling rescales the planned columns of X in place using a scaler
// restored from the plan's parameters.
func (p *Plan) applyScaling(X *mat.Dense) error {
	if len(p.Scalings) == 0 {
		return nil
	}

	idx := make(map[string]int, len(p.Features))
	for j, f := range p.Features {
		idx[f] = j
	}

	rows, _ := X.Dims()
	sub := mat.NewDense(rows, len(p.Scalings), nil)
	cols := make([]int, len(p.Scalings))
	lo := make([]float64, len(p.Scalings))
	hi := make([]float64, len(p.Scalings))
	mean := make([]float64, len(p.Scalings))
	std := make([]float64, len(p.Scalings))
	for k, s := range p.Scalings {
		j, ok := idx[s.Column]
		if !ok {
			return errors.NewValueError("Plan.Transform", "scaled column is not a feature: "+s.Column)
		}
		cols[k] = j
		sub.SetCol(k, mat.Col(nil, j, X))
		lo[k], hi[k], mean[k], std[k] = s.Min, s.Max, s.Mean, s.Std
	}

	var (
		scaled mat.Matrix
		err    error
	)
	switch p.ScalingMethod {
	case ScalingMinMax:
		var mm *MinMaxScaler
		if mm, err = RestoreMinMaxScaler(lo, hi); err == nil {
			scaled, err = mm.Transform(sub)
		}
	case ScalingStandard:
		var ss *StandardScaler
		if ss, err = RestoreStandardScaler(mean, std); err == nil {
			scaled, err = ss.Transform(sub)
		}
	default:
		return errors.NewValidationError("scaling_method", "must be minmax or standard", string(p.ScalingMethod))
	}
	if err != nil {
		return err
	}

	for k, j := range cols {
		X.SetCol(j, mat.Col(nil, k, scaled))
	}
	return nil
}
