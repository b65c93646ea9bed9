package backend

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-studio/core/model"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
)

// UnavailableNote annotates placeholder coefficients.
const UnavailableNote = "coefficients unavailable"

const maxUnwrapDepth = 3

// Accessor shapes a handle may expose, tried in this order.
type (
	coefMatrix interface {
		Coef() [][]float64
	}
	interceptVector interface {
		Intercept() []float64
	}
	weightAccessor interface {
		Weights() *Weights
	}
	nestedModel interface {
		Unwrap() Handle
	}
)

type accessor struct {
	name string
	fn   func(h Handle) (*Weights, bool)
}

var accessors = []accessor{
	{"coef", coefFromParams},
	{"export_weights", coefFromExport},
	{"weights", coefFromAccessor},
}

func coefFromParams(h Handle) (*Weights, bool) {
	c, ok := h.(coefMatrix)
	if !ok {
		return nil, false
	}
	w := &Weights{Coef: c.Coef()}
	if ic, ok := h.(interceptVector); ok {
		w.Intercept = ic.Intercept()
	}
	return w, len(w.Coef) > 0
}

func coefFromExport(h Handle) (*Weights, bool) {
	e, ok := h.(model.WeightExporter)
	if !ok {
		return nil, false
	}
	mw, err := e.ExportWeights()
	if err != nil || mw == nil || len(mw.Coefficients) == 0 {
		return nil, false
	}
	return &Weights{Coef: mw.Coefficients, Intercept: mw.Intercepts}, true
}

func coefFromAccessor(h Handle) (*Weights, bool) {
	a, ok := h.(weightAccessor)
	if !ok {
		return nil, false
	}
	w := a.Weights()
	return w, w != nil && len(w.Coef) > 0
}

// Coefficients walks the accessor ladder: direct weight matrix, exported
// parameter vector, accessor method, then a nested model. Each lookup runs
// under panic recovery; a panicking lookup counts as a miss.
func (b *Logistic) Coefficients(h Handle) (*Weights, bool) {
	return lookupHandle(b.logger, h, 0)
}

func lookupHandle(logger log.Logger, h Handle, depth int) (*Weights, bool) {
	if h == nil {
		return nil, false
	}
	for _, p := range accessors {
		w, err := errors.SafeCall(p.name, func() (*Weights, error) {
			w, ok := p.fn(h)
			if !ok {
				return nil, nil
			}
			return w, nil
		})
		if err != nil {
			logger.Debug("coefficient lookup failed", err, "accessor", p.name)
			continue
		}
		if w != nil {
			if w.Source == "" {
				w.Source = p.name
			}
			logger.Debug("coefficients found", "accessor", p.name, "depth", depth)
			return w, true
		}
	}

	if depth >= maxUnwrapDepth {
		return nil, false
	}
	n, ok := h.(nestedModel)
	if !ok {
		return nil, false
	}
	inner, err := errors.SafeCall("unwrap", func() (Handle, error) {
		return n.Unwrap(), nil
	})
	if err != nil {
		logger.Debug("coefficient lookup failed", err, "accessor", "unwrap")
		return nil, false
	}
	w, found := lookupHandle(logger, inner, depth+1)
	if found {
		w.Source = "unwrap/" + w.Source
	}
	return w, found
}

// Coefficient is one learned weight. Binary models carry a single row
// labelled with the positive class.
type Coefficient struct {
	Feature   string  `json:"feature"`
	Class     string  `json:"class"`
	Value     float64 `json:"coefficient"`
	Available bool    `json:"available"`
	Note      string  `json:"note,omitempty"`
}

// Extraction is the named coefficient list for a trained handle.
type Extraction struct {
	Coefficients []Coefficient
	Intercepts   []float64
	Available    bool
	Source       string
}

// Matrix returns the coefficients as rows per decision function.
func (e *Extraction) Matrix(nFeatures int) [][]float64 {
	if nFeatures == 0 {
		return nil
	}
	rows := make([][]float64, len(e.Coefficients)/nFeatures)
	for i := range rows {
		rows[i] = make([]float64, nFeatures)
		for j := range rows[i] {
			rows[i][j] = e.Coefficients[i*nFeatures+j].Value
		}
	}
	return rows
}

// ExtractCoefficients names the weights of h by feature and class. When the
// backend cannot produce weights of the expected shape, the handle must still
// predict a synthetic all-zero row; the result is then zero placeholders each
// annotated with UnavailableNote. If that predict fails too the handle is
// unusable and a ModelInferenceError is returned.
func ExtractCoefficients(b ModelBackend, h Handle, featureNames, classes []string) (*Extraction, error) {
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	rowClass := func(i int) string {
		if len(classes) == 2 {
			return classes[1]
		}
		return classes[i]
	}

	w, ok := b.Coefficients(h)
	if ok && validShape(w, rows, len(featureNames)) {
		ext := &Extraction{Available: true, Source: w.Source}
		for i, row := range w.Coef {
			for j, name := range featureNames {
				ext.Coefficients = append(ext.Coefficients, Coefficient{
					Feature: name, Class: rowClass(i), Value: row[j], Available: true,
				})
			}
		}
		ext.Intercepts = append([]float64(nil), w.Intercept...)
		if len(ext.Intercepts) != rows {
			ext.Intercepts = make([]float64, rows)
		}
		return ext, nil
	}

	synthetic := mat.NewDense(1, max(len(featureNames), 1), nil)
	if _, err := b.Predict(h, synthetic); err != nil {
		return nil, errors.NewModelInferenceError("extract coefficients", err)
	}
	ext := &Extraction{Intercepts: make([]float64, rows)}
	for i := 0; i < rows; i++ {
		for _, name := range featureNames {
			ext.Coefficients = append(ext.Coefficients, Coefficient{
				Feature: name, Class: rowClass(i), Note: UnavailableNote,
			})
		}
	}
	return ext, nil
}

func validShape(w *Weights, rows, cols int) bool {
	if w == nil || len(w.Coef) != rows {
		return false
	}
	for _, r := range w.Coef {
		if len(r) != cols {
			return false
		}
		for _, v := range r {
			if !errors.IsFinite(v) {
				return false
			}
		}
	}
	return true
}
