// Package report renders read-only views of pipeline state: PNG charts of
// model coefficients and predictor correlations, and a structured summary
// for downstream report writers.
package report

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/stats"
)

// ChartOptions sizes a rendered chart.
type ChartOptions struct {
	Width  vg.Length
	Height vg.Length
	// Format is any format gonum/plot can encode: png, svg, pdf, ...
	Format string
}

// DefaultChartOptions returns a 6x4 inch PNG.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 6 * vg.Inch, Height: 4 * vg.Inch, Format: "png"}
}

func (o ChartOptions) withDefaults() ChartOptions {
	def := DefaultChartOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Format == "" {
		o.Format = def.Format
	}
	return o
}

func render(w io.Writer, p *plot.Plot, opt ChartOptions) error {
	wt, err := p.WriterTo(opt.Width, opt.Height, opt.Format)
	if err != nil {
		return errors.Wrapf(err, "encode %s chart", opt.Format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}

// WriteCoefficientChart draws one bar per feature and class. A model whose
// coefficients could not be extracted has nothing to draw and is rejected.
func WriteCoefficientChart(w io.Writer, m *pipeline.TrainedModel, opt ChartOptions) error {
	if m == nil {
		return errors.NewValidationError("model", "is required", nil)
	}
	if !m.CoefficientsAvailable || len(m.Coefficients) == 0 {
		return errors.NewValidationError("model", "coefficients unavailable", m.Backend)
	}
	opt = opt.withDefaults()

	var classes []string
	byClass := make(map[string]plotter.Values)
	for _, c := range m.Coefficients {
		if _, ok := byClass[c.Class]; !ok {
			classes = append(classes, c.Class)
		}
		byClass[c.Class] = append(byClass[c.Class], c.Value)
	}

	p := plot.New()
	p.Title.Text = "Coefficients"
	p.Y.Label.Text = "coefficient"

	width := vg.Points(40 / float64(len(classes)))
	for i, class := range classes {
		bars, err := plotter.NewBarChart(byClass[class], width)
		if err != nil {
			return errors.Wrapf(err, "coefficient bars for class %q", class)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(float64(i)-float64(len(classes)-1)/2) * width
		p.Add(bars)
		if len(classes) > 1 {
			p.Legend.Add(class, bars)
		}
	}
	p.Add(plotter.NewGrid())
	p.NominalX(m.FeatureNames...)
	p.Legend.Top = true
	return render(w, p, opt)
}

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is
// drawn at the top so the layout reads like the matrix.
type correlationGrid struct {
	values [][]float64
}

func (g correlationGrid) Dims() (c, r int)   { return len(g.values), len(g.values) }
func (g correlationGrid) Z(c, r int) float64 { return g.values[len(g.values)-1-r][c] }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

// WriteCorrelationChart draws the matrix as a heat map on a fixed [-1, 1]
// scale. At least two numeric columns are needed.
func WriteCorrelationChart(w io.Writer, m *stats.CorrelationMatrix, opt ChartOptions) error {
	if m == nil || len(m.Columns) < 2 {
		return errors.NewValidationError("correlation", "at least two numeric columns are required", nil)
	}
	opt = opt.withDefaults()

	heat := plotter.NewHeatMap(correlationGrid{values: m.Values}, palette.Heat(16, 1))
	heat.Min, heat.Max = -1, 1
	heat.NaN = plotutil.Color(6)

	p := plot.New()
	p.Title.Text = "Correlation"
	p.Add(heat)

	n := len(m.Columns)
	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[n-1-i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1
	return render(w, p, opt)
}
