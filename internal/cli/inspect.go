package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/report"
)

type inspectView struct {
	Metadata        pipeline.ArtifactMetadata     `json:"metadata" yaml:"metadata"`
	Backend         string                        `json:"backend" yaml:"backend"`
	Hyperparameters backend.Hyperparameters       `json:"hyperparameters" yaml:"hyperparameters"`
	Target          string                        `json:"target" yaml:"target"`
	Classes         []string                      `json:"classes" yaml:"classes"`
	Features        []string                      `json:"features" yaml:"features"`
	Coefficients    []backend.Coefficient         `json:"coefficients" yaml:"coefficients"`
	Preprocessing   []string                      `json:"preprocessing" yaml:"preprocessing"`
	Performance     *pipeline.ArtifactPerformance `json:"performance" yaml:"performance"`
}

func newInspectCommand(a *app) *cobra.Command {
	var (
		format    string
		out       string
		chartPath string
	)
	cmd := &cobra.Command{
		Use:   "inspect <model.json>",
		Short: "Validate a model file and show what it contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			art, m, err := loadArtifact(args[0])
			if err != nil {
				return err
			}
			view := inspectView{
				Metadata:        art.Metadata,
				Backend:         m.Backend,
				Hyperparameters: m.Hyperparameters,
				Target:          m.Config.Selection.Target,
				Classes:         m.TargetClasses,
				Features:        m.FeatureNames,
				Coefficients:    m.Coefficients,
				Preprocessing:   m.Plan.Steps,
				Performance:     art.Performance,
			}
			if chartPath != "" {
				err := writeTo(cmd, chartPath, func(w io.Writer) error {
					return report.WriteCoefficientChart(w, m, report.DefaultChartOptions())
				})
				if err != nil {
					return err
				}
				a.logger.Info("chart written", "path", chartPath)
			}
			return writeTo(cmd, out, func(w io.Writer) error { return encode(w, view, f) })
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "also render the coefficients as a PNG chart to this path")
	return cmd
}
