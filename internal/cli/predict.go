package cli

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-studio/backend"
	"github.com/YuminosukeSato/scigo-studio/pipeline"
	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
	"github.com/YuminosukeSato/scigo-studio/pkg/log"
)

func loadArtifact(path string) (*pipeline.Artifact, *pipeline.TrainedModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	a, err := pipeline.ReadArtifact(f)
	if err != nil {
		return nil, nil, err
	}
	m, err := a.TrainedModel()
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}

func newPredictCommand(a *app) *cobra.Command {
	var (
		out       string
		delimiter string
	)
	cmd := &cobra.Command{
		Use:   "predict <model.json> <file>",
		Short: "Apply an exported model to a CSV file",
		Long:  "predict writes one CSV row per input row with the predicted class and the probability of every class.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := loadArtifact(args[0])
			if err != nil {
				return err
			}
			ds, err := readDataset(args[1], delimiter)
			if err != nil {
				return err
			}
			b, err := backend.New(m.Backend)
			if err != nil {
				return err
			}
			pred, err := pipeline.PredictModel(b, m, ds)
			if err != nil {
				return err
			}
			a.logger.Info("predictions made",
				log.OperationKey, log.OperationPredict,
				log.SourceKey, ds.Name(),
				log.SamplesKey, len(pred.Labels),
			)
			return writeTo(cmd, out, func(w io.Writer) error { return writePredictions(w, pred) })
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output CSV file (default stdout)")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "input field delimiter: ',', ';' or 'tab' (default sniffed)")
	return cmd
}

// writePredictions emits row, prediction and one probability column per
// class.
func writePredictions(w io.Writer, p *pipeline.Predictions) error {
	cw := csv.NewWriter(w)
	header := []string{"row", "prediction"}
	for _, c := range p.Classes {
		header = append(header, "p_"+c)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	record := make([]string, len(header))
	for i, label := range p.Labels {
		record[0] = strconv.Itoa(i + 1)
		record[1] = label
		for k, v := range p.Probabilities[i] {
			record[2+k] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush predictions")
}
